// Package pipeline implements the RequestPipeline of spec.md §4.5: routing
// typed UI requests to WaveformStore/DecimationEngine/SessionState/PluginHost
// and streaming back asynchronous, request_id-correlated responses.
//
// The request/response correlation shape — a dispatch loop handing results
// back by id, with a separate channel for unsolicited pushes — is grounded
// directly on the teacher's internal/repl/session.go (sendAndWait's
// per-request pending channel, readLoop's dispatch-by-ID, pushCh for
// server-initiated table_update messages). Here SessionSnapshot and
// PluginStatus play the role of pushCh: they are not responses to any one
// request, they are published whenever session or plugin state changes.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/session"
	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/waveform"
	"github.com/novywave/engine/internal/wire"
)

// PluginUpdater is the narrow boundary ConfigUpdatePlugin dispatches
// through. internal/plugin implements it; Pipeline works without one (it
// answers ConfigUpdatePlugin with a ConfigError) so the two packages can be
// built and tested independently.
type PluginUpdater interface {
	UpdatePlugin(entry wire.PluginEntry) error
}

// batchWindow is how long a QueryDecimated group waits for sibling requests
// sharing (start_ns, end_ns, pixel_count) before it fires, implementing
// spec.md §4.5 "Coalesce range queries ... into one DecimationEngine call".
// Grounded on the same time.AfterFunc debounce idiom internal/nwconfig and
// internal/watchset use for coalescing bursts, just with a much shorter
// window since this one batches same-tick UI fan-out rather than user
// typing.
const batchWindow = 4 * time.Millisecond

// rangeConcurrency bounds simultaneous DecimationEngine computations
// (spec.md §4.5 "Backpressure... soft bound"), mirroring the teacher's
// pool/parseSem fixed-size-channel idiom.
const rangeConcurrency = 8

// Pipeline is the RequestPipeline. One Pipeline serves one UI connection.
type Pipeline struct {
	log     *logrus.Entry
	sess    *session.Session
	store   *waveform.Store
	history *nwconfig.History
	plugins PluginUpdater

	out chan wire.Response

	mu           sync.Mutex
	groups       map[string]*rangeGroup // keyed by "start|end|pixels"
	rangeSem     chan struct{}
	viewport     wire.Request // last SetViewport request, for on/off-screen backpressure decisions
	hasViewport  bool

	probeCh chan wire.Request // size-1 "latest wins" throttle for QueryValuesAt

	tees []chan wire.Response // best-effort observers registered via Tee()

	done chan struct{}
}

// New constructs a Pipeline. history and plugins may be nil.
func New(log *logrus.Entry, sess *session.Session, store *waveform.Store, history *nwconfig.History, plugins PluginUpdater) *Pipeline {
	p := &Pipeline{
		log:      log,
		sess:     sess,
		store:    store,
		history:  history,
		plugins:  plugins,
		out:      make(chan wire.Response, 64),
		groups:   make(map[string]*rangeGroup),
		rangeSem: make(chan struct{}, rangeConcurrency),
		probeCh:  make(chan wire.Request, 1),
		done:     make(chan struct{}),
	}
	go p.forwardSnapshots()
	go p.forwardFileEvents()
	go p.runProbeWorker()
	if statusSrc, ok := plugins.(pluginStatusSource); ok {
		go p.forwardPluginStatus(statusSrc)
	}
	return p
}

// pluginStatusSource is an optional capability a PluginUpdater may also
// implement: a channel of unsolicited PluginStatus pushes (spec.md §4.7
// lifecycle transitions), forwarded the same way forwardSnapshots relays
// SessionSnapshot. internal/plugin.PluginHost implements it; Pipeline works
// without it (no plugin status pushes) so the two packages stay
// independently testable.
type pluginStatusSource interface {
	StatusUpdates() <-chan wire.Response
}

func (p *Pipeline) forwardPluginStatus(src pluginStatusSource) {
	for {
		select {
		case resp, ok := <-src.StatusUpdates():
			if !ok {
				return
			}
			p.emit(resp)
		case <-p.done:
			return
		}
	}
}

// Out returns the channel of outgoing responses; the transport
// (internal/engineio) drains it and writes one JSON line per response.
func (p *Pipeline) Out() <-chan wire.Response { return p.out }

// Tee registers an additional channel that receives a copy of every
// outgoing response, for observers like internal/statustui that must not
// steal messages from the primary transport (internal/engineio). The
// returned channel is best-effort: a slow or full consumer silently misses
// responses rather than ever blocking emit.
func (p *Pipeline) Tee() <-chan wire.Response {
	ch := make(chan wire.Response, 64)
	p.mu.Lock()
	p.tees = append(p.tees, ch)
	p.mu.Unlock()
	return ch
}

// Stats reports a point-in-time snapshot of request-pipeline backpressure
// (spec.md §4.5 "Backpressure"), for internal/statustui's dashboard.
type Stats struct {
	ActiveRangeWorkers int
	RangeCapacity      int
	PendingGroups      int
	ProbeQueued        bool
}

func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveRangeWorkers: len(p.rangeSem),
		RangeCapacity:      cap(p.rangeSem),
		PendingGroups:      len(p.groups),
		ProbeQueued:        len(p.probeCh) > 0,
	}
}

// Close stops the Pipeline's background forwarders.
func (p *Pipeline) Close() {
	close(p.done)
}

func (p *Pipeline) emit(r wire.Response) {
	select {
	case p.out <- r:
	case <-p.done:
	}
	p.mu.Lock()
	tees := p.tees
	p.mu.Unlock()
	for _, ch := range tees {
		select {
		case ch <- r:
		default:
		}
	}
}

// forwardSnapshots relays session.Session.Snapshots() as SessionSnapshot
// pushes — the pipeline's pushCh equivalent.
func (p *Pipeline) forwardSnapshots() {
	for {
		select {
		case snap := <-p.sess.Snapshots():
			s := snap
			p.emit(wire.Response{Type: wire.RespSnapshot, Snapshot: &s})
		case <-p.done:
			return
		}
	}
}

// forwardFileEvents turns WaveformStore background-parse completions into
// FileLoaded/FileFailed pushes. FileLoading is emitted synchronously from
// Dispatch when LoadFile is first accepted.
func (p *Pipeline) forwardFileEvents() {
	for {
		select {
		case ev, ok := <-p.store.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case waveform.EventHeaderLoaded:
				span, unit, err := p.store.Span(ev.Path)
				resp := wire.Response{Type: wire.RespFileLoaded, Path: ev.Path, UnitHint: unitHintName(unit)}
				if err == nil {
					resp.SpanNs = &wire.SpanJSON{StartNs: span.Start, EndNs: span.End}
				}
				p.emit(resp)
			case waveform.EventBodyLoaded:
				// Body completion has no dedicated wire message (the UI only
				// needs hierarchy + span, both already sent); it unblocks
				// any QueryDecimated/QueryValuesAt waiting on StreamTransitions.
			case waveform.EventFailed:
				p.emit(wire.Response{Type: wire.RespFileFailed, Path: ev.Path, ErrorKind: ev.ErrorKind, Message: ev.Message})
			}
			p.sess.NotifyFileEvent(ev)
		case <-p.done:
			return
		}
	}
}

// Dispatch routes one incoming request. It never blocks on the resulting
// work: range queries and value probes are handed to background goroutines
// that emit their responses on Out() whenever they finish, out of order,
// correlated by RequestID (spec.md §4.5 "Ordering").
func (p *Pipeline) Dispatch(ctx context.Context, req wire.Request) {
	switch req.Type {
	case wire.ReqLoadFile:
		p.emit(wire.Response{Type: wire.RespFileLoading, Path: req.Path, Stage: waveform.StageHeader})
		p.sess.LoadFile(ctx, req.Path)

	case wire.ReqUnloadFile:
		p.sess.UnloadFile(req.Path)

	case wire.ReqListHierarchy:
		root, err := p.store.Hierarchy(req.Path)
		if err != nil {
			p.emit(errorResponse(req.RequestID, classifyDomainErr(err)))
			return
		}
		p.emit(wire.Response{Type: wire.RespHierarchy, RequestID: req.RequestID, Path: req.Path, Tree: scopeToWire(req.Path, root)})

	case wire.ReqSelectScope:
		var id string
		if req.ScopeID != nil {
			id = *req.ScopeID
		}
		p.sess.SelectScope(id)

	case wire.ReqAddVariable:
		filePath, localID := session.SplitVariableID(req.VariableID)
		p.sess.AddVariable(filePath, localID)
		if req.Formatter != "" {
			p.sess.SetFormatter(req.VariableID, sigval.ParseFormatterKind(req.Formatter))
		}

	case wire.ReqRemoveVariable:
		p.sess.RemoveVariable(req.VariableID)

	case wire.ReqSetFormatter:
		p.sess.SetFormatter(req.VariableID, sigval.ParseFormatterKind(req.Formatter))

	case wire.ReqQueryDecimated:
		p.dispatchQueryDecimated(ctx, req)

	case wire.ReqQueryValuesAt:
		p.dispatchQueryValuesAt(req)

	case wire.ReqSetViewport:
		p.mu.Lock()
		old := p.viewport
		hadOld := p.hasViewport
		p.viewport = req
		p.hasViewport = true
		p.mu.Unlock()
		if hadOld {
			p.cancelOffscreenGroups(old, req)
		}
		p.sess.SetViewport(req.StartNs, req.EndNs)

	case wire.ReqSetCursor:
		p.sess.SetCursor(req.TimeNs)

	case wire.ReqSetZoomCenter:
		p.sess.SetZoomCenter(req.TimeNs)

	case wire.ReqToggleTheme:
		p.sess.ToggleTheme()

	case wire.ReqToggleDock:
		p.sess.ToggleDock()

	case wire.ReqResizePanel:
		p.sess.ResizePanel(req.DockMode, req.Field, req.Value)

	case wire.ReqListWorkspaceHistory:
		p.dispatchListWorkspaceHistory(req)

	case wire.ReqSetWorkspaceTreeState:
		p.sess.SetWorkspaceTreeState(req.Workspace, req.ScrollTop, req.ExpandedPaths)

	case wire.ReqConfigUpdatePlugin:
		p.dispatchConfigUpdatePlugin(req)

	default:
		p.emit(errorResponse(req.RequestID, wire.ErrInvalidRequest))
	}
}

func (p *Pipeline) dispatchListWorkspaceHistory(req wire.Request) {
	if p.history == nil {
		p.emit(errorResponse(req.RequestID, wire.ErrConfigError))
		return
	}
	last, recent, treeState := p.history.Snapshot()
	wireTree := make(map[string]wire.TreeState, len(treeState))
	for workspace, ts := range treeState {
		wireTree[workspace] = wire.TreeState{ScrollTop: ts.ScrollTop, ExpandedPaths: ts.ExpandedPaths}
	}
	p.emit(wire.Response{
		Type:         wire.RespWorkspaceHistory,
		RequestID:    req.RequestID,
		LastSelected: last,
		RecentPaths:  recent,
		TreeState:    wireTree,
	})
}

func (p *Pipeline) dispatchConfigUpdatePlugin(req wire.Request) {
	if p.plugins == nil || req.PluginEntry == nil {
		p.emit(errorResponse(req.RequestID, wire.ErrConfigError))
		return
	}
	if err := p.plugins.UpdatePlugin(*req.PluginEntry); err != nil {
		p.emit(wire.Response{Type: wire.RespPluginStatus, PluginID: req.PluginEntry.ID, PluginState: "Error", Message: err.Error()})
		return
	}
}

func errorResponse(requestID, kind string) wire.Response {
	return wire.Response{Type: wire.RespError, RequestID: requestID, ErrorKind: kind, Message: kind}
}

func classifyDomainErr(err error) string {
	switch {
	case errors.Is(err, waveform.ErrNotTracked):
		return wire.ErrInvalidRequest
	case errors.Is(err, waveform.ErrUnsupportedFormat):
		return wire.ErrUnsupportedFormat
	case errors.Is(err, waveform.ErrVariableNotFound):
		return wire.ErrOutOfRange
	default:
		return wire.ErrParseError
	}
}

func newRequestID() string { return uuid.NewString() }

// SyntheticLoadFile builds a LoadFile request on behalf of a plugin
// discovery/reload event (spec.md §2 "plugin-originated events ... re-enter
// as synthetic UI requests"), tagging it with a fresh request_id. Dispatch
// does not copy that id onto the FileLoading push, and the later
// FileLoaded/FileFailed pushes carry only the path.
func SyntheticLoadFile(path string) wire.Request {
	return wire.Request{Type: wire.ReqLoadFile, RequestID: newRequestID(), Path: path}
}
