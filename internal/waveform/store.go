// Package waveform implements the WaveformStore of spec.md §4.3: tracking
// loaded files, parsing their hierarchy eagerly and their transition body
// lazily, and answering hierarchy/span/decimation queries. The background
// parse-and-publish shape is grounded on the teacher's VM pool
// (internal/vm/pool_linux.go's fillOne/backfillLoop): a bounded worker
// dispatches long-running work off the caller's goroutine and the result
// lands on a channel the owner drains.
package waveform

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
)

// LoadState is a TrackedFile's position in the loading state machine
// (spec.md §3 "TrackedFile").
type LoadState int

const (
	StateLoadingHeader LoadState = iota
	StateLoadingBody
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoadingHeader, StateLoadingBody:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "failed"
	}
}

// Stage names surfaced in FileLoading responses (spec.md §6.1).
const (
	StageHeader = "header"
	StageBody   = "body"
)

// EventKind discriminates a Store event.
type EventKind int

const (
	EventHeaderLoaded EventKind = iota
	EventBodyLoaded
	EventFailed
)

// Event is published on Store.Events() whenever a background parse job
// completes, so the session layer can turn it into a wire.Response without
// blocking the goroutine that called Load or StreamTransitions.
type Event struct {
	Path      string
	Kind      EventKind
	ErrorKind string
	Message   string
}

// TrackedFile is one file's load state and parsed content (spec.md §3).
type TrackedFile struct {
	Path       string // canonical
	RequestedAs string // path as the caller first asked for it

	mu        sync.Mutex
	state     LoadState
	errorKind string
	errorMsg  string
	header    HeaderResult
	body      *BodyResult
	bodyOnce  sync.Once
	bodyErr   error
}

func (f *TrackedFile) snapshot() (LoadState, HeaderResult, string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.header, f.errorKind, f.errorMsg
}

// Store is the WaveformStore: it owns every TrackedFile and the adapters
// capable of parsing them.
type Store struct {
	log      *logrus.Entry
	adapters []ParserAdapter

	mu    sync.Mutex
	files map[string]*TrackedFile // keyed by canonical path

	events chan Event

	// parseSem bounds concurrent header/body parse goroutines, mirroring the
	// teacher pool's fixed VM pool size rather than letting N simultaneous
	// file loads each spawn unbounded work.
	parseSem chan struct{}
}

// NewStore constructs a Store with the given adapters. concurrency bounds
// simultaneous parse jobs (header or body); 0 defaults to 4.
func NewStore(log *logrus.Entry, concurrency int, adapters ...ParserAdapter) *Store {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Store{
		log:      log,
		adapters: adapters,
		files:    make(map[string]*TrackedFile),
		events:   make(chan Event, 64),
		parseSem: make(chan struct{}, concurrency),
	}
}

// Events returns the channel of background parse completions. The caller
// (internal/session) must drain it for the life of the Store.
func (s *Store) Events() <-chan Event { return s.events }

// Load begins tracking path, returning its canonical form. If the file is
// already tracked this is a no-op that returns the existing entry; header
// parsing for a new file runs on a bounded worker goroutine and its
// completion is announced on Events().
func (s *Store) Load(ctx context.Context, path string) (canonical string, alreadyTracked bool, err error) {
	canonical, err = canonicalize(path)
	if err != nil {
		return "", false, fmt.Errorf("resolving path: %w", err)
	}
	if _, statErr := os.Stat(canonical); statErr != nil {
		return "", false, statErr
	}

	adapter := adapterFor(s.adapters, extOf(canonical))
	if adapter == nil {
		return "", false, ErrUnsupportedFormat
	}

	s.mu.Lock()
	if existing, ok := s.files[canonical]; ok {
		s.mu.Unlock()
		_ = existing
		return canonical, true, nil
	}
	tf := &TrackedFile{Path: canonical, RequestedAs: path, state: StateLoadingHeader}
	s.files[canonical] = tf
	s.mu.Unlock()

	go s.parseHeader(ctx, tf, adapter)
	return canonical, false, nil
}

func (s *Store) parseHeader(ctx context.Context, tf *TrackedFile, adapter ParserAdapter) {
	s.parseSem <- struct{}{}
	defer func() { <-s.parseSem }()

	header, err := adapter.ParseHeader(ctx, tf.Path)
	tf.mu.Lock()
	if err != nil {
		tf.state = StateFailed
		tf.errorKind = classifyParseErr(err)
		tf.errorMsg = err.Error()
	} else {
		tf.state = StateLoaded
		tf.header = header
	}
	kind, eKind, eMsg := tf.state, tf.errorKind, tf.errorMsg
	tf.mu.Unlock()

	if kind == StateFailed {
		s.log.WithError(err).WithField("path", tf.Path).Warn("waveform: header parse failed")
		s.events <- Event{Path: tf.Path, Kind: EventFailed, ErrorKind: eKind, Message: eMsg}
		return
	}
	s.events <- Event{Path: tf.Path, Kind: EventHeaderLoaded}
}

// ensureBody triggers (at most once per file) the lazy body parse described
// in spec.md §4.3, blocking the calling goroutine only until that file's
// body finishes — concurrent callers for other files are unaffected since
// each TrackedFile owns its own sync.Once.
func (s *Store) ensureBody(ctx context.Context, tf *TrackedFile) error {
	tf.bodyOnce.Do(func() {
		s.parseSem <- struct{}{}
		defer func() { <-s.parseSem }()

		adapter := adapterFor(s.adapters, extOf(tf.Path))
		if adapter == nil {
			tf.bodyErr = ErrUnsupportedFormat
			return
		}

		tf.mu.Lock()
		header := tf.header
		tf.state = StateLoadingBody
		tf.mu.Unlock()

		body, err := adapter.ParseBody(ctx, tf.Path, header)
		tf.mu.Lock()
		if err != nil {
			tf.state = StateFailed
			tf.errorKind = classifyParseErr(err)
			tf.errorMsg = err.Error()
			tf.bodyErr = err
		} else {
			tf.state = StateLoaded
			tf.body = &body
		}
		tf.mu.Unlock()

		if err != nil {
			s.events <- Event{Path: tf.Path, Kind: EventFailed, ErrorKind: tf.errorKind, Message: tf.errorMsg}
			return
		}
		s.events <- Event{Path: tf.Path, Kind: EventBodyLoaded}
	})
	return tf.bodyErr
}

func (s *Store) lookup(canonicalPath string) (*TrackedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tf, ok := s.files[canonicalPath]
	return tf, ok
}

// Hierarchy returns the parsed scope tree. Valid once the file's header has
// loaded (spec.md §4.3 "ListHierarchy").
func (s *Store) Hierarchy(path string) (*Scope, error) {
	tf, ok := s.lookup(path)
	if !ok {
		return nil, ErrNotTracked
	}
	state, header, _, errMsg := tf.snapshot()
	switch state {
	case StateFailed:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, errMsg)
	case StateLoadingHeader:
		return nil, ErrNotTracked
	}
	return header.Root, nil
}

// Span returns the file's overall time span and declared unit hint.
func (s *Store) Span(path string) (timeng.Span, timeng.Unit, error) {
	tf, ok := s.lookup(path)
	if !ok {
		return timeng.Span{}, timeng.UnitNs, ErrNotTracked
	}
	state, header, _, _ := tf.snapshot()
	if state == StateLoadingHeader || state == StateFailed {
		return timeng.Span{}, timeng.UnitNs, ErrNotTracked
	}
	return header.Span, header.Unit, nil
}

// StreamTransitions returns every transition for variableID within
// [startNs, endNs), along with the value in effect immediately before
// startNs (for decimate.Run's carry-forward seed). It triggers body parsing
// on first call for this file and blocks until that parse completes.
func (s *Store) StreamTransitions(ctx context.Context, path, variableID string, startNs, endNs timeng.Ns) (prior sigval.Value, transitions []sigval.Transition, err error) {
	tf, ok := s.lookup(path)
	if !ok {
		return sigval.Value{}, nil, ErrNotTracked
	}
	if err := s.ensureBody(ctx, tf); err != nil {
		return sigval.Value{}, nil, err
	}

	tf.mu.Lock()
	body := tf.body
	tf.mu.Unlock()
	if body == nil {
		return sigval.Value{}, nil, ErrNotTracked
	}

	all, ok := body.Transitions[variableID]
	if !ok {
		return sigval.Value{}, nil, ErrVariableNotFound
	}

	prior = sigval.NoData
	out := make([]sigval.Transition, 0, len(all))
	for _, tr := range all {
		if tr.TimeNs < startNs {
			prior = tr.Value
			continue
		}
		if tr.TimeNs >= endNs {
			break
		}
		out = append(out, tr)
	}
	return prior, out, nil
}

// Unload stops tracking path and frees its parsed content.
func (s *Store) Unload(path string) error {
	canonical, err := canonicalize(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[canonical]; !ok {
		return ErrNotTracked
	}
	delete(s.files, canonical)
	return nil
}

// State reports the current LoadState, error detail (if any), for snapshot
// publishing (spec.md §4.4).
func (s *Store) State(path string) (LoadState, string, string, bool) {
	tf, ok := s.lookup(path)
	if !ok {
		return StateFailed, "", "", false
	}
	state, _, errKind, errMsg := tf.snapshot()
	return state, errKind, errMsg, true
}

func classifyParseErr(err error) string {
	if os.IsNotExist(err) {
		return "FileNotFound"
	}
	if os.IsPermission(err) {
		return "PermissionDenied"
	}
	return "ParseError"
}
