package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/pipeline"
	"github.com/novywave/engine/internal/watchset"
	"github.com/novywave/engine/internal/wire"
)

// Dispatcher is the narrow boundary PluginHost uses to re-enter plugin
// results into the RequestPipeline as synthetic requests (spec.md §4.7
// "Results flow back into the engine as synthetic load/reload requests on
// channels the plugin is authorized for"). *pipeline.Pipeline satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req wire.Request)
}

// allowedRelayChannels is the allowlist spec.md §4.7 requires for
// relay.publish ("channel ids must be on an allowlist"). "file.load" is the
// only channel wired to a concrete engine effect; "log" is accepted but only
// logged. Any channel not on this list is rejected by relay.publish, so a
// plugin manifest cannot silently gain new capabilities by publishing on an
// unrecognized channel.
var allowedRelayChannels = []string{"file.load", "log"}

// PluginHost runs every enabled plugin declared in the ConfigStore's
// `[plugins]` table, implementing spec.md §4.7. One instance (and one
// worker goroutine) per plugin id, grounded on the teacher's Firecracker VM
// pool (internal/vm/pool_linux.go): the pool's one-goroutine-per-warm-VM
// shape becomes one goroutine per plugin instance, its backfill-on-error
// retry becomes the Error→backoff→retry transition (see lifecycle.go).
type PluginHost struct {
	log        *logrus.Entry
	watcher    *watchset.Watcher
	dispatcher Dispatcher

	mu        sync.Mutex
	instances map[string]*instance

	status chan wire.Response
	done   chan struct{}
}

// New constructs a PluginHost. dispatcher may be nil: plugin-originated
// file loads are then dropped instead of crashing, with a log line for a
// relay.publish "file.load" and silently for a handle_event result.
func New(log *logrus.Entry, watcher *watchset.Watcher, dispatcher Dispatcher) *PluginHost {
	h := &PluginHost{
		log:        log,
		watcher:    watcher,
		dispatcher: dispatcher,
		instances:  make(map[string]*instance),
		status:     make(chan wire.Response, 32),
		done:       make(chan struct{}),
	}
	go h.forwardWatchEvents()
	return h
}

// StatusUpdates implements pipeline's optional pluginStatusSource
// capability.
func (h *PluginHost) StatusUpdates() <-chan wire.Response { return h.status }

// Close stops every running instance and the host's background loops.
func (h *PluginHost) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return
	default:
		close(h.done)
	}
	for _, in := range h.instances {
		select {
		case in.events <- disableMsg{}:
		case <-in.stopped:
		}
	}
}

// UpdatePlugin implements pipeline.PluginUpdater, answering both a first
// sighting of a plugin id (an enabled entry spins up a new instance in
// Loading; a disabled one starts nothing, so a later enable is handled as a
// first sighting) and a config change to one already running (reload,
// deduplicated against no-ops by the instance itself).
func (h *PluginHost) UpdatePlugin(entry wire.PluginEntry) error {
	if entry.ID == "" {
		return errors.New("plugin entry missing id")
	}
	manifest := manifestFromWire(entry)

	h.mu.Lock()
	in, exists := h.instances[manifest.ID]
	if !exists && manifest.Enabled {
		in = &instance{
			id:      manifest.ID,
			log:     h.log,
			events:  make(chan any, 16),
			stopped: make(chan struct{}),
			watcher: h.watcher,
			host:    h,
			state:   StateDisabled,
		}
		h.instances[manifest.ID] = in
	}
	h.mu.Unlock()

	if !exists {
		if !manifest.Enabled {
			return nil
		}
		go in.run(manifest)
		return nil
	}

	select {
	case in.events <- reloadMsg{manifest: manifest}:
	case <-in.stopped:
	}
	return nil
}

func manifestFromWire(e wire.PluginEntry) Manifest {
	m := Manifest{ID: e.ID, Enabled: e.Enabled, ArtifactPath: e.ArtifactPath, Config: e.Config}
	if e.Watch != nil {
		m.Watch = &WatchSpec{Directories: e.Watch.Directories, DebounceMs: e.Watch.DebounceMs}
	}
	return m
}

func (h *PluginHost) forwardWatchEvents() {
	for {
		select {
		case ev, ok := <-h.watcher.Events():
			if !ok {
				return
			}
			h.mu.Lock()
			in, found := h.instances[ev.SubscriptionID]
			h.mu.Unlock()
			if !found {
				continue
			}
			select {
			case in.events <- filesystemChangeMsg{subscriptionID: ev.SubscriptionID, paths: ev.Paths}:
			case <-in.stopped:
			}
		case <-h.done:
			return
		}
	}
}

// buildBridge constructs the capability surface granted to one plugin
// call, scoped to that plugin's own manifest (spec.md §4.7 security
// posture: "plugins receive only directories enumerated in their config").
func (h *PluginHost) buildBridge(in *instance, manifest Manifest) *hostBridge {
	pluginLog := h.log.WithField("plugin_id", manifest.ID)
	return &hostBridge{
		log:             pluginLog,
		allowedDirs:     manifest.grantedDirectories(),
		allowedChannels: allowedRelayChannels,
		configSnapshot:  func() map[string]any { return manifest.Config },
		subscribe: func(dirs []string, debounceMs int) (string, error) {
			subID := manifest.ID + ":watch"
			if err := h.watcher.Subscribe(subID, dirs, time.Duration(debounceMs)*time.Millisecond); err != nil {
				if errors.Is(err, watchset.ErrAlreadySubscribed) {
					return subID, nil
				}
				return "", err
			}
			h.mu.Lock()
			h.instances[subID] = in
			h.mu.Unlock()
			in.capSubs = append(in.capSubs, subID)
			return subID, nil
		},
		publish: func(channel string, event json.RawMessage) error {
			return h.relay(manifest.ID, channel, event)
		},
	}
}

// relay implements the one concrete effect relay.publish can trigger in
// this spec: a plugin-authorized "file.load" event re-enters the
// RequestPipeline as a synthetic LoadFile request (spec.md §4.7).
func (h *PluginHost) relay(pluginID, channel string, event json.RawMessage) error {
	switch channel {
	case "file.load":
		var payload struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(event, &payload); err != nil {
			return err
		}
		if payload.Path == "" {
			return errors.New("file.load event missing path")
		}
		if h.dispatcher == nil {
			h.log.WithField("plugin_id", pluginID).Warn("plugin requested file.load with no dispatcher wired")
			return nil
		}
		h.dispatcher.Dispatch(context.Background(), pipeline.SyntheticLoadFile(payload.Path))
		return nil
	default:
		h.log.WithField("plugin_id", pluginID).WithField("channel", channel).Debug("plugin relay event")
		return nil
	}
}

// reportStatus pushes a PluginStatus response, spec.md §4.7's lifecycle
// transitions surfaced to the UI.
func (h *PluginHost) reportStatus(id string, state State, errMsg string) {
	h.log.WithFields(logrus.Fields{"plugin_id": id, "state": state}).Info("plugin state changed")
	resp := wire.Response{Type: wire.RespPluginStatus, PluginID: id, PluginState: string(state)}
	if errMsg != "" {
		resp.ErrorKind = wire.ErrPluginError
		resp.Message = errMsg
	}
	select {
	case h.status <- resp:
	case <-h.done:
	}
}

// handleResult inspects a handle_event result for a plugin-originated
// reload/load request. Plugins speak the same envelope relay.publish uses
// ({"kind":"file.load","path":...}) so a single export can both mutate its
// own state and ask the engine to track a newly discovered file.
func (h *PluginHost) handleResult(pluginID string, result []byte) {
	if len(result) == 0 {
		return
	}
	var envelope struct {
		Kind string `json:"kind"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal(result, &envelope); err != nil {
		return
	}
	if envelope.Kind == "file.load" && envelope.Path != "" && h.dispatcher != nil {
		h.dispatcher.Dispatch(context.Background(), pipeline.SyntheticLoadFile(envelope.Path))
	}
}
