package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/watchset"
)

// State is one node of the PluginHost lifecycle state machine, spec.md
// §4.7:
//
//	Disabled ─► Loading ─► Ready ─► (config change) ─► Reloading ─► Ready
//	     │                                                          │
//	     └──► Error(reason) ◄───────────────────────────────────────┘
//	Ready ─► (toggle off) ─► Disabled
type State string

const (
	StateDisabled  State = "Disabled"
	StateLoading   State = "Loading"
	StateReady     State = "Ready"
	StateReloading State = "Reloading"
	StateError     State = "Error"
)

// watchdogDeadline bounds a single plugin call (init/handle_event/shutdown).
// Grounded on the teacher's idleWatcher ticker-based timeout idiom
// (internal/vm/pool_linux.go), generalized from "time since last request"
// to "time since this one call began". A var, not a const, so tests can
// shrink it rather than waiting out a real 5 seconds.
var watchdogDeadline = 5 * time.Second

// initialBackoff/maxBackoff bound the Error→retry delay, grounded on the
// teacher's backfillLoop's fixed 500ms retry-on-error pause, generalized to
// exponential per spec.md §4.7 "exponential backoff before retry".
var initialBackoff = 500 * time.Millisecond
var maxBackoff = 30 * time.Second

// instance is one running (or not-yet-running) plugin. One worker
// goroutine owns it for its entire lifetime, mirroring the teacher's
// one-goroutine-per-pool-VM shape (internal/vm/pool_linux.go's
// acceptLoop/handleConnection).
type instance struct {
	id  string
	log *logrus.Entry

	events  chan any // tickMsg | filesystemChangeMsg | configUpdatedMsg | reloadMsg | retryMsg{} | disableMsg{}
	stopped chan struct{}

	watcher        *watchset.Watcher
	host           *PluginHost
	subscriptionID string   // config-declared Watch subscription, if any
	capSubs        []string // subscriptions the plugin itself opened via watch.subscribe

	// state/errMsg/applied/backoff/module are only ever touched from this
	// instance's own run() goroutine — PluginHost communicates with it
	// exclusively through the buffered events channel, so no mutex guards
	// them here (the same "single owning goroutine" discipline as
	// internal/session.Session).
	state   State
	errMsg  string
	applied Manifest // last manifest successfully reached Ready with
	pending Manifest // manifest currently being applied/retried
	backoff time.Duration
	module  *wasmModule
}

type tickMsg struct{}
type filesystemChangeMsg struct {
	subscriptionID string
	paths          []string
}
type configUpdatedMsg struct{ manifest Manifest }
type reloadMsg struct{ manifest Manifest }
type retryMsg struct{}
type disableMsg struct{}

// run is the instance's worker loop: one goroutine, one event at a time,
// exactly the discipline internal/session.Session's actor loop and the
// teacher's pool VM goroutine both follow.
func (in *instance) run(manifest Manifest) {
	defer close(in.stopped)
	in.applyManifest(manifest)
	for ev := range in.events {
		switch msg := ev.(type) {
		case tickMsg:
			in.deliverEvent("tick", nil)
		case filesystemChangeMsg:
			payload, _ := json.Marshal(map[string]any{
				"subscription_id": msg.subscriptionID,
				"paths":           msg.paths,
			})
			in.deliverEvent("filesystem_change", payload)
		case configUpdatedMsg:
			payload, _ := json.Marshal(msg.manifest.Config)
			in.deliverEvent("config_updated", payload)
		case reloadMsg:
			in.reload(msg.manifest)
		case retryMsg:
			in.applyManifest(in.pending)
		case disableMsg:
			in.teardown()
			return
		}
	}
}

func (in *instance) applyManifest(manifest Manifest) {
	in.pending = manifest
	in.state = StateLoading
	in.host.reportStatus(in.id, StateLoading, "")

	artifact, err := os.ReadFile(manifest.ArtifactPath)
	if err != nil {
		in.fail(fmt.Errorf("reading artifact %s: %w", manifest.ArtifactPath, err))
		return
	}

	bridge := in.host.buildBridge(in, manifest)
	ctx := context.Background()
	mod, err := compileModule(ctx, in.id, artifact, bridge)
	if err != nil {
		in.fail(err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, watchdogDeadline)
	defer cancel()
	if _, err := mod.callInit(callCtx, manifest.grantedDirectories(), manifest.Config); err != nil {
		mod.Close(ctx)
		in.fail(err)
		return
	}

	if manifest.Watch != nil && len(manifest.Watch.Directories) > 0 {
		debounce := time.Duration(manifest.Watch.DebounceMs) * time.Millisecond
		if err := in.watcher.Subscribe(in.id, manifest.Watch.Directories, debounce); err == nil {
			in.subscriptionID = in.id
		}
	}

	in.module = mod
	in.applied = manifest
	in.backoff = 0
	in.state = StateReady
	in.errMsg = ""
	in.host.reportStatus(in.id, StateReady, "")
}

func (in *instance) deliverEvent(kind string, payload json.RawMessage) {
	if in.state != StateReady || in.module == nil {
		return
	}
	event, _ := json.Marshal(map[string]any{"kind": kind, "data": payload})
	callCtx, cancel := context.WithTimeout(context.Background(), watchdogDeadline)
	defer cancel()
	result, err := in.module.callHandleEvent(callCtx, in.applied.grantedDirectories(), event)
	if err != nil {
		in.fail(err)
		return
	}
	in.host.handleResult(in.id, result)
}

// reload implements spec.md §4.7 hot reload: identical manifests are a
// no-op; otherwise tear down and re-run the Loading sequence.
func (in *instance) reload(manifest Manifest) {
	if equalManifest(in.applied, manifest) {
		return
	}
	if !manifest.Enabled {
		in.teardown()
		in.state = StateDisabled
		in.host.reportStatus(in.id, StateDisabled, "")
		return
	}
	in.state = StateReloading
	in.host.reportStatus(in.id, StateReloading, "")
	in.teardownModule()
	in.applyManifest(manifest)
}

// teardown releases the module and watchers immediately. It does not end
// the worker goroutine: run returns only after a disableMsg, so a plugin
// toggled off through reload keeps its idle goroutine, which a later
// enable reuses.
func (in *instance) teardown() {
	in.teardownModule()
	in.state = StateDisabled
}

func (in *instance) teardownModule() {
	if in.module != nil {
		ctx, cancel := context.WithTimeout(context.Background(), watchdogDeadline)
		_ = in.module.callShutdown(ctx, in.applied.grantedDirectories())
		cancel()
		in.module.Close(context.Background())
		in.module = nil
	}
	if in.subscriptionID != "" {
		_ = in.watcher.Unsubscribe(in.subscriptionID)
		in.subscriptionID = ""
	}
	for _, sub := range in.capSubs {
		_ = in.watcher.Unsubscribe(sub)
	}
	in.capSubs = nil
}

// fail transitions to Error and schedules a backoff retry, grounded on the
// teacher's backfillLoop retry-with-backoff idiom.
func (in *instance) fail(err error) {
	in.log.WithError(err).WithField("plugin_id", in.id).Warn("plugin error")
	in.state = StateError
	in.errMsg = err.Error()
	in.host.reportStatus(in.id, StateError, err.Error())

	if in.module != nil {
		in.module.Close(context.Background())
		in.module = nil
	}
	if in.backoff == 0 {
		in.backoff = initialBackoff
	} else {
		in.backoff *= 2
		if in.backoff > maxBackoff {
			in.backoff = maxBackoff
		}
	}
	if in.pending.ArtifactPath == "" {
		return
	}
	time.AfterFunc(in.backoff, func() {
		select {
		case in.events <- retryMsg{}:
		case <-in.stopped:
		}
	})
}
