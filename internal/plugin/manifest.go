// Package plugin implements the PluginHost of spec.md §4.7: a sandboxed
// WebAssembly component-model runtime for third-party file-discovery and
// auto-reload plugins, with no ambient authority.
//
// The sandbox itself (compiled module, fresh-instance-per-call, ptr/len
// memory marshaling, capability-scoped filesystem mounts) is grounded on
// the pack's WASM plugin host (other_examples/*reglet*wasm-plugin.go.go),
// generalized from its describe/schema/observe export triplet to this
// spec's init/handle_event/shutdown triplet. The pool-style lifecycle
// management (one worker goroutine per instance, watchdog deadlines,
// exponential-backoff-before-retry) is grounded on the teacher's
// Firecracker VM pool daemon (internal/vm/pool_linux.go).
package plugin

import (
	"reflect"

	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/wire"
)

// Manifest is the host-side view of a `.novywave` [plugins] table entry
// (spec.md §4.7 "id, enabled, artifact_path, inline config table, optional
// watch"), built from nwconfig.PluginEntry plus the id it's keyed under.
type Manifest struct {
	ID           string
	Enabled      bool
	ArtifactPath string
	Config       map[string]any
	Watch        *WatchSpec
}

// WatchSpec mirrors nwconfig.WatchEntry.
type WatchSpec struct {
	Directories []string
	DebounceMs  int
}

// manifestFromEntry converts a persisted config-store entry into a Manifest.
func manifestFromEntry(id string, e nwconfig.PluginEntry) Manifest {
	m := Manifest{
		ID:           id,
		Enabled:      e.Enabled,
		ArtifactPath: e.ArtifactPath,
		Config:       e.Config,
	}
	if e.Watch != nil {
		m.Watch = &WatchSpec{Directories: e.Watch.Directories, DebounceMs: e.Watch.DebounceMs}
	}
	return m
}

// EntriesFromConfig converts every declared `[plugins]` entry in a
// ConfigStore snapshot into wire.PluginEntry values, letting cmd/novywave
// seed a fresh PluginHost by replaying UpdatePlugin once per entry at
// startup without duplicating nwconfig's table shape here.
func EntriesFromConfig(section nwconfig.PluginsSection) []wire.PluginEntry {
	out := make([]wire.PluginEntry, 0, len(section.Entries))
	for id, e := range section.Entries {
		m := manifestFromEntry(id, e)
		entry := wire.PluginEntry{ID: m.ID, Enabled: m.Enabled, ArtifactPath: m.ArtifactPath, Config: m.Config}
		if m.Watch != nil {
			entry.Watch = &wire.WatchEntry{Directories: m.Watch.Directories, DebounceMs: m.Watch.DebounceMs}
		}
		out = append(out, entry)
	}
	return out
}

// grantedDirectories returns every directory this manifest authorizes the
// plugin to read (watch directories plus an optional "directories" list in
// its inline config table), the capability surface filesystem.list_dir and
// filesystem.read_metadata are scoped against (spec.md §4.7 "plugins
// receive only directories enumerated in their config").
func (m Manifest) grantedDirectories() []string {
	var dirs []string
	if m.Watch != nil {
		dirs = append(dirs, m.Watch.Directories...)
	}
	if raw, ok := m.Config["directories"]; ok {
		if list, ok := raw.([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					dirs = append(dirs, s)
				}
			}
		}
	}
	return dirs
}

// equalManifest reports whether two manifests are identical for hot-reload
// purposes (spec.md §4.7 "identical PluginsSection payloads must be
// no-ops"). Compared field-by-field rather than via reflect.DeepEqual on
// the whole struct so a future additive field doesn't silently change
// no-op semantics without a deliberate update here.
func equalManifest(a, b Manifest) bool {
	if a.ID != b.ID || a.Enabled != b.Enabled || a.ArtifactPath != b.ArtifactPath {
		return false
	}
	if len(a.Config) != len(b.Config) {
		return false
	}
	for k, v := range a.Config {
		bv, ok := b.Config[k]
		if !ok || !reflect.DeepEqual(bv, v) {
			return false
		}
	}
	switch {
	case a.Watch == nil && b.Watch == nil:
		return true
	case a.Watch == nil || b.Watch == nil:
		return false
	}
	if a.Watch.DebounceMs != b.Watch.DebounceMs || len(a.Watch.Directories) != len(b.Watch.Directories) {
		return false
	}
	for i := range a.Watch.Directories {
		if a.Watch.Directories[i] != b.Watch.Directories[i] {
			return false
		}
	}
	return true
}
