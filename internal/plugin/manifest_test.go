package plugin

import (
	"testing"

	"github.com/novywave/engine/internal/nwconfig"
)

func TestEqualManifestDetectsNoOp(t *testing.T) {
	a := Manifest{ID: "disc", Enabled: true, ArtifactPath: "/plugins/disc.wasm", Config: map[string]any{"x": float64(1)}}
	b := a
	b.Config = map[string]any{"x": float64(1)}
	if !equalManifest(a, b) {
		t.Errorf("expected identical manifests to be equal")
	}

	c := a
	c.Config = map[string]any{"x": float64(2)}
	if equalManifest(a, c) {
		t.Errorf("expected differing config to be unequal")
	}

	d := a
	d.Watch = &WatchSpec{Directories: []string{"/tmp"}, DebounceMs: 200}
	if equalManifest(a, d) {
		t.Errorf("expected nil vs non-nil Watch to be unequal")
	}
}

func TestGrantedDirectoriesCombinesWatchAndConfig(t *testing.T) {
	m := Manifest{
		Watch:  &WatchSpec{Directories: []string{"/data/traces"}},
		Config: map[string]any{"directories": []any{"/data/extra", 42}},
	}
	dirs := m.grantedDirectories()
	if len(dirs) != 2 || dirs[0] != "/data/traces" || dirs[1] != "/data/extra" {
		t.Errorf("expected [/data/traces /data/extra], got %v", dirs)
	}
}

func TestEntriesFromConfigRoundTrips(t *testing.T) {
	section := nwconfig.PluginsSection{
		Entries: map[string]nwconfig.PluginEntry{
			"disc": {
				Enabled:      true,
				ArtifactPath: "/plugins/disc.wasm",
				Watch:        &nwconfig.WatchEntry{Directories: []string{"/data"}, DebounceMs: 150},
			},
		},
	}
	entries := EntriesFromConfig(section)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != "disc" || !e.Enabled || e.ArtifactPath != "/plugins/disc.wasm" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Watch == nil || e.Watch.DebounceMs != 150 || len(e.Watch.Directories) != 1 {
		t.Errorf("unexpected watch: %+v", e.Watch)
	}
}
