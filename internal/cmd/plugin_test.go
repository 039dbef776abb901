package cmd

import (
	"strings"
	"testing"

	"github.com/novywave/engine/internal/nwconfig"
)

func seedOnePlugin(t *testing.T) {
	t.Helper()
	store, err := openConfigStore()
	if err != nil {
		t.Fatal(err)
	}
	store.Mutate(nwconfig.ClassImmediate, func(doc *nwconfig.Document) {
		doc.Plugins.Entries = map[string]nwconfig.PluginEntry{
			"disc": {Enabled: false, ArtifactPath: "/nonexistent/disc.wasm"},
		}
	})
	store.Close()
}

func TestPluginListShowsDeclaredEntries(t *testing.T) {
	withTempWorkdir(t)
	seedOnePlugin(t)

	root := NewRootCmd()
	out := &captureWriter{}
	root.SetOut(out)
	root.SetArgs([]string{"plugin", "list"})
	if err := root.Execute(); err != nil {
		t.Fatalf("plugin list: %v", err)
	}
	if !strings.Contains(out.String(), "disc") {
		t.Errorf("expected listing to mention 'disc', got %q", out.String())
	}
}

func TestPluginEnableTogglesEntry(t *testing.T) {
	withTempWorkdir(t)
	seedOnePlugin(t)

	root := NewRootCmd()
	root.SetOut(&captureWriter{})
	root.SetArgs([]string{"plugin", "enable", "disc"})
	if err := root.Execute(); err != nil {
		t.Fatalf("plugin enable: %v", err)
	}

	store, err := openConfigStore()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if !store.Snapshot().Plugins.Entries["disc"].Enabled {
		t.Error("expected disc to be enabled after plugin enable")
	}
}

func TestPluginEnableUnknownIDFails(t *testing.T) {
	withTempWorkdir(t)

	root := NewRootCmd()
	root.SetOut(&captureWriter{})
	root.SetErr(&captureWriter{})
	root.SetArgs([]string{"plugin", "enable", "missing"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error enabling an undeclared plugin id")
	}
}
