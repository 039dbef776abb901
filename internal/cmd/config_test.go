package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/novywave/engine/internal/nwconfig"
)

// withTempWorkdir chdirs into a fresh temp directory (with its own isolated
// global config dir) for the duration of the test, restoring both on
// cleanup — openConfigStore resolves against os.Getwd(), same as a real CLI
// invocation would.
func withTempWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	nwconfig.SetConfigDir(filepath.Join(dir, "global"))
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(orig)
		nwconfig.SetConfigDir("")
	})
	return dir
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	withTempWorkdir(t)

	root := NewRootCmd()
	root.SetArgs([]string{"config", "set", "workspace.theme", "dark"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config set: %v", err)
	}

	root = NewRootCmd()
	out := &captureWriter{}
	root.SetOut(out)
	root.SetArgs([]string{"config", "get", "workspace.theme"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config get: %v", err)
	}
	if got := out.String(); got != "dark\n" {
		t.Errorf("got %q, want %q", got, "dark\n")
	}
}

func TestConfigSetUnknownKeyFails(t *testing.T) {
	withTempWorkdir(t)

	root := NewRootCmd()
	root.SetArgs([]string{"config", "set", "bogus.key", "x"})
	root.SetOut(&captureWriter{})
	root.SetErr(&captureWriter{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
}

type captureWriter struct {
	buf []byte
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *captureWriter) String() string { return string(w.buf) }
