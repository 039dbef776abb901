package plugin

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/watchset"
	"github.com/novywave/engine/internal/wire"
)

func newTestHost(t *testing.T) *PluginHost {
	t.Helper()
	w, err := watchset.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return New(logrus.NewEntry(logrus.New()), w, nil)
}

func TestUpdatePluginMissingArtifactReachesErrorState(t *testing.T) {
	watchdogDeadline = 50 * time.Millisecond
	initialBackoff = 20 * time.Millisecond
	defer func() {
		watchdogDeadline = 5 * time.Second
		initialBackoff = 500 * time.Millisecond
	}()

	host := newTestHost(t)
	defer host.Close()

	err := host.UpdatePlugin(wire.PluginEntry{ID: "disc", Enabled: true, ArtifactPath: "/nonexistent/disc.wasm"})
	if err != nil {
		t.Fatalf("UpdatePlugin returned error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	var sawLoading, sawError bool
	for !sawError {
		select {
		case resp := <-host.StatusUpdates():
			if resp.PluginID != "disc" {
				continue
			}
			switch resp.PluginState {
			case string(StateLoading):
				sawLoading = true
			case string(StateError):
				sawError = true
				if resp.ErrorKind != wire.ErrPluginError {
					t.Errorf("expected ErrPluginError, got %s", resp.ErrorKind)
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for Error state (sawLoading=%v)", sawLoading)
		}
	}
	if !sawLoading {
		t.Errorf("expected a Loading status before Error")
	}
}

func TestUpdatePluginDisabledEntryNeverStarts(t *testing.T) {
	host := newTestHost(t)
	defer host.Close()

	if err := host.UpdatePlugin(wire.PluginEntry{ID: "disc", Enabled: false, ArtifactPath: "/nonexistent/disc.wasm"}); err != nil {
		t.Fatalf("UpdatePlugin returned error: %v", err)
	}

	select {
	case resp := <-host.StatusUpdates():
		t.Errorf("expected no status push for a disabled plugin, got %+v", resp)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpdatePluginRejectsMissingID(t *testing.T) {
	host := newTestHost(t)
	defer host.Close()

	if err := host.UpdatePlugin(wire.PluginEntry{Enabled: true, ArtifactPath: "/x"}); err == nil {
		t.Errorf("expected an error for a plugin entry with no id")
	}
}
