package statustui

import (
	"testing"

	"github.com/novywave/engine/internal/wire"
)

func newTestModel() Model {
	return Model{
		files:   make(map[string]*fileRow),
		plugins: make(map[string]*pluginRow),
	}
}

func TestApplyFileLifecycle(t *testing.T) {
	m := newTestModel()

	m.apply(wire.Response{Type: wire.RespFileLoading, Path: "/a.vcd", Stage: "header"})
	if len(m.fileOrder) != 1 || m.files["/a.vcd"].status != "warning" {
		t.Fatalf("expected one warning row, got %+v", m.files["/a.vcd"])
	}

	m.apply(wire.Response{Type: wire.RespFileLoaded, Path: "/a.vcd", UnitHint: "ns"})
	row := m.files["/a.vcd"]
	if row.status != "ok" || row.unitHint != "ns" {
		t.Fatalf("expected ok row with unit hint, got %+v", row)
	}

	m.apply(wire.Response{Type: wire.RespFileFailed, Path: "/b.vcd", ErrorKind: wire.ErrParseError, Message: "bad header"})
	if len(m.fileOrder) != 2 {
		t.Fatalf("expected two tracked files, got %d", len(m.fileOrder))
	}
	if m.files["/b.vcd"].status != "error" || m.files["/b.vcd"].errorKind != wire.ErrParseError {
		t.Fatalf("expected error row, got %+v", m.files["/b.vcd"])
	}
}

func TestApplyPluginStatus(t *testing.T) {
	m := newTestModel()

	m.apply(wire.Response{Type: wire.RespPluginStatus, PluginID: "disc", PluginState: "Loading"})
	if m.plugins["disc"].state != "Loading" {
		t.Fatalf("expected Loading state, got %+v", m.plugins["disc"])
	}

	m.apply(wire.Response{Type: wire.RespPluginStatus, PluginID: "disc", PluginState: "Error", Message: "boom"})
	row := m.plugins["disc"]
	if row.state != "Error" || row.message != "boom" {
		t.Fatalf("expected Error state with message, got %+v", row)
	}
	if len(m.pluginOrder) != 1 {
		t.Fatalf("expected a single plugin row, got %d", len(m.pluginOrder))
	}
}

func TestSyncFilesFromSnapshotDropsUnloadedFiles(t *testing.T) {
	m := newTestModel()
	m.apply(wire.Response{Type: wire.RespFileLoaded, Path: "/a.vcd", UnitHint: "ns"})
	m.apply(wire.Response{Type: wire.RespFileLoaded, Path: "/b.vcd", UnitHint: "ns"})

	snap := &wire.Snapshot{Files: []wire.TrackedFileJSON{{Path: "/a.vcd", State: "loaded"}}}
	m.apply(wire.Response{Type: wire.RespSnapshot, Snapshot: snap})

	if len(m.fileOrder) != 1 || m.fileOrder[0] != "/a.vcd" {
		t.Fatalf("expected only /a.vcd to remain, got %v", m.fileOrder)
	}
	if _, ok := m.files["/b.vcd"]; ok {
		t.Fatalf("expected /b.vcd to be dropped after snapshot sync")
	}
}

func TestGaugeClampsToWidth(t *testing.T) {
	if got := gauge(10, 8, 20); got == "" {
		t.Fatalf("expected non-empty gauge even when active exceeds capacity")
	}
	if got := gauge(0, 0, 20); len([]rune(got)) != 20 {
		t.Fatalf("expected empty-capacity gauge to still render full width, got %q", got)
	}
}
