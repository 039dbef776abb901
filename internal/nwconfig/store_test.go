package nwconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry { return logrus.NewEntry(logrus.New()) }

func TestNewStoreDefaultsWhenNoFileExists(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(filepath.Join(dir, "global"))
	defer SetConfigDir("")

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.IsProjectScoped() {
		t.Error("expected global scope when no .novywave exists")
	}
	if s.Snapshot().Plugins.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("expected default schema version %d", CurrentSchemaVersion)
	}
}

func TestProjectConfigWinsOverGlobal(t *testing.T) {
	projectDir := t.TempDir()
	globalDir := filepath.Join(t.TempDir(), "global")
	SetConfigDir(globalDir)
	defer SetConfigDir("")

	projectPath := filepath.Join(projectDir, ".novywave")
	if err := os.WriteFile(projectPath, []byte("[workspace]\npath = \"/tmp/proj\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(testLog(), projectDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if !s.IsProjectScoped() {
		t.Error("expected project scope when .novywave exists")
	}
	if s.Path() != projectPath {
		t.Errorf("got path %q, want %q", s.Path(), projectPath)
	}
	if s.Snapshot().Workspace.Path != "/tmp/proj" {
		t.Errorf("got workspace path %q", s.Snapshot().Workspace.Path)
	}
}

func TestCorruptConfigFallsBackWithoutOverwriting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".novywave")
	original := "this is not valid toml [[["
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if ce := s.TakeCorruptError(); ce == nil {
		t.Fatal("expected a CorruptError for malformed TOML")
	}
	if ce := s.TakeCorruptError(); ce != nil {
		t.Error("TakeCorruptError should only surface the error once")
	}

	s.Mutate(ClassImmediate, func(d *Document) { d.Workspace.Path = "/should/not/persist" })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != original {
		t.Error("corrupt config file must not be overwritten by an in-memory default mutation")
	}
}

func TestUnknownTopLevelSectionsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".novywave")
	original := "[workspace]\npath = \"/tmp/x\"\n\n[future_feature]\nsome_key = \"some_value\"\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Mutate(ClassImmediate, func(d *Document) { d.Workspace.Path = "/tmp/y" })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !contains(string(data), "future_feature") {
		t.Errorf("expected unknown section to survive round-trip, got:\n%s", data)
	}
	if !contains(string(data), "/tmp/y") {
		t.Errorf("expected mutated workspace path to persist, got:\n%s", data)
	}
}

func TestDebouncedSaveDelaysWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".novywave")
	if err := os.WriteFile(path, []byte{}, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Path() != path {
		t.Fatalf("got path %q, want %q", s.Path(), path)
	}

	before, _ := os.ReadFile(path)
	s.Mutate(ClassPanelResize, func(d *Document) { d.Panels.RightMode.Width = 300 })

	immediately, _ := os.ReadFile(path)
	if string(immediately) != string(before) {
		t.Error("panel-resize mutation should not write immediately")
	}

	time.Sleep(700 * time.Millisecond)
	after, _ := os.ReadFile(path)
	if string(after) == string(before) {
		t.Error("panel-resize mutation should have been written after its debounce window")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
