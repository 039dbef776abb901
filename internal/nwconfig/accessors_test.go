package nwconfig

import (
	"path/filepath"
	"testing"
)

func TestGetSetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(filepath.Join(dir, "global"))
	defer SetConfigDir("")

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := s.Set("workspace.theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("workspace.theme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "dark" {
		t.Errorf("got %q, want %q", got, "dark")
	}
}

func TestSetRejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(filepath.Join(dir, "global"))
	defer SetConfigDir("")

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Set("nonsense.key", "x"); err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
}

func TestSetRejectsUnparseableUint(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(filepath.Join(dir, "global"))
	defer SetConfigDir("")

	s, err := NewStore(testLog(), dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Set("timeline.cursor_ns", "not-a-number"); err == nil {
		t.Fatal("expected a parse error for a non-numeric timeline value")
	}
}

func TestKeysListsEveryValidKey(t *testing.T) {
	keys := Keys()
	if len(keys) != len(validConfigKeys) {
		t.Fatalf("got %d keys, want %d", len(keys), len(validConfigKeys))
	}
}
