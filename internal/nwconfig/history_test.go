package nwconfig

import (
	"path/filepath"
	"testing"
)

func TestHistoryCapsAtThreeMostRecentFirst(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(dir)
	defer SetConfigDir("")

	h := NewHistory(testLog())
	for _, p := range []string{"/a", "/b", "/c", "/d"} {
		h.Touch(p)
	}
	_, recent, _ := h.Snapshot()
	if len(recent) != maxRecentPaths {
		t.Fatalf("got %d recent paths, want %d", len(recent), maxRecentPaths)
	}
	if recent[0] != "/d" {
		t.Errorf("most recent should be first, got %q", recent[0])
	}
	for _, p := range recent {
		if p == "/a" {
			t.Error("/a should have been evicted once the cap was exceeded")
		}
	}
}

func TestHistoryTouchDeduplicates(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(dir)
	defer SetConfigDir("")

	h := NewHistory(testLog())
	h.Touch("/a")
	h.Touch("/b")
	h.Touch("/a")

	_, recent, _ := h.Snapshot()
	if len(recent) != 2 {
		t.Fatalf("got %d entries, want 2 after re-touching /a", len(recent))
	}
	if recent[0] != "/a" {
		t.Errorf("re-touched path should move to front, got %q", recent[0])
	}
}

func TestHistoryPersistsAcrossLoad(t *testing.T) {
	dir := t.TempDir()
	SetConfigDir(dir)
	defer SetConfigDir("")

	h := NewHistory(testLog())
	h.Touch("/workspace/one")
	h.SetTreeState("/workspace/one", TreeState{ScrollTop: 5, ExpandedPaths: []string{"top.scope"}})
	h.Close()

	path := filepath.Join(dir, ".novywave_global")
	h2 := NewHistory(testLog())
	if h2.path != path {
		t.Fatalf("unexpected history path %q", h2.path)
	}
	last, recent, tree := h2.Snapshot()
	if last != "/workspace/one" {
		t.Errorf("got last_selected %q", last)
	}
	if len(recent) != 1 || recent[0] != "/workspace/one" {
		t.Errorf("got recent paths %v", recent)
	}
	if ts, ok := tree["/workspace/one"]; !ok || ts.ScrollTop != 5 {
		t.Errorf("got tree state %+v", tree)
	}
}
