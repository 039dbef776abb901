package watchset

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSubscribeReceivesDebouncedEvent(t *testing.T) {
	dir := t.TempDir()
	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Subscribe("sub-1", []string{dir}, 50*time.Millisecond); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	target := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(target, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A second write inside the debounce window should coalesce into the
	// same event rather than producing two.
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(target, []byte("ab"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.SubscriptionID != "sub-1" {
			t.Errorf("got subscription %q, want sub-1", ev.SubscriptionID)
		}
		if len(ev.Paths) == 0 {
			t.Error("expected at least one changed path")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}

func TestSubscribeDuplicateIDRejected(t *testing.T) {
	dir := t.TempDir()
	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Subscribe("dup", []string{dir}, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := w.Subscribe("dup", []string{dir}, 0); err != ErrAlreadySubscribed {
		t.Fatalf("got %v, want ErrAlreadySubscribed", err)
	}
}

func TestUnsubscribeUnknownIDErrors(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if err := w.Unsubscribe("nope"); err != ErrNotSubscribed {
		t.Fatalf("got %v, want ErrNotSubscribed", err)
	}
}
