package waveform

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
)

// fakeAdapter is a minimal in-memory ParserAdapter for Store tests, avoiding
// any dependency on vcdtext's file-format details.
type fakeAdapter struct {
	header HeaderResult
	body   BodyResult
	delay  time.Duration
}

func (a *fakeAdapter) Extensions() []string { return []string{".fake"} }

func (a *fakeAdapter) ParseHeader(ctx context.Context, path string) (HeaderResult, error) {
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	return a.header, nil
}

func (a *fakeAdapter) ParseBody(ctx context.Context, path string, header HeaderResult) (BodyResult, error) {
	return a.body, nil
}

func writeTempFile(t *testing.T, ext string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "wave"+ext)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestStore(adapters ...ParserAdapter) *Store {
	log := logrus.NewEntry(logrus.New())
	return NewStore(log, 2, adapters...)
}

func TestLoadPublishesHeaderLoadedEvent(t *testing.T) {
	path := writeTempFile(t, ".fake")
	adapter := &fakeAdapter{header: HeaderResult{
		Root: &Scope{ID: "top", Name: "top"},
		Span: timeng.Span{Start: 0, End: 100},
		Unit: timeng.UnitNs,
	}}
	s := newTestStore(adapter)

	canonical, already, err := s.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if already {
		t.Fatal("first Load should not report already-tracked")
	}

	select {
	case ev := <-s.Events():
		if ev.Kind != EventHeaderLoaded || ev.Path != canonical {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for header-loaded event")
	}

	scope, err := s.Hierarchy(canonical)
	if err != nil {
		t.Fatalf("Hierarchy: %v", err)
	}
	if scope.ID != "top" {
		t.Errorf("got scope %q, want top", scope.ID)
	}
}

func TestLoadIsIdempotentByCanonicalPath(t *testing.T) {
	path := writeTempFile(t, ".fake")
	adapter := &fakeAdapter{header: HeaderResult{Root: &Scope{ID: "top"}, Unit: timeng.UnitNs}}
	s := newTestStore(adapter)

	c1, _, err := s.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	<-s.Events()

	c2, already, err := s.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !already {
		t.Error("second Load of the same path should report already-tracked")
	}
	if c1 != c2 {
		t.Errorf("canonical paths differ: %q vs %q", c1, c2)
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	path := writeTempFile(t, ".weird")
	s := newTestStore(&fakeAdapter{})
	_, _, err := s.Load(context.Background(), path)
	if err != ErrUnsupportedFormat {
		t.Fatalf("got %v, want ErrUnsupportedFormat", err)
	}
}

func TestStreamTransitionsTriggersLazyBodyParse(t *testing.T) {
	path := writeTempFile(t, ".fake")
	adapter := &fakeAdapter{
		header: HeaderResult{Root: &Scope{ID: "top"}, Span: timeng.Span{Start: 0, End: 100}, Unit: timeng.UnitNs},
		body: BodyResult{Transitions: map[string][]sigval.Transition{
			"top.v": {
				{TimeNs: 10, Value: sigval.NewBits(1, []byte{1})},
				{TimeNs: 50, Value: sigval.NewBits(1, []byte{0})},
			},
		}},
	}
	s := newTestStore(adapter)
	canonical, _, err := s.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	<-s.Events()

	prior, trs, err := s.StreamTransitions(context.Background(), canonical, "top.v", 20, 100)
	if err != nil {
		t.Fatalf("StreamTransitions: %v", err)
	}
	if sigval.Compare(prior, sigval.NewBits(1, []byte{1})) != 0 {
		t.Errorf("expected prior value carried forward from t=10")
	}
	if len(trs) != 1 || trs[0].TimeNs != 50 {
		t.Errorf("got %+v, want single transition at t=50", trs)
	}

	select {
	case ev := <-s.Events():
		if ev.Kind != EventBodyLoaded {
			t.Fatalf("expected EventBodyLoaded, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for body-loaded event")
	}
}

func TestUnloadRemovesTracking(t *testing.T) {
	path := writeTempFile(t, ".fake")
	adapter := &fakeAdapter{header: HeaderResult{Root: &Scope{ID: "top"}, Unit: timeng.UnitNs}}
	s := newTestStore(adapter)
	canonical, _, _ := s.Load(context.Background(), path)
	<-s.Events()

	if err := s.Unload(canonical); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if _, err := s.Hierarchy(canonical); err != ErrNotTracked {
		t.Errorf("expected ErrNotTracked after Unload, got %v", err)
	}
}
