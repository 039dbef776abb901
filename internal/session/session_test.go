package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/waveform"
)

type stubAdapter struct{}

func (stubAdapter) Extensions() []string { return []string{".stub"} }
func (stubAdapter) ParseHeader(ctx context.Context, path string) (waveform.HeaderResult, error) {
	return waveform.HeaderResult{
		Root: &waveform.Scope{ID: "top", Name: "top", Variables: []waveform.Variable{{ID: "top.sig", Name: "sig", Width: 1}}},
		Span: timeng.Span{Start: 0, End: 100},
		Unit: timeng.UnitNs,
	}, nil
}
func (stubAdapter) ParseBody(ctx context.Context, path string, header waveform.HeaderResult) (waveform.BodyResult, error) {
	return waveform.BodyResult{Transitions: map[string][]sigval.Transition{}}, nil
}

func newTestSession(t *testing.T) (*Session, *waveform.Store, string) {
	t.Helper()
	store := waveform.NewStore(logrus.NewEntry(logrus.New()), 2, stubAdapter{})
	sess := New(nil, nil, store)
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.stub")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return sess, store, path
}

func drainOneEvent(t *testing.T, store *waveform.Store) waveform.Event {
	t.Helper()
	select {
	case ev := <-store.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for store event")
		return waveform.Event{}
	}
}

func TestLoadFileThenHeaderEventResolvesSnapshot(t *testing.T) {
	sess, store, path := newTestSession(t)
	defer sess.Close()

	sess.LoadFile(context.Background(), path)
	ev := drainOneEvent(t, store)
	if ev.Kind != waveform.EventHeaderLoaded {
		t.Fatalf("expected header-loaded event, got %+v", ev)
	}
	sess.NotifyFileEvent(ev)

	canonical := ev.Path
	sess.AddVariable(canonical, "top.sig")

	snap := <-sess.Snapshots()
	if len(snap.Files) != 1 || snap.Files[0].State != "loaded" {
		t.Fatalf("expected one loaded file, got %+v", snap.Files)
	}
	if len(snap.SelectedVariables) != 1 || snap.SelectedVariables[0].Unresolved {
		t.Fatalf("expected one resolved variable, got %+v", snap.SelectedVariables)
	}
}

func TestUnloadFileMarksVariableUnresolved(t *testing.T) {
	sess, store, path := newTestSession(t)
	defer sess.Close()

	sess.LoadFile(context.Background(), path)
	ev := drainOneEvent(t, store)
	sess.NotifyFileEvent(ev)
	sess.AddVariable(ev.Path, "top.sig")
	<-sess.Snapshots()

	sess.UnloadFile(ev.Path)
	snap := <-sess.Snapshots()
	if len(snap.Files) != 0 {
		t.Errorf("expected file list empty after unload, got %+v", snap.Files)
	}
	if len(snap.SelectedVariables) != 1 || !snap.SelectedVariables[0].Unresolved {
		t.Fatalf("expected variable to remain but become unresolved, got %+v", snap.SelectedVariables)
	}
}

func TestSetFormatterUpdatesSnapshot(t *testing.T) {
	sess, store, path := newTestSession(t)
	defer sess.Close()

	sess.LoadFile(context.Background(), path)
	ev := drainOneEvent(t, store)
	sess.NotifyFileEvent(ev)
	sess.AddVariable(ev.Path, "top.sig")
	snap := <-sess.Snapshots()
	id := snap.SelectedVariables[0].VariableID

	sess.SetFormatter(id, sigval.FormatBin)
	snap = <-sess.Snapshots()
	if snap.SelectedVariables[0].Formatter != "Bin" {
		t.Errorf("got formatter %q, want Bin", snap.SelectedVariables[0].Formatter)
	}
}
