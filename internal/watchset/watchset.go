// Package watchset is a shared fsnotify front end for directory-change
// notifications. Its one consumer is the PluginHost's watch.subscribe
// capability (spec.md §4.7); the WaveformStore does not use it, and tracked
// files are not reloaded automatically. Each caller gets an independent named subscription with
// its own debounce window, multiplexed onto one underlying *fsnotify.Watcher
// so N subscribers on overlapping directories cost one inotify watch each,
// not N. The debounce-timer-per-change idiom is grounded on
// other_examples/678aa4de_bennypowers-cem__generate-session.go.go's
// WatchSession.handleFileChange (cancel-and-restart an AfterFunc timer,
// flush the batch once it fires).
package watchset

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports that one or more paths changed within a subscription's
// watched directories, coalesced by that subscription's debounce window.
type Event struct {
	SubscriptionID string
	Paths          []string
}

// ErrAlreadySubscribed is returned by Subscribe when id is already in use.
var ErrAlreadySubscribed = errors.New("watchset: subscription id already in use")

// ErrNotSubscribed is returned by Unsubscribe for an unknown id.
var ErrNotSubscribed = errors.New("watchset: subscription id not found")

type subscription struct {
	id       string
	dirs     map[string]bool
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
}

// Watcher multiplexes one fsnotify.Watcher across many named subscriptions.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu      sync.Mutex
	subs    map[string]*subscription
	dirRefs map[string]int

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// New starts the underlying fsnotify watcher and its dispatch loop.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:     fsw,
		subs:    make(map[string]*subscription),
		dirRefs: make(map[string]int),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Events returns the channel of coalesced change notifications. The caller
// must keep draining it for the life of the Watcher.
func (w *Watcher) Events() <-chan Event { return w.events }

// Subscribe registers a new named watch over dirs, each change within any of
// them reported (after debounce) as one Event carrying every path that
// changed since the window opened.
func (w *Watcher) Subscribe(id string, dirs []string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.subs[id]; exists {
		return ErrAlreadySubscribed
	}

	dirSet := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		dirSet[abs] = true
		if w.dirRefs[abs] == 0 {
			if err := w.fsw.Add(abs); err != nil {
				continue
			}
		}
		w.dirRefs[abs]++
	}

	w.subs[id] = &subscription{id: id, dirs: dirSet, debounce: debounce, pending: make(map[string]bool)}
	return nil
}

// Unsubscribe removes a subscription, dropping the underlying fsnotify watch
// on any directory no other subscription still references.
func (w *Watcher) Unsubscribe(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	sub, ok := w.subs[id]
	if !ok {
		return ErrNotSubscribed
	}
	sub.mu.Lock()
	if sub.timer != nil {
		sub.timer.Stop()
	}
	sub.mu.Unlock()

	for d := range sub.dirs {
		w.dirRefs[d]--
		if w.dirRefs[d] <= 0 {
			delete(w.dirRefs, d)
			_ = w.fsw.Remove(d)
		}
	}
	delete(w.subs, id)
	return nil
}

// Close stops the dispatch loop and the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Errors surface as no-op drops; a watch that breaks stops
			// producing events rather than crashing the loop.
		}
	}
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	dir := filepath.Dir(ev.Name)

	w.mu.Lock()
	matches := make([]*subscription, 0, 1)
	for _, sub := range w.subs {
		if sub.dirs[dir] {
			matches = append(matches, sub)
		}
	}
	w.mu.Unlock()

	for _, sub := range matches {
		w.scheduleFlush(sub, ev.Name)
	}
}

func (w *Watcher) scheduleFlush(sub *subscription, path string) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.pending[path] = true
	if sub.timer != nil {
		sub.timer.Stop()
	}
	sub.timer = time.AfterFunc(sub.debounce, func() { w.flush(sub) })
}

func (w *Watcher) flush(sub *subscription) {
	sub.mu.Lock()
	paths := make([]string, 0, len(sub.pending))
	for p := range sub.pending {
		paths = append(paths, p)
	}
	sub.pending = make(map[string]bool)
	sub.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	select {
	case w.events <- Event{SubscriptionID: sub.id, Paths: paths}:
	case <-w.done:
	}
}
