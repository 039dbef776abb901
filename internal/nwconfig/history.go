package nwconfig

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// maxRecentPaths caps WorkspaceHistory.RecentPaths (spec.md §4.9
// "capped at three"), the same cap-on-write idiom as the teacher's
// internal/repl/history.go (there, maxSize 500 on command history).
const maxRecentPaths = 3

// historyDebounce is spec.md §4.9's "writes are debounced 500 ms".
const historyDebounce = 500 * time.Millisecond

// TreeState is one workspace path's remembered file-picker tree state.
type TreeState struct {
	ScrollTop     int      `toml:"scroll_top"`
	ExpandedPaths []string `toml:"expanded_paths,omitempty"`
}

// historyDoc is the on-disk shape of `.novywave_global`: the workspace
// history fields last_selected, recent_paths and tree_state as top-level
// keys (no enclosing table header), distinct from the per-project
// `.novywave` document.
type historyDoc struct {
	LastSelected string               `toml:"last_selected,omitempty"`
	RecentPaths  []string             `toml:"recent_paths,omitempty"`
	TreeState    map[string]TreeState `toml:"tree_state,omitempty"`
}

// History is the WorkspaceHistory of spec.md §4.9: a global, per-workspace
// recent-paths list plus per-path tree state, persisted separately from any
// `.novywave` so opening a project never pollutes its config.
type History struct {
	log  *logrus.Entry
	path string

	mu    sync.Mutex
	doc   historyDoc
	timer *time.Timer
}

// NewHistory loads (or initializes) the global workspace history file.
func NewHistory(log *logrus.Entry) *History {
	h := &History{log: log, path: GlobalHistoryPath()}
	h.load()
	return h
}

func (h *History) load() {
	data, err := os.ReadFile(h.path)
	if err != nil {
		h.doc = historyDoc{TreeState: make(map[string]TreeState)}
		return
	}
	var d historyDoc
	if err := toml.Unmarshal(data, &d); err != nil {
		h.log.WithError(err).WithField("path", h.path).Warn("nwconfig: corrupt workspace history, resetting")
		d = historyDoc{}
	}
	if d.TreeState == nil {
		d.TreeState = make(map[string]TreeState)
	}
	h.doc = d
}

// Touch records workspace as the most recently opened, moving it to the
// front of RecentPaths (deduplicated) and capping the list at
// maxRecentPaths, then schedules a debounced save.
func (h *History) Touch(workspace string) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	h.mu.Lock()
	h.doc.LastSelected = abs
	h.doc.RecentPaths = prependDedup(h.doc.RecentPaths, abs, maxRecentPaths)
	h.mu.Unlock()
	h.scheduleSave()
}

// SetTreeState records scroll/expansion state for workspace's file-picker
// tree.
func (h *History) SetTreeState(workspace string, state TreeState) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	h.mu.Lock()
	if h.doc.TreeState == nil {
		h.doc.TreeState = make(map[string]TreeState)
	}
	h.doc.TreeState[abs] = state
	h.mu.Unlock()
	h.scheduleSave()
}

// Snapshot returns the current last-selected path, recent paths
// (most-recent-first), and a copy of every recorded tree state keyed by
// absolute workspace path.
func (h *History) Snapshot() (lastSelected string, recentPaths []string, treeState map[string]TreeState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	recentPaths = append([]string(nil), h.doc.RecentPaths...)
	treeState = make(map[string]TreeState, len(h.doc.TreeState))
	for k, v := range h.doc.TreeState {
		treeState[k] = v
	}
	return h.doc.LastSelected, recentPaths, treeState
}

func (h *History) scheduleSave() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(historyDebounce, h.save)
	h.mu.Unlock()
}

func (h *History) save() {
	h.mu.Lock()
	doc := h.doc
	path := h.path
	h.mu.Unlock()

	data, err := toml.Marshal(doc)
	if err != nil {
		h.log.WithError(err).Error("nwconfig: marshaling workspace history")
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.log.WithError(err).Error("nwconfig: creating config directory")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.log.WithError(err).WithField("path", path).Error("nwconfig: writing workspace history")
	}
}

// Close flushes any pending debounced save synchronously.
func (h *History) Close() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()
	h.save()
}

// prependDedup moves v to the front of list (removing any existing
// occurrence), then truncates to cap entries.
func prependDedup(list []string, v string, cap int) []string {
	out := make([]string, 0, cap)
	out = append(out, v)
	for _, p := range list {
		if p == v {
			continue
		}
		out = append(out, p)
	}
	if len(out) > cap {
		out = out[:cap]
	}
	return out
}
