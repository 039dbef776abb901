package session

import (
	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/waveform"
)

// SelectedVariable is one variable the UI has added to its display list
// (spec.md §3 "SelectedVariable"). Unresolved is set when the owning file
// is removed or fails to load — the selection is kept, not dropped, so it
// reattaches automatically if the file reappears (spec.md §4.4 "unresolved
// selected variables persist through file removal/reappearance").
type SelectedVariable struct {
	VariableID   string
	Formatter    sigval.FormatterKind
	DisplayOrder int
	Unresolved   bool
}

// FileView is SessionState's view of one tracked file: enough to answer
// Snapshot queries without reaching back into the WaveformStore on every
// mutation.
type FileView struct {
	Path      string
	State     waveform.LoadState
	Stage     string
	ErrorKind string
	ErrorMsg  string
	Span      timeng.Span
	Unit      timeng.Unit
	SmartLabel string
}

// data is the mutable state a single Session goroutine owns exclusively
// (spec.md §5 "single-owner goroutine"). Every field here is read and
// written only from within Session.run.
type data struct {
	files             map[string]*FileView // keyed by canonical path, insertion order tracked in fileOrder
	fileOrder         []string
	selectedScope     string
	hasSelectedScope  bool
	selectedVariables []SelectedVariable
	cursorNs          timeng.Ns
	zoomCenterNs      timeng.Ns
	viewportStartNs   timeng.Ns
	viewportEndNs     timeng.Ns
	theme             string
	dockMode          string
	filterText        string
}

func newData() *data {
	return &data{
		files:    make(map[string]*FileView),
		theme:    "dark",
		dockMode: "bottom",
	}
}

// variableIndex returns the slice index of variableID within
// selectedVariables, or -1.
func (d *data) variableIndex(variableID string) int {
	for i, v := range d.selectedVariables {
		if v.VariableID == variableID {
			return i
		}
	}
	return -1
}

// maxTimelineSpan is the union of every loaded file's span, used to bound
// the UI's zoomed-out "show everything" viewport (spec.md §3
// "max_timeline_start_ns"/"max_timeline_end_ns").
func (d *data) maxTimelineSpan() timeng.Span {
	var span timeng.Span
	first := true
	for _, f := range d.files {
		if f.State != waveform.StateLoaded {
			continue
		}
		if first {
			span = f.Span
			first = false
			continue
		}
		if f.Span.Start < span.Start {
			span.Start = f.Span.Start
		}
		if f.Span.End > span.End {
			span.End = f.Span.End
		}
	}
	return span
}
