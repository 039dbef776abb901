// Package session implements the SessionState of spec.md §4.4: the single
// piece of mutable UI-facing state (selected scope/variables, cursor, zoom,
// viewport, theme, dock layout, per-file load status), owned exclusively by
// one goroutine and driving both snapshot publication and debounced
// ConfigStore persistence on every mutation.
//
// The actor shape — one goroutine draining a command channel, nothing else
// ever touching its state directly — is the teacher's
// internal/repl/session.go concurrency idiom (a dedicated reader goroutine
// plus channel-based dispatch) generalized from request/response RPC
// correlation to a simpler fire-and-forget mutation queue, since
// SessionState has no external process to wait on.
package session

import (
	"context"

	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/waveform"
	"github.com/novywave/engine/internal/wire"
)

// Session owns SessionState and publishes a wire.Snapshot after every
// mutation.
type Session struct {
	cfg     *nwconfig.Store
	history *nwconfig.History
	store   *waveform.Store

	cmds      chan func(*data)
	snapshots chan wire.Snapshot
	done      chan struct{}
}

// New starts the session actor. cfg and history may be nil in tests that
// don't need persistence.
func New(cfg *nwconfig.Store, history *nwconfig.History, store *waveform.Store) *Session {
	s := &Session{
		cfg:       cfg,
		history:   history,
		store:     store,
		cmds:      make(chan func(*data), 64),
		snapshots: make(chan wire.Snapshot, 1),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Snapshots returns the channel of published snapshots. Unlike the
// teacher's pushCh (which drops a *new* update when the consumer lags),
// this channel keeps only the *latest* snapshot — a stale intermediate
// state is never useful once a newer one exists, so publish evicts the old
// value instead of dropping the new one (DESIGN.md "Per-module
// implementation notes").
func (s *Session) Snapshots() <-chan wire.Snapshot { return s.snapshots }

// Close stops the actor goroutine.
func (s *Session) Close() {
	close(s.cmds)
	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	d := newData()
	for fn := range s.cmds {
		fn(d)
		s.publish(d)
	}
}

func (s *Session) publish(d *data) {
	recomputeSmartLabels(d)
	snap := buildSnapshot(d)
	select {
	case s.snapshots <- snap:
	default:
		select {
		case <-s.snapshots:
		default:
		}
		s.snapshots <- snap
	}
}

func (s *Session) enqueue(fn func(*data)) {
	s.cmds <- fn
}

// LoadFile begins tracking path via the WaveformStore and adds a Loading
// placeholder to the file list; NotifyFileEvent refines it once the
// background header parse completes.
func (s *Session) LoadFile(ctx context.Context, path string) {
	canonical, alreadyTracked, err := s.store.Load(ctx, path)
	if s.history != nil {
		s.history.Touch(path)
	}
	s.enqueue(func(d *data) {
		if err != nil {
			return
		}
		if _, exists := d.files[canonical]; exists || alreadyTracked {
			return
		}
		d.files[canonical] = &FileView{Path: canonical, State: waveform.StateLoadingHeader, Stage: waveform.StageHeader}
		d.fileOrder = append(d.fileOrder, canonical)
	})
}

// UnloadFile removes path from both the WaveformStore and the file list.
// Selected variables belonging to it become Unresolved rather than being
// dropped (spec.md §4.4).
func (s *Session) UnloadFile(path string) {
	_ = s.store.Unload(path)
	s.enqueue(func(d *data) {
		delete(d.files, path)
		for i := range d.fileOrder {
			if d.fileOrder[i] == path {
				d.fileOrder = append(d.fileOrder[:i], d.fileOrder[i+1:]...)
				break
			}
		}
		for i := range d.selectedVariables {
			fp, _ := SplitVariableID(d.selectedVariables[i].VariableID)
			if fp == path {
				d.selectedVariables[i].Unresolved = true
			}
		}
	})
}

// NotifyFileEvent refreshes a FileView after a waveform.Store background
// parse completes, and reconciles Unresolved selected variables.
func (s *Session) NotifyFileEvent(ev waveform.Event) {
	s.enqueue(func(d *data) {
		fv, ok := d.files[ev.Path]
		if !ok {
			return
		}
		switch ev.Kind {
		case waveform.EventHeaderLoaded:
			span, unit, err := s.store.Span(ev.Path)
			if err == nil {
				fv.Span, fv.Unit = span, unit
			}
			fv.State = waveform.StateLoaded
			fv.Stage = ""
			for i := range d.selectedVariables {
				fp, _ := SplitVariableID(d.selectedVariables[i].VariableID)
				if fp == ev.Path {
					d.selectedVariables[i].Unresolved = false
				}
			}
		case waveform.EventBodyLoaded:
			fv.State = waveform.StateLoaded
			fv.Stage = ""
		case waveform.EventFailed:
			fv.State = waveform.StateFailed
			fv.ErrorKind = ev.ErrorKind
			fv.ErrorMsg = ev.Message
			for i := range d.selectedVariables {
				fp, _ := SplitVariableID(d.selectedVariables[i].VariableID)
				if fp == ev.Path {
					d.selectedVariables[i].Unresolved = true
				}
			}
		}
	})
}

// SelectScope sets the current hierarchy selection (spec.md §6.1
// SelectScope), persisted immediately per the §4.6 change-class table.
func (s *Session) SelectScope(scopeID string) {
	s.enqueue(func(d *data) {
		d.selectedScope = scopeID
		d.hasSelectedScope = true
		s.persist(nwconfig.ClassImmediate, func(doc *nwconfig.Document) {
			doc.Scope.SelectedScopeID = scopeID
		})
	})
}

// AddVariable appends filePath's fileLocalVariableID to the selection,
// deduplicating by the joined global id.
func (s *Session) AddVariable(filePath, fileLocalVariableID string) {
	s.enqueue(func(d *data) {
		id := JoinVariableID(filePath, fileLocalVariableID)
		if d.variableIndex(id) >= 0 {
			return
		}
		fv, unresolved := d.files[filePath], true
		if fv != nil && fv.State == waveform.StateLoaded {
			unresolved = false
		}
		d.selectedVariables = append(d.selectedVariables, SelectedVariable{
			VariableID:   id,
			Formatter:    sigval.FormatHex,
			DisplayOrder: len(d.selectedVariables),
			Unresolved:   unresolved,
		})
		s.persistVariables(d)
	})
}

// RemoveVariable drops variableID from the selection entirely.
func (s *Session) RemoveVariable(variableID string) {
	s.enqueue(func(d *data) {
		i := d.variableIndex(variableID)
		if i < 0 {
			return
		}
		d.selectedVariables = append(d.selectedVariables[:i], d.selectedVariables[i+1:]...)
		for j := i; j < len(d.selectedVariables); j++ {
			d.selectedVariables[j].DisplayOrder = j
		}
		s.persistVariables(d)
	})
}

// SetFormatter changes variableID's rendering mode, persisted immediately.
func (s *Session) SetFormatter(variableID string, f sigval.FormatterKind) {
	s.enqueue(func(d *data) {
		i := d.variableIndex(variableID)
		if i < 0 {
			return
		}
		d.selectedVariables[i].Formatter = f
		s.persistVariables(d)
	})
}

func (s *Session) persistVariables(d *data) {
	s.persist(nwconfig.ClassImmediate, func(doc *nwconfig.Document) {
		entries := make([]nwconfig.VariableEntry, len(d.selectedVariables))
		for i, v := range d.selectedVariables {
			order := v.DisplayOrder
			entries[i] = nwconfig.VariableEntry{
				VariableID:   v.VariableID,
				Formatter:    formatterName(v.Formatter),
				DisplayOrder: &order,
			}
		}
		doc.Variables = entries
	})
}

// SetViewport updates the visible time range, debounced like cursor/zoom
// (spec.md §4.6 "Cursor / zoom | 1000 ms").
func (s *Session) SetViewport(start, end timeng.Ns) {
	s.enqueue(func(d *data) {
		d.viewportStartNs, d.viewportEndNs = start, end
		s.persist(nwconfig.ClassCursorZoom, func(doc *nwconfig.Document) {
			doc.Timeline.ViewportStartNs, doc.Timeline.ViewportEndNs = uint64(start), uint64(end)
		})
	})
}

// SetCursor moves the cursor time.
func (s *Session) SetCursor(t timeng.Ns) {
	s.enqueue(func(d *data) {
		d.cursorNs = t
		s.persist(nwconfig.ClassCursorZoom, func(doc *nwconfig.Document) {
			doc.Timeline.CursorNs = uint64(t)
		})
	})
}

// SetZoomCenter moves the zoom anchor time.
func (s *Session) SetZoomCenter(t timeng.Ns) {
	s.enqueue(func(d *data) {
		d.zoomCenterNs = t
		s.persist(nwconfig.ClassCursorZoom, func(doc *nwconfig.Document) {
			doc.Timeline.ZoomCenterNs = uint64(t)
		})
	})
}

// ToggleTheme flips light/dark, persisted immediately (spec.md §4.6
// "Theme / dock toggle | immediate").
func (s *Session) ToggleTheme() {
	s.enqueue(func(d *data) {
		if d.theme == "dark" {
			d.theme = "light"
		} else {
			d.theme = "dark"
		}
		theme := d.theme
		s.persist(nwconfig.ClassImmediate, func(doc *nwconfig.Document) {
			doc.Workspace.Theme = theme
		})
	})
}

// ToggleDock flips the primary panel's dock side, persisted immediately.
func (s *Session) ToggleDock() {
	s.enqueue(func(d *data) {
		if d.dockMode == "bottom" {
			d.dockMode = "right"
		} else {
			d.dockMode = "bottom"
		}
		dockMode := d.dockMode
		s.persist(nwconfig.ClassImmediate, func(doc *nwconfig.Document) {
			doc.Workspace.DockMode = dockMode
		})
	})
}

// ResizePanel updates a dockable panel's width/height, debounced 500ms
// (spec.md §4.6 "Panel resize | 500 ms after last event").
func (s *Session) ResizePanel(dockMode, field string, value int) {
	s.enqueue(func(d *data) {
		s.persist(nwconfig.ClassPanelResize, func(doc *nwconfig.Document) {
			target := &doc.Panels.BottomMode
			if dockMode == "right" {
				target = &doc.Panels.RightMode
			}
			switch field {
			case "width":
				target.Width = value
			case "height":
				target.Height = value
			}
			target.Dock = dockMode
		})
	})
}

// SetWorkspaceTreeState persists the file-picker's scroll/expansion state
// for workspace, debounced 500ms.
func (s *Session) SetWorkspaceTreeState(workspace string, scrollTop int, expanded []string) {
	if s.history != nil {
		s.history.SetTreeState(workspace, nwconfig.TreeState{ScrollTop: scrollTop, ExpandedPaths: expanded})
	}
}

func (s *Session) persist(class nwconfig.ChangeClass, fn func(*nwconfig.Document)) {
	if s.cfg == nil {
		return
	}
	s.cfg.Mutate(class, fn)
}

func formatterName(f sigval.FormatterKind) string {
	switch f {
	case sigval.FormatText:
		return wire.FormatterText
	case sigval.FormatBin:
		return wire.FormatterBin
	case sigval.FormatBinGroups:
		return wire.FormatterBinGroups
	case sigval.FormatOct:
		return wire.FormatterOct
	case sigval.FormatSignedInt:
		return wire.FormatterSignedInt
	case sigval.FormatUnsignedInt:
		return wire.FormatterUnsignedInt
	default:
		return wire.FormatterHex
	}
}
