package session

import (
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/wire"
)

func buildSnapshot(d *data) wire.Snapshot {
	files := make([]wire.TrackedFileJSON, 0, len(d.fileOrder))
	for _, path := range d.fileOrder {
		fv := d.files[path]
		if fv == nil {
			continue
		}
		files = append(files, wire.TrackedFileJSON{
			Path:       fv.Path,
			State:      fv.State.String(),
			Stage:      fv.Stage,
			ErrorKind:  fv.ErrorKind,
			ErrorMsg:   fv.ErrorMsg,
			StartNs:    fv.Span.Start,
			EndNs:      fv.Span.End,
			UnitHint:   unitName(fv.Unit),
			SmartLabel: fv.SmartLabel,
		})
	}

	vars := make([]wire.SelectedVarJSON, len(d.selectedVariables))
	for i, v := range d.selectedVariables {
		order := v.DisplayOrder
		vars[i] = wire.SelectedVarJSON{
			VariableID:   v.VariableID,
			Formatter:    formatterName(v.Formatter),
			DisplayOrder: &order,
			Unresolved:   v.Unresolved,
		}
	}

	var selectedScope *string
	if d.hasSelectedScope {
		s := d.selectedScope
		selectedScope = &s
	}

	maxSpan := d.maxTimelineSpan()
	return wire.Snapshot{
		Files:             files,
		SelectedScope:     selectedScope,
		SelectedVariables: vars,
		CursorNs:          d.cursorNs,
		ZoomCenterNs:      d.zoomCenterNs,
		ViewportStartNs:   d.viewportStartNs,
		ViewportEndNs:     d.viewportEndNs,
		Theme:             d.theme,
		DockMode:          d.dockMode,
		FilterText:        d.filterText,
		MaxTimelineStart:  maxSpan.Start,
		MaxTimelineEnd:    maxSpan.End,
	}
}

func unitName(u timeng.Unit) string {
	switch u {
	case timeng.UnitFs:
		return "fs"
	case timeng.UnitPs:
		return "ps"
	case timeng.UnitUs:
		return "us"
	case timeng.UnitMs:
		return "ms"
	case timeng.UnitS:
		return "s"
	default:
		return "ns"
	}
}
