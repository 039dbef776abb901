package pipeline

import (
	"github.com/novywave/engine/internal/decimate"
	"github.com/novywave/engine/internal/session"
	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/waveform"
	"github.com/novywave/engine/internal/wire"
)

func unitHintName(u timeng.Unit) string {
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

func valueToWire(v sigval.Value) *wire.ValueJSON {
	switch v.Kind {
	case sigval.KindBits:
		return &wire.ValueJSON{Kind: "bits", Bits: sigval.Render(v, sigval.FormatBin)}
	case sigval.KindSpecial:
		return &wire.ValueJSON{Kind: "special", Special: v.Special.String()}
	default:
		return &wire.ValueJSON{Kind: "no_data"}
	}
}

func pointToWire(p decimate.Point) wire.DecimatedPoint {
	out := wire.DecimatedPoint{
		BucketStartNs:   p.BucketStartNs,
		BucketEndNs:     p.BucketEndNs,
		HasSpecialState: p.HasSpecialState,
		NoData:          p.NoData,
	}
	if p.HasTransition {
		first, last := p.FirstTransitionNs, p.LastTransitionNs
		out.FirstTransitionNs = &first
		out.LastTransitionNs = &last
	}
	if !p.NoData {
		out.MinValue = valueToWire(p.MinValue)
		out.MaxValue = valueToWire(p.MaxValue)
		out.Representative = valueToWire(p.Representative)
	}
	return out
}

// scopeToWire converts a parsed hierarchy rooted at s into its wire form,
// joining each variable's file-local id with filePath so the resulting ids
// are globally unique across every loaded file (session.JoinVariableID) —
// the same convention AddVariable/RemoveVariable/SetFormatter expect their
// variable_id argument to already be in.
func scopeToWire(filePath string, s *waveform.Scope) *wire.ScopeNode {
	if s == nil {
		return nil
	}
	node := &wire.ScopeNode{ID: s.ID, Name: s.Name}
	for _, v := range s.Variables {
		node.Variables = append(node.Variables, wire.VarInfo{
			ID:    session.JoinVariableID(filePath, v.ID),
			Name:  v.Name,
			Width: v.Width,
			Kind:  v.Kind.String(),
		})
	}
	for _, c := range s.Children {
		if child := scopeToWire(filePath, c); child != nil {
			node.Children = append(node.Children, *child)
		}
	}
	return node
}
