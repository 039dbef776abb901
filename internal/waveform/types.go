package waveform

import (
	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
)

// SignalKind classifies a variable leaf for display purposes (spec.md §3
// "Hierarchy"). It is distinct from sigval.Kind, which classifies a single
// sampled value.
type SignalKind int

const (
	KindWire SignalKind = iota
	KindReg
	KindInteger
	KindReal
	KindParameter
	KindEvent
)

func (k SignalKind) String() string {
	switch k {
	case KindReg:
		return "reg"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindParameter:
		return "parameter"
	case KindEvent:
		return "event"
	default:
		return "wire"
	}
}

// Variable is one signal leaf within a Scope.
type Variable struct {
	ID    string
	Name  string
	Width uint32
	Kind  SignalKind
}

// Scope is one node of a loaded file's hierarchy tree (spec.md §3).
type Scope struct {
	ID        string
	Name      string
	Children  []*Scope
	Variables []Variable
}

// HeaderResult is everything a ParserAdapter can determine without reading
// the full transition body: the hierarchy, the file's overall time span, and
// its declared time unit (spec.md §4.3 "unit_hint").
type HeaderResult struct {
	Root *Scope
	Span timeng.Span
	Unit timeng.Unit
}

// BodyResult holds every variable's transition stream, keyed by Variable.ID.
// Transitions within each slice are sorted strictly increasing by TimeNs.
type BodyResult struct {
	Transitions map[string][]sigval.Transition
}
