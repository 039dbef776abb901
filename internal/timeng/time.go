// Package timeng implements the engine's nanosecond time type and the
// integer-only arithmetic that zoom, pan, cursor, and bucket-edge math
// depend on. Floating point is only ever used at display formatting and
// sub-pixel ratio computation, never in stored or compared time values.
package timeng

import (
	"fmt"
	"strconv"
)

// Ns is an unsigned 64-bit nanosecond timestamp. The engine never produces
// negative ranges; callers are responsible for maintaining end >= start at
// every boundary they construct.
type Ns uint64

// Unit identifies the native time unit a waveform file reports.
type Unit int

const (
	UnitFs Unit = iota
	UnitPs
	UnitNs
	UnitUs
	UnitMs
	UnitS
)

// perNs gives how many of Unit fit in one nanosecond's resolution, i.e. the
// divisor used to convert a value expressed in Unit down to nanoseconds.
// For sub-nanosecond units (fs, ps) this is how many units make one ns.
var perNs = map[Unit]uint64{
	UnitFs: 1_000_000,
	UnitPs: 1_000,
	UnitNs: 1,
}

// perUnit gives how many nanoseconds make one of Unit, for units coarser
// than a nanosecond.
var perUnit = map[Unit]uint64{
	UnitNs: 1,
	UnitUs: 1_000,
	UnitMs: 1_000_000,
	UnitS:  1_000_000_000,
}

// ConversionWarning is returned by FromUnit when the conversion lost
// precision (fs files clamp below one nanosecond of resolution, per
// spec.md Open Question (a)).
type ConversionWarning struct {
	Unit    Unit
	Dropped uint64 // the sub-nanosecond remainder that was truncated
}

func (w ConversionWarning) Error() string {
	return fmt.Sprintf("clamped %d sub-nanosecond units converting from unit %d", w.Dropped, w.Unit)
}

// FromUnit converts a raw value expressed in the file's native unit to Ns,
// rounding toward zero. For units finer than a nanosecond (fs, ps) that are
// not an exact multiple of the ns resolution, the remainder is clamped and
// a ConversionWarning is returned alongside the best-effort value. The
// vcdtext adapter discards the warning and keeps the value.
func FromUnit(value uint64, u Unit) (Ns, error) {
	if div, ok := perNs[u]; ok {
		if div == 1 {
			return Ns(value), nil
		}
		q, r := value/div, value%div
		if r != 0 {
			return Ns(q), ConversionWarning{Unit: u, Dropped: r}
		}
		return Ns(q), nil
	}
	if mul, ok := perUnit[u]; ok {
		return Ns(value * mul), nil
	}
	return 0, fmt.Errorf("timeng: unknown unit %d", u)
}

// ToUnit converts a Ns value to the given native unit. For units finer than
// a nanosecond (fs, ps) the result is exact; for coarser units it rounds
// toward zero, dropping any fractional remainder.
func ToUnit(t Ns, u Unit) uint64 {
	if mul, ok := perNs[u]; ok {
		return uint64(t) * mul
	}
	if div, ok := perUnit[u]; ok {
		if div == 1 {
			return uint64(t)
		}
		return uint64(t) / div
	}
	return uint64(t)
}

// Span is a half-open-or-closed time interval depending on context; the
// engine treats [Start, End] as closed for file spans (spec.md §3) and
// [Start, End) as half-open for decimation buckets (spec.md §4.3).
type Span struct {
	Start Ns
	End   Ns
}

// Valid reports whether End >= Start, the invariant enforced at every
// boundary per spec.md §3.
func (s Span) Valid() bool {
	return s.End >= s.Start
}

// Duration returns End - Start, or 0 if the span is invalid.
func (s Span) Duration() Ns {
	if !s.Valid() {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether t falls within the closed span [Start, End].
func (s Span) Contains(t Ns) bool {
	return t >= s.Start && t <= s.End
}

// Clamp restricts t to lie within the closed span.
func (s Span) Clamp(t Ns) Ns {
	if t < s.Start {
		return s.Start
	}
	if t > s.End {
		return s.End
	}
	return t
}

// MapPixelToTime maps a mouse x-coordinate in a canvas of the given width
// to a timestamp within [start, end], per spec.md §4.1:
//
//	t = start + floor((mouse_x / canvas_width) * (end − start))
//
// The multiplication is performed at float64 width to avoid uint64
// overflow for very large spans, then truncated back to Ns.
func MapPixelToTime(mouseX, canvasWidth int, span Span) Ns {
	if canvasWidth <= 0 {
		return span.Start
	}
	if mouseX <= 0 {
		return span.Start
	}
	if mouseX >= canvasWidth {
		return span.End
	}
	ratio := float64(mouseX) / float64(canvasWidth)
	offset := ratio * float64(span.Duration())
	return span.Start + Ns(offset)
}

// MapTimeToPixel is the inverse of MapPixelToTime: given a timestamp within
// span, returns the pixel x-coordinate within a canvas of canvasWidth.
func MapTimeToPixel(t Ns, canvasWidth int, span Span) int {
	if canvasWidth <= 0 || !span.Valid() || span.Duration() == 0 {
		return 0
	}
	if t <= span.Start {
		return 0
	}
	if t >= span.End {
		return canvasWidth
	}
	ratio := float64(t-span.Start) / float64(span.Duration())
	return int(ratio * float64(canvasWidth))
}

// ZoomAbout computes a new viewport by scaling the distance from center to
// each edge by 1/factor, per spec.md §4.1:
//
//	new range = (center − (center−start)/factor, center + (end−center)/factor)
//
// The result is clamped to bounds. factor > 1 zooms in (narrower range);
// 0 < factor < 1 zooms out. factor <= 0 is treated as 1 (no-op).
func ZoomAbout(center Ns, current, bounds Span, factor float64) Span {
	if factor <= 0 {
		factor = 1
	}
	var left, right float64
	if center >= current.Start {
		left = float64(center-current.Start) / factor
	} else {
		left = -float64(current.Start-center) / factor
	}
	if current.End >= center {
		right = float64(current.End-center) / factor
	} else {
		right = -float64(center-current.End) / factor
	}

	newStart := subClampNs(center, left)
	newEnd := addClampNs(center, right)

	if newStart < bounds.Start {
		newStart = bounds.Start
	}
	if newEnd > bounds.End {
		newEnd = bounds.End
	}
	if newEnd < newStart {
		newEnd = newStart
	}
	return Span{Start: newStart, End: newEnd}
}

func subClampNs(base Ns, delta float64) Ns {
	if delta >= float64(base) {
		return 0
	}
	return base - Ns(delta)
}

func addClampNs(base Ns, delta float64) Ns {
	sum := float64(base) + delta
	if sum < 0 {
		return 0
	}
	if sum > float64(^uint64(0)) {
		return Ns(^uint64(0))
	}
	return base + Ns(delta)
}

// Format renders a Ns duration for fixed-width display per spec.md §4.1:
// unit is selected by magnitude (<1μs → ns, <1ms → μs, <1s → ms, else s),
// with at most one decimal place. The longest possible output is bounded
// (MaxFormattedWidth) so callers can reserve fixed-width layout columns.
func Format(t Ns) string {
	switch {
	case t < 1_000:
		return strconv.FormatUint(uint64(t), 10) + "ns"
	case t < 1_000_000:
		return formatOneDecimal(t, 1_000) + "µs"
	case t < 1_000_000_000:
		return formatOneDecimal(t, 1_000_000) + "ms"
	default:
		return formatOneDecimal(t, 1_000_000_000) + "s"
	}
}

// MaxFormattedWidth is the longest string Format can return (excluding the
// unit suffix, which is at most 2 runes): a full uint64 has at most 20
// decimal digits, but once divided into any unit above ns, one decimal
// place bounds it to "xxxxxxxxxx.x" (the seconds case, the largest
// remaining magnitude) — 11 digits of integer part plus ".x" is generous
// headroom for a 64-bit nanosecond value measured in seconds.
const MaxFormattedWidth = 14

func formatOneDecimal(t Ns, divisor uint64) string {
	whole := uint64(t) / divisor
	frac := uint64(t) % divisor
	// Truncate to one decimal place of the divisor.
	tenth := (frac * 10) / divisor
	if tenth == 0 {
		return strconv.FormatUint(whole, 10)
	}
	return strconv.FormatUint(whole, 10) + "." + strconv.FormatUint(tenth, 10)
}
