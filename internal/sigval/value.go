// Package sigval implements the SignalValue tagged union and Transition
// stream types that the decimation engine and session layer operate on
// (spec.md §3). This is the engine's internal representation; internal/wire
// carries the serialized form.
package sigval

import (
	"math/big"
	"strings"

	"github.com/novywave/engine/internal/timeng"
)

// Special is a non-binary signal state (spec.md GLOSSARY).
type Special int

const (
	// SpecialNone is the zero value and never appears in a constructed
	// SignalValue's Special field when Kind == KindSpecial.
	SpecialNone Special = iota
	SpecialZ
	SpecialX
	SpecialU
)

func (s Special) String() string {
	switch s {
	case SpecialZ:
		return "Z"
	case SpecialX:
		return "X"
	case SpecialU:
		return "U"
	default:
		return ""
	}
}

// dominance ranks Special states for display/min-max purposes: X dominates
// Z in display ordering (spec.md §4.3 step 3). U is treated as at least as
// dominant as X, since it indicates an uninitialized (never-driven) signal,
// the least-known state of the three.
func (s Special) dominance() int {
	switch s {
	case SpecialU:
		return 3
	case SpecialX:
		return 2
	case SpecialZ:
		return 1
	default:
		return 0
	}
}

// Kind discriminates a SignalValue.
type Kind int

const (
	KindBits Kind = iota
	KindSpecial
	KindNoData
)

// Value is the tagged union described by spec.md §3: Bits(little-endian bit
// vector) | Special(Z|X|U) | NoData.
type Value struct {
	Kind    Kind
	Width   uint32
	Bits    []byte // little-endian bit-packed, length = ceil(Width/8); meaningful iff Kind == KindBits
	Special Special
}

// NoData is the singleton "outside the file's span" value.
var NoData = Value{Kind: KindNoData}

// NewBits constructs a Bits value from a little-endian bit-packed byte
// slice of the given width.
func NewBits(width uint32, bits []byte) Value {
	return Value{Kind: KindBits, Width: width, Bits: bits}
}

// NewSpecial constructs a Special value.
func NewSpecial(width uint32, s Special) Value {
	return Value{Kind: KindSpecial, Width: width, Special: s}
}

// IsSpecial reports whether v represents a non-binary state.
func (v Value) IsSpecial() bool {
	return v.Kind == KindSpecial
}

// AsUint interprets Bits as an unsigned big-endian-from-LSB integer for
// min/max comparison purposes (spec.md §4.3: "by unsigned integer
// interpretation"). Only meaningful when Kind == KindBits.
func (v Value) AsUint() *big.Int {
	if v.Kind != KindBits {
		return nil
	}
	// Bits is little-endian; big.Int.SetBytes wants big-endian, so reverse.
	be := make([]byte, len(v.Bits))
	for i, b := range v.Bits {
		be[len(v.Bits)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

// Compare orders two values for min/max tracking within a decimation
// bucket. Special states dominate both min and max (spec.md §4.3): any
// Special value compares greater than any Bits value, and among Special
// values, higher dominance compares greater. NoData never participates in
// bucket scanning and is treated as least.
func Compare(a, b Value) int {
	rank := func(v Value) int {
		switch v.Kind {
		case KindNoData:
			return -1
		case KindBits:
			return 0
		case KindSpecial:
			return 1
		}
		return -1
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindBits:
		return a.AsUint().Cmp(b.AsUint())
	case KindSpecial:
		da, db := a.Special.dominance(), b.Special.dominance()
		if da == db {
			return 0
		}
		if da < db {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Transition is a single value change at a point in time (spec.md §3).
// Transitions for a variable are strictly increasing in TimeNs.
type Transition struct {
	TimeNs timeng.Ns
	Value  Value
}

// FormatterKind is the rendering mode applied at response-encode time
// (spec.md §3 / GLOSSARY "Formatter"); never cached.
type FormatterKind int

const (
	FormatText FormatterKind = iota
	FormatBin
	FormatBinGroups
	FormatHex
	FormatOct
	FormatSignedInt
	FormatUnsignedInt
)

// ParseFormatterKind maps the short wire-form formatter name (spec.md §6.2)
// to a FormatterKind. Unrecognized names default to Hex, matching spec.md
// §3's "Hex (default)".
func ParseFormatterKind(name string) FormatterKind {
	switch strings.ToUpper(name) {
	case "TEXT":
		return FormatText
	case "BIN":
		return FormatBin
	case "BINS", "BINGROUPS":
		return FormatBinGroups
	case "OCT":
		return FormatOct
	case "INT":
		return FormatSignedInt
	case "UINT":
		return FormatUnsignedInt
	default:
		return FormatHex
	}
}

// Render formats v under the given formatter, applied at response-encode
// time per spec.md GLOSSARY ("applied at response-encode time, never
// cached"). Special and NoData values render as their tag regardless of
// formatter.
func Render(v Value, f FormatterKind) string {
	switch v.Kind {
	case KindNoData:
		return ""
	case KindSpecial:
		return v.Special.String()
	}

	n := v.AsUint()
	switch f {
	case FormatBin:
		return padBinary(n, int(v.Width))
	case FormatBinGroups:
		return groupBinary(padBinary(n, int(v.Width)))
	case FormatOct:
		return n.Text(8)
	case FormatSignedInt:
		return signedText(n, v.Width)
	case FormatUnsignedInt:
		return n.Text(10)
	case FormatText:
		return bitsToASCII(v)
	default: // FormatHex
		return n.Text(16)
	}
}

func padBinary(n *big.Int, width int) string {
	s := n.Text(2)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

func groupBinary(bin string) string {
	var b strings.Builder
	for i, r := range bin {
		if i > 0 && (len(bin)-i)%4 == 0 {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func signedText(n *big.Int, width uint32) string {
	if width == 0 || width > 64 {
		return n.Text(10)
	}
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(width-1))
	if n.Cmp(signBit) < 0 {
		return n.Text(10)
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(width))
	neg := new(big.Int).Sub(n, full)
	return neg.Text(10)
}

// bitsToASCII renders each byte of the bit vector (most-significant byte
// first) as its ASCII character, substituting '.' for non-printable bytes.
func bitsToASCII(v Value) string {
	var b strings.Builder
	for i := len(v.Bits) - 1; i >= 0; i-- {
		c := v.Bits[i]
		if c < 0x20 || c > 0x7e {
			b.WriteByte('.')
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}
