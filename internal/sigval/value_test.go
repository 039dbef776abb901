package sigval

import "testing"

func TestCompareSpecialDominatesBits(t *testing.T) {
	bits := NewBits(4, []byte{0x0f})
	x := NewSpecial(4, SpecialX)
	if Compare(bits, x) >= 0 {
		t.Error("a Special value should compare greater than any Bits value")
	}
}

func TestCompareXDominatesZ(t *testing.T) {
	z := NewSpecial(1, SpecialZ)
	x := NewSpecial(1, SpecialX)
	if Compare(x, z) <= 0 {
		t.Error("X should dominate Z in display ordering")
	}
}

func TestRenderHexDefault(t *testing.T) {
	v := NewBits(8, []byte{0xab})
	got := Render(v, ParseFormatterKind("nonsense"))
	if got != "ab" {
		t.Errorf("Render with unknown formatter should default to hex, got %q", got)
	}
}

func TestRenderBinPadsToWidth(t *testing.T) {
	v := NewBits(8, []byte{0x05})
	got := Render(v, FormatBin)
	if got != "00000101" {
		t.Errorf("Render(Bin) = %q, want %q", got, "00000101")
	}
}

func TestRenderSignedInt(t *testing.T) {
	// 4-bit value 0b1111 = -1 as signed.
	v := NewBits(4, []byte{0x0f})
	got := Render(v, FormatSignedInt)
	if got != "-1" {
		t.Errorf("Render(SignedInt) = %q, want -1", got)
	}
}

func TestRenderSpecialIgnoresFormatter(t *testing.T) {
	v := NewSpecial(4, SpecialU)
	if got := Render(v, FormatHex); got != "U" {
		t.Errorf("Render(Special) = %q, want U", got)
	}
}
