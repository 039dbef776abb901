package timeng

import "testing"

func TestFromUnitExact(t *testing.T) {
	cases := []struct {
		value uint64
		unit  Unit
		want  Ns
	}{
		{1, UnitNs, 1},
		{1000, UnitPs, 1},
		{1_000_000, UnitFs, 1},
		{1, UnitUs, 1000},
		{1, UnitMs, 1_000_000},
		{1, UnitS, 1_000_000_000},
	}
	for _, c := range cases {
		got, err := FromUnit(c.value, c.unit)
		if err != nil {
			t.Fatalf("FromUnit(%d, %d) returned unexpected error: %v", c.value, c.unit, err)
		}
		if got != c.want {
			t.Errorf("FromUnit(%d, %d) = %d, want %d", c.value, c.unit, got, c.want)
		}
	}
}

func TestFromUnitFemtosecondClamp(t *testing.T) {
	// 1_500_000 fs is 1.5 ns; rounds toward zero to 1 ns with a warning.
	got, err := FromUnit(1_500_000, UnitFs)
	if got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if err == nil {
		t.Fatal("expected ConversionWarning, got nil")
	}
	if _, ok := err.(ConversionWarning); !ok {
		t.Errorf("expected ConversionWarning, got %T", err)
	}
}

func TestSpanInvariants(t *testing.T) {
	s := Span{Start: 10, End: 5}
	if s.Valid() {
		t.Error("span with end < start should be invalid")
	}
	if s.Duration() != 0 {
		t.Error("invalid span should report zero duration")
	}

	valid := Span{Start: 10, End: 20}
	if !valid.Valid() {
		t.Error("span with end >= start should be valid")
	}
	if valid.Duration() != 10 {
		t.Errorf("duration = %d, want 10", valid.Duration())
	}
}

func TestMapPixelToTimeRoundTrip(t *testing.T) {
	// For any (t, w, s, e) with s <= t <= e, mapping t to a pixel in width w
	// and back should fall within ±ceil((e-s)/w) of t (spec.md §8).
	span := Span{Start: 1000, End: 251_000}
	width := 800
	tolerance := Ns((uint64(span.Duration()) + uint64(width) - 1) / uint64(width))

	for _, t0 := range []Ns{1000, 50_000, 125_500, 200_000, 251_000} {
		px := MapTimeToPixel(t0, width, span)
		back := MapPixelToTime(px, width, span)
		var diff Ns
		if back > t0 {
			diff = back - t0
		} else {
			diff = t0 - back
		}
		if diff > tolerance {
			t.Errorf("t=%d px=%d back=%d diff=%d exceeds tolerance %d", t0, px, back, diff, tolerance)
		}
	}
}

func TestZoomAboutClampsToBounds(t *testing.T) {
	bounds := Span{Start: 0, End: 1_000_000}
	current := Span{Start: 100_000, End: 900_000}
	zoomedOut := ZoomAbout(500_000, current, bounds, 0.1)
	if zoomedOut.Start < bounds.Start || zoomedOut.End > bounds.End {
		t.Errorf("zoomed span %v exceeds bounds %v", zoomedOut, bounds)
	}

	zoomedIn := ZoomAbout(500_000, current, bounds, 10)
	if zoomedIn.Duration() >= current.Duration() {
		t.Errorf("zooming in with factor 10 should shrink the span: got %v from %v", zoomedIn, current)
	}
}

func TestFormatThresholds(t *testing.T) {
	cases := []struct {
		in   Ns
		want string
	}{
		{500, "500ns"},
		{1_500, "1.5µs"},
		{999_999, "999.9µs"},
		{1_000_000, "1ms"},
		{2_500_000, "2.5ms"},
		{1_000_000_000, "1s"},
		{90_500_000_000, "90.5s"},
	}
	for _, c := range cases {
		got := Format(c.in)
		if got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.in, got, c.want)
		}
		if len(got) > MaxFormattedWidth {
			t.Errorf("Format(%d) = %q exceeds MaxFormattedWidth %d", c.in, got, MaxFormattedWidth)
		}
	}
}
