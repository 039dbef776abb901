package session

import "testing"

func dataWithFiles(paths ...string) *data {
	d := newData()
	for _, p := range paths {
		d.files[p] = &FileView{Path: p}
		d.fileOrder = append(d.fileOrder, p)
	}
	return d
}

func TestRecomputeSmartLabelsUniqueBasenameStaysEmpty(t *testing.T) {
	d := dataWithFiles("/work/a/top.vcd", "/work/b/child.vcd")
	recomputeSmartLabels(d)
	for path, fv := range d.files {
		if fv.SmartLabel != "" {
			t.Errorf("path %s: expected empty smart label for a unique basename, got %q", path, fv.SmartLabel)
		}
	}
}

func TestRecomputeSmartLabelsDisambiguatesSharedBasename(t *testing.T) {
	d := dataWithFiles("/work/sim1/top.vcd", "/work/sim2/top.vcd")
	recomputeSmartLabels(d)

	a := d.files["/work/sim1/top.vcd"].SmartLabel
	b := d.files["/work/sim2/top.vcd"].SmartLabel
	if a == "" || b == "" {
		t.Fatalf("expected non-empty smart labels for a shared basename, got %q and %q", a, b)
	}
	if a == b {
		t.Fatalf("expected distinct smart labels, both got %q", a)
	}
	if a != "sim1" || b != "sim2" {
		t.Errorf("expected the shortest distinguishing suffix, got %q and %q", a, b)
	}
}

func TestRecomputeSmartLabelsGrowsPrefixUntilDistinct(t *testing.T) {
	d := dataWithFiles("/work/a/sim/top.vcd", "/work/b/sim/top.vcd")
	recomputeSmartLabels(d)

	a := d.files["/work/a/sim/top.vcd"].SmartLabel
	b := d.files["/work/b/sim/top.vcd"].SmartLabel
	if a == b {
		t.Fatalf("expected distinct labels once the immediate parent ('sim') collides too, got %q for both", a)
	}
	if a != "a/sim" || b != "b/sim" {
		t.Errorf("expected a two-segment distinguishing suffix, got %q and %q", a, b)
	}
}
