package vcdtext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
)

const sampleVCD = `$timescale 1ns $end
$scope module top $end
$var wire 1 ! clk $end
$var reg 8 " data $end
$upscope $end
$enddefinitions $end
$dumpvars
0!
b00000000 "
$end
#10
1!
#20
0!
#30
b00000101 "
#40
1!
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "sample.vcd")
	if err := os.WriteFile(p, []byte(sampleVCD), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestParseHeaderBuildsHierarchyAndSpan(t *testing.T) {
	path := writeSample(t)
	a := New()
	header, err := a.ParseHeader(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if header.Unit != timeng.UnitNs {
		t.Errorf("got unit %v, want UnitNs", header.Unit)
	}
	if header.Span.End != 40 {
		t.Errorf("got span end %d, want 40", header.Span.End)
	}
	if len(header.Root.Children) != 1 || header.Root.Children[0].Name != "top" {
		t.Fatalf("expected one top scope named 'top', got %+v", header.Root.Children)
	}
	top := header.Root.Children[0]
	if len(top.Variables) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(top.Variables))
	}
}

func TestParseBodyProducesTransitionsInOrder(t *testing.T) {
	path := writeSample(t)
	a := New()
	header, err := a.ParseHeader(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	body, err := a.ParseBody(context.Background(), path, header)
	if err != nil {
		t.Fatalf("ParseBody: %v", err)
	}

	clk, ok := body.Transitions["top.clk"]
	if !ok {
		t.Fatal("no transitions recorded for top.clk")
	}
	wantTimes := []timeng.Ns{0, 10, 20, 40}
	if len(clk) != len(wantTimes) {
		t.Fatalf("got %d clk transitions, want %d", len(clk), len(wantTimes))
	}
	for i, want := range wantTimes {
		if clk[i].TimeNs != want {
			t.Errorf("clk[%d].TimeNs = %d, want %d", i, clk[i].TimeNs, want)
		}
	}

	data, ok := body.Transitions["top.data"]
	if !ok {
		t.Fatal("no transitions recorded for top.data")
	}
	if len(data) != 2 {
		t.Fatalf("got %d data transitions, want 2", len(data))
	}
	last := data[len(data)-1]
	if last.TimeNs != 30 {
		t.Errorf("last data transition at %d, want 30", last.TimeNs)
	}
	if last.Value.AsUint().Int64() != 5 {
		t.Errorf("last data value = %v, want 5", last.Value.AsUint())
	}
}

func TestVectorValueWithXIsSpecial(t *testing.T) {
	v, ok := vectorValue("1xx0", 4)
	if !ok {
		t.Fatal("expected vectorValue to succeed")
	}
	if !v.IsSpecial() {
		t.Error("vector containing x should produce a Special value")
	}
	if v.Special != sigval.SpecialX {
		t.Errorf("got %v, want SpecialX", v.Special)
	}
}
