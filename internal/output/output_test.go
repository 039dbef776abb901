package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "\"key\": \"value\"") {
		t.Errorf("expected indented JSON, got %q", buf.String())
	}
}

func TestPrintErrorPlainVsJSON(t *testing.T) {
	defer SetFlags(false, false, false)

	SetFlags(false, false, false)
	var plain bytes.Buffer
	if err := PrintError(&plain, "not_found", "workspace missing"); err != nil {
		t.Fatalf("PrintError: %v", err)
	}
	if plain.String() != "error: workspace missing\n" {
		t.Errorf("got %q", plain.String())
	}

	SetFlags(true, false, false)
	var js bytes.Buffer
	if err := PrintError(&js, "not_found", "workspace missing"); err != nil {
		t.Fatalf("PrintError: %v", err)
	}
	if !strings.Contains(js.String(), "\"error\": \"not_found\"") {
		t.Errorf("expected JSON error envelope, got %q", js.String())
	}
}

func TestFlagAccessors(t *testing.T) {
	SetFlags(true, true, true)
	defer SetFlags(false, false, false)
	if !IsJSON() || !IsQuiet() || !IsVerbose() {
		t.Fatal("expected all three flags to read back true")
	}
}
