package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewDefaultsToInfoLevelAndTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf})
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %s", l.GetLevel())
	}
	ForComponent(l, "waveform").Warn("header parse failed")
	if !strings.Contains(buf.String(), "component=waveform") {
		t.Errorf("expected component field in output, got %q", buf.String())
	}
}

func TestJSONFormatterEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, JSON: true, Level: "debug"})
	entry := WithErrorKind(WithEntity(ForComponent(l, "waveform"), "/tmp/x.vcd"), "ParseError")
	entry.Error("parse failed")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON line, got error %v: %q", err, buf.String())
	}
	if decoded["component"] != "waveform" || decoded["entity"] != "/tmp/x.vcd" || decoded["error_kind"] != "ParseError" {
		t.Errorf("missing expected fields: %+v", decoded)
	}
}

func TestUnrecognizedLevelDefaultsToInfo(t *testing.T) {
	l := New(Options{Level: "not-a-level"})
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected fallback to info level, got %s", l.GetLevel())
	}
}
