package plugin

import "testing"

func TestPathAllowedRejectsTraversalAndOutsideDirectories(t *testing.T) {
	h := &hostBridge{allowedDirs: []string{"/data/traces"}}

	if err := h.pathAllowed("/data/traces/run1.vcd"); err != nil {
		t.Errorf("expected path under granted dir to be allowed, got %v", err)
	}
	if err := h.pathAllowed("/data/traces/../../etc/passwd"); err == nil {
		t.Errorf("expected traversal attempt to be rejected")
	}
	if err := h.pathAllowed("/etc/passwd"); err == nil {
		t.Errorf("expected path outside granted dirs to be rejected")
	}
}

func TestChannelAllowedlist(t *testing.T) {
	h := &hostBridge{allowedChannels: []string{"file.load"}}
	if !h.channelAllowed("file.load") {
		t.Errorf("expected file.load to be allowed")
	}
	if h.channelAllowed("unknown.channel") {
		t.Errorf("expected unlisted channel to be rejected")
	}
}
