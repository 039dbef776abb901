package cmd

import (
	"path/filepath"
	"testing"

	"github.com/novywave/engine/internal/nwconfig"
)

func TestRunDoctorChecksReportsConfigAndListen(t *testing.T) {
	dir := withTempWorkdir(t)
	serveListenAddr = filepath.Join(dir, "doctor.sock")
	defer func() { serveListenAddr = defaultServeAddr }()

	checks := runDoctorChecks()

	var sawConfig, sawListen bool
	for _, c := range checks {
		if c.Name == "Config" {
			sawConfig = true
			if c.Status != "ok" {
				t.Errorf("expected Config check to be ok, got %+v", c)
			}
		}
		if c.Name == "Listen" {
			sawListen = true
		}
	}
	if !sawConfig || !sawListen {
		t.Fatalf("expected Config and Listen checks, got %+v", checks)
	}
}

func TestCheckPluginsFlagsMissingArtifact(t *testing.T) {
	section := nwconfig.PluginsSection{
		Entries: map[string]nwconfig.PluginEntry{
			"disc": {Enabled: true, ArtifactPath: "/nonexistent/disc.wasm"},
		},
	}
	result := checkPlugins(section)
	if result.Status != "error" {
		t.Fatalf("expected an error status for a missing enabled artifact, got %+v", result)
	}
}

func TestCheckPluginsOKWhenNoneDeclared(t *testing.T) {
	result := checkPlugins(nwconfig.PluginsSection{})
	if result.Status != "ok" {
		t.Fatalf("expected ok status with no declared plugins, got %+v", result)
	}
}
