package nwconfig

import (
	"os"
	"path/filepath"
)

const (
	projectConfigFile = ".novywave"
	globalConfigFile  = "config.toml"
	globalHistoryFile = ".novywave_global"
)

// configDirOverride is set by --config-dir / NOVYWAVE_CONFIG_DIR, mirroring
// the teacher's config.SetConfigDir/DH_HOME precedence.
var configDirOverride string

// SetConfigDir overrides the platform-global config directory for the rest
// of the process, used by the CLI's --config-dir flag.
func SetConfigDir(dir string) { configDirOverride = dir }

// GlobalConfigDir returns the directory holding the platform-global
// config.toml and .novywave_global history file. Precedence: SetConfigDir >
// NOVYWAVE_CONFIG_DIR env > $XDG_CONFIG_HOME/novywave > ~/.config/novywave
// (./.novywave when the home directory cannot be determined).
func GlobalConfigDir() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	if v := os.Getenv("NOVYWAVE_CONFIG_DIR"); v != "" {
		return v
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "novywave")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".novywave")
	}
	return filepath.Join(home, ".config", "novywave")
}

// GlobalConfigPath returns the platform-global config.toml path.
func GlobalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), globalConfigFile)
}

// GlobalHistoryPath returns the path to the global workspace-history file.
func GlobalHistoryPath() string {
	return filepath.Join(GlobalConfigDir(), globalHistoryFile)
}

// EnsureGlobalDir creates the platform-global config directory if absent.
func EnsureGlobalDir() error {
	return os.MkdirAll(GlobalConfigDir(), 0o755)
}

// FindProjectConfig walks up from startDir looking for a `.novywave` file,
// exactly as the teacher's config.FindDHRC walks up for `.dhrc` (spec.md
// §4.6 "per-project ./.novywave wins over platform-global"). Returns "" with
// a nil error if none is found before the filesystem root.
func FindProjectConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, projectConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
