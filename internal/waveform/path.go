package waveform

import (
	"path/filepath"
	"strings"
)

// canonicalize resolves path to an absolute, symlink-free form so that two
// different strings naming the same file on disk dedupe to one TrackedFile
// (DESIGN.md Open Question: canonical-path dedup).
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The file may not exist yet, or a component may be a dangling
		// symlink; fall back to the absolute form and let the caller's
		// subsequent os.Open surface the real error.
		return abs, nil
	}
	return real, nil
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
