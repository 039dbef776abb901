package session

import (
	"path/filepath"
	"strings"
)

// recomputeSmartLabels assigns each FileView.SmartLabel — the disambiguation
// prefix spec.md §3 attaches to a TrackedFile when another tracked file
// shares its basename (spec.md §4.4 "current smart labels ... recomputed
// once per event"). Files with a unique basename get no prefix at all.
//
// Grouping by a shared key before resolving collisions follows the
// teacher's discovery.deduplicateByPort map-then-merge idiom, generalized
// from "first writer wins" to "grow the prefix until every writer is
// distinct".
func recomputeSmartLabels(d *data) {
	groups := make(map[string][]string, len(d.fileOrder))
	for _, path := range d.fileOrder {
		base := filepath.Base(path)
		groups[base] = append(groups[base], path)
	}
	for _, siblings := range groups {
		if len(siblings) < 2 {
			for _, p := range siblings {
				d.files[p].SmartLabel = ""
			}
			continue
		}
		for _, p := range siblings {
			d.files[p].SmartLabel = distinguishingPrefix(p, siblings)
		}
	}
}

// distinguishingPrefix returns the shortest run of trailing directory
// components of path's directory that differs from the same-length run of
// every other path in siblings. Falls back to the full directory path if
// no run is unique.
func distinguishingPrefix(path string, siblings []string) string {
	segments := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	for k := 1; k <= len(segments); k++ {
		candidate := strings.Join(segments[len(segments)-k:], "/")
		if uniqueAmongSiblings(path, candidate, k, siblings) {
			return candidate
		}
	}
	return strings.Join(segments, "/")
}

func uniqueAmongSiblings(path, candidate string, k int, siblings []string) bool {
	for _, other := range siblings {
		if other == path {
			continue
		}
		otherSegments := strings.Split(filepath.ToSlash(filepath.Dir(other)), "/")
		start := len(otherSegments) - k
		if start < 0 {
			start = 0
		}
		if strings.Join(otherSegments[start:], "/") == candidate {
			return false
		}
	}
	return true
}
