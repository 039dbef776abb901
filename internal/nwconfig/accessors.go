package nwconfig

import (
	"fmt"
	"strconv"
)

// validConfigKeys lists the dot-paths novywave config get/set accepts,
// mirroring the teacher's internal/config.go validKeys allowlist — an
// explicit switch rather than reflection, so a typo'd key fails loudly
// instead of silently reading/writing nothing.
var validConfigKeys = map[string]bool{
	"workspace.path":             true,
	"workspace.theme":            true,
	"workspace.dock_mode":        true,
	"scope.selected_scope_id":    true,
	"timeline.cursor_ns":         true,
	"timeline.zoom_center_ns":    true,
	"timeline.viewport_start_ns": true,
	"timeline.viewport_end_ns":   true,
	"plugins.schema_version":     true,
}

// Get reads key's current value out of the in-memory document, formatted as
// a string (spec.md doesn't give config get/set a typed wire shape — it's a
// CLI convenience, not part of the session protocol).
func (s *Store) Get(key string) (string, error) {
	if !validConfigKeys[key] {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return getField(s.doc, key), nil
}

// Set parses value and writes it to key, scheduling the same debounced save
// path a protocol-driven mutation would (ClassImmediate, since a CLI
// invocation has no follow-up keystrokes to coalesce with).
func (s *Store) Set(key, value string) error {
	if !validConfigKeys[key] {
		return fmt.Errorf("unknown config key: %s", key)
	}
	var setErr error
	s.Mutate(ClassImmediate, func(doc *Document) {
		setErr = setField(doc, key, value)
	})
	return setErr
}

// Keys returns every key novywave config get/set accepts, sorted by the
// caller if display order matters.
func Keys() []string {
	keys := make([]string, 0, len(validConfigKeys))
	for k := range validConfigKeys {
		keys = append(keys, k)
	}
	return keys
}

func getField(doc *Document, key string) string {
	switch key {
	case "workspace.path":
		return doc.Workspace.Path
	case "workspace.theme":
		return doc.Workspace.Theme
	case "workspace.dock_mode":
		return doc.Workspace.DockMode
	case "scope.selected_scope_id":
		return doc.Scope.SelectedScopeID
	case "timeline.cursor_ns":
		return strconv.FormatUint(doc.Timeline.CursorNs, 10)
	case "timeline.zoom_center_ns":
		return strconv.FormatUint(doc.Timeline.ZoomCenterNs, 10)
	case "timeline.viewport_start_ns":
		return strconv.FormatUint(doc.Timeline.ViewportStartNs, 10)
	case "timeline.viewport_end_ns":
		return strconv.FormatUint(doc.Timeline.ViewportEndNs, 10)
	case "plugins.schema_version":
		return strconv.Itoa(doc.Plugins.SchemaVersion)
	default:
		return ""
	}
}

func setField(doc *Document, key, value string) error {
	switch key {
	case "workspace.path":
		doc.Workspace.Path = value
	case "workspace.theme":
		doc.Workspace.Theme = value
	case "workspace.dock_mode":
		doc.Workspace.DockMode = value
	case "scope.selected_scope_id":
		doc.Scope.SelectedScopeID = value
	case "timeline.cursor_ns":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("timeline.cursor_ns: %w", err)
		}
		doc.Timeline.CursorNs = v
	case "timeline.zoom_center_ns":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("timeline.zoom_center_ns: %w", err)
		}
		doc.Timeline.ZoomCenterNs = v
	case "timeline.viewport_start_ns":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("timeline.viewport_start_ns: %w", err)
		}
		doc.Timeline.ViewportStartNs = v
	case "timeline.viewport_end_ns":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("timeline.viewport_end_ns: %w", err)
		}
		doc.Timeline.ViewportEndNs = v
	case "plugins.schema_version":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("plugins.schema_version: %w", err)
		}
		doc.Plugins.SchemaVersion = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
