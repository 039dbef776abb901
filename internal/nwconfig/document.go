// Package nwconfig implements the ConfigStore of spec.md §4.6: a
// schema-versioned TOML document, a per-project file that wins over a
// platform-global one, and debounced persistence keyed by change class.
// Grounded directly on the teacher's internal/config package — go-toml/v2
// marshal/unmarshal and DHHome-style directory resolution generalized from
// a single flat Config struct to the full persisted layout of spec.md §6.2.
package nwconfig

// CurrentSchemaVersion gates plugin-table migrations (spec.md §4.6
// "schema_version bumps trigger an in-process migration step").
const CurrentSchemaVersion = 1

// Document is the persisted projection of SessionState plus plugin entries
// (spec.md §3 "Config document"), matching the TOML tables of §6.2.
type Document struct {
	Workspace WorkspaceSection `toml:"workspace,omitempty"`
	Files     []FileEntry      `toml:"files,omitempty"`
	Scope     ScopeSection     `toml:"scope,omitempty"`
	Variables []VariableEntry  `toml:"variables,omitempty"`
	Panels    PanelsSection    `toml:"panels,omitempty"`
	Timeline  TimelineSection  `toml:"timeline,omitempty"`
	Dialogs   DialogsSection   `toml:"dialogs,omitempty"`
	Errors    ErrorsSection    `toml:"errors,omitempty"`
	Plugins   PluginsSection   `toml:"plugins,omitempty"`

	// unknown preserves any top-level table this build doesn't model, so a
	// newer schema version's config round-trips without data loss (spec.md
	// §4.6 "Unknown top-level sections survive round-trip"). Unexported: it
	// never participates in toml.Marshal/Unmarshal of Document itself and is
	// merged back in by marshalWithUnknown when Store.saveNow writes the file.
	unknown map[string]any
}

// WorkspaceSection is `[workspace]`.
type WorkspaceSection struct {
	Path     string `toml:"path,omitempty"`
	Theme    string `toml:"theme,omitempty"`
	DockMode string `toml:"dock_mode,omitempty"`
}

// FileEntry is one entry of `[[files]]`: a tracked file and its last known
// load outcome, persisted so the UI can show it immediately on reopen
// before WaveformStore finishes re-parsing.
type FileEntry struct {
	Path      string `toml:"path"`
	UnitHint  string `toml:"unit_hint,omitempty"`
	StartNs   uint64 `toml:"start_ns,omitempty"`
	EndNs     uint64 `toml:"end_ns,omitempty"`
}

// ScopeSection is `[scope]`.
type ScopeSection struct {
	SelectedScopeID string `toml:"selected_scope_id,omitempty"`
}

// VariableEntry is one entry of `[[variables]]`: a SelectedVariable
// (spec.md §3).
type VariableEntry struct {
	VariableID   string `toml:"variable_id"`
	Formatter    string `toml:"formatter"`
	DisplayOrder *int   `toml:"display_order,omitempty"`
}

// PanelsSection is `[panels.right_mode]` / `[panels.bottom_mode]`.
type PanelsSection struct {
	RightMode  PanelModeSection `toml:"right_mode,omitempty"`
	BottomMode PanelModeSection `toml:"bottom_mode,omitempty"`
}

// PanelModeSection describes one dockable panel's layout.
type PanelModeSection struct {
	Dock   string `toml:"dock,omitempty"`
	Width  int    `toml:"width,omitempty"`
	Height int    `toml:"height,omitempty"`
}

// TimelineSection is `[timeline]`: cursor, zoom, and viewport, all u64
// nanoseconds per spec.md §6.2.
type TimelineSection struct {
	CursorNs        uint64 `toml:"cursor_ns,omitempty"`
	ZoomCenterNs    uint64 `toml:"zoom_center_ns,omitempty"`
	ViewportStartNs uint64 `toml:"viewport_start_ns,omitempty"`
	ViewportEndNs   uint64 `toml:"viewport_end_ns,omitempty"`
}

// DialogsSection is `[dialogs.file_picker]`.
type DialogsSection struct {
	FilePicker FilePickerSection `toml:"file_picker,omitempty"`
}

// FilePickerSection persists the file-picker dialog's tree state.
type FilePickerSection struct {
	ScrollTop     int      `toml:"scroll_top,omitempty"`
	ExpandedPaths []string `toml:"expanded_paths,omitempty"`
}

// ErrorsSection is `[errors]`: transient error state the UI has dismissed,
// so a restart doesn't immediately re-surface it.
type ErrorsSection struct {
	Dismissed []string `toml:"dismissed,omitempty"`
}

// PluginsSection is `[plugins]`: the schema gate plus every declared
// plugin, keyed by id (spec.md §4.7 "Each plugin is described by a config
// entry").
type PluginsSection struct {
	SchemaVersion int                    `toml:"schema_version"`
	Entries       map[string]PluginEntry `toml:"entries,omitempty"`
}

// PluginEntry mirrors a `.novywave` [plugins] table entry.
type PluginEntry struct {
	Enabled      bool           `toml:"enabled"`
	ArtifactPath string         `toml:"artifact_path"`
	Config       map[string]any `toml:"config,omitempty"`
	Watch        *WatchEntry    `toml:"watch,omitempty"`
}

// WatchEntry describes a plugin's requested directory watchers.
type WatchEntry struct {
	Directories []string `toml:"directories"`
	DebounceMs  int      `toml:"debounce_ms"`
}

// newDefaultDocument returns the zero-value document seeded with the
// current schema version, used whenever no config file exists yet or the
// existing one fails to parse (spec.md §4.6 "fall back to defaults in
// memory").
func newDefaultDocument() *Document {
	return &Document{
		Plugins: PluginsSection{SchemaVersion: CurrentSchemaVersion},
		unknown: map[string]any{},
	}
}
