// Package wire defines the typed request/response messages exchanged
// between the engine and any UI (spec.md §6.1). Requests and responses are
// modeled as tagged-union structs over JSON — a Type discriminator plus a
// payload — following the teacher's PoolRequest/PoolResponse shape
// (internal/vm/pool_protocol.go) generalized from the pool daemon's small
// exec/status/scale/stop vocabulary to the full UI-facing message set.
package wire

import "github.com/novywave/engine/internal/timeng"

// Request is a single typed message sent from the UI to the engine. Exactly
// one of the payload fields below is populated, selected by Type.
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	// LoadFile / UnloadFile / ListHierarchy
	Path string `json:"path,omitempty"`

	// SelectScope
	ScopeID *string `json:"scope_id,omitempty"`

	// AddVariable / RemoveVariable / SetFormatter
	VariableID string `json:"variable_id,omitempty"`
	Formatter  string `json:"formatter,omitempty"`

	// QueryDecimated / QueryValuesAt
	Variables  []string   `json:"variables,omitempty"`
	StartNs    timeng.Ns  `json:"start_ns,omitempty"`
	EndNs      timeng.Ns  `json:"end_ns,omitempty"`
	PixelCount uint32     `json:"pixel_count,omitempty"`
	TimeNs     timeng.Ns  `json:"time_ns,omitempty"`

	// SetViewport / SetCursor / SetZoomCenter reuse StartNs/EndNs/TimeNs above.

	// ResizePanel
	DockMode string `json:"dock_mode,omitempty"`
	Field    string `json:"field,omitempty"`
	Value    int    `json:"value,omitempty"`

	// SetWorkspaceTreeState
	Workspace     string   `json:"workspace,omitempty"`
	ScrollTop     int      `json:"scroll,omitempty"`
	ExpandedPaths []string `json:"expanded_paths,omitempty"`

	// ConfigUpdatePlugin
	PluginEntry *PluginEntry `json:"entry,omitempty"`
}

// Request type discriminators, spec.md §6.1.
const (
	ReqLoadFile              = "LoadFile"
	ReqUnloadFile             = "UnloadFile"
	ReqListHierarchy          = "ListHierarchy"
	ReqSelectScope            = "SelectScope"
	ReqAddVariable            = "AddVariable"
	ReqRemoveVariable         = "RemoveVariable"
	ReqSetFormatter           = "SetFormatter"
	ReqQueryDecimated         = "QueryDecimated"
	ReqQueryValuesAt          = "QueryValuesAt"
	ReqSetViewport            = "SetViewport"
	ReqSetCursor              = "SetCursor"
	ReqSetZoomCenter          = "SetZoomCenter"
	ReqToggleTheme            = "ToggleTheme"
	ReqToggleDock             = "ToggleDock"
	ReqResizePanel            = "ResizePanel"
	ReqListWorkspaceHistory   = "ListWorkspaceHistory"
	ReqSetWorkspaceTreeState  = "SetWorkspaceTreeState"
	ReqConfigUpdatePlugin     = "ConfigUpdatePlugin"
)

// PluginEntry mirrors a `.novywave` [plugins] table entry (spec.md §4.7).
type PluginEntry struct {
	ID           string         `json:"id"`
	Enabled      bool           `json:"enabled"`
	ArtifactPath string         `json:"artifact_path"`
	Config       map[string]any `json:"config,omitempty"`
	Watch        *WatchEntry    `json:"watch,omitempty"`
}

// WatchEntry describes a plugin's requested directory watchers.
type WatchEntry struct {
	Directories []string `json:"directories"`
	DebounceMs  int      `json:"debounce_ms"`
}

// Response is a single typed, asynchronous message sent from the engine to
// the UI. RequestID correlates a response to its originating request where
// applicable (spec.md §6.1: "out-of-order completions are legal").
type Response struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	// FileLoading / FileLoaded / FileFailed
	Path      string    `json:"path,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	SpanNs    *SpanJSON `json:"span_ns,omitempty"`
	UnitHint  string    `json:"unit_hint,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`

	// Hierarchy
	Tree *ScopeNode `json:"tree,omitempty"`

	// DecimatedRange / ValuesAt
	PerVariable []VariableResult `json:"per_variable,omitempty"`

	// SessionSnapshot
	Snapshot *Snapshot `json:"snapshot,omitempty"`

	// PluginStatus
	PluginID    string `json:"id,omitempty"`
	PluginState string `json:"state,omitempty"`

	// WorkspaceHistory (answers ListWorkspaceHistory; spec.md §4.9)
	LastSelected string               `json:"last_selected,omitempty"`
	RecentPaths  []string             `json:"recent_paths,omitempty"`
	TreeState    map[string]TreeState `json:"tree_state,omitempty"`
}

// TreeState is the wire form of a workspace's file-picker tree state
// (spec.md §4.9).
type TreeState struct {
	ScrollTop     int      `json:"scroll_top"`
	ExpandedPaths []string `json:"expanded_paths,omitempty"`
}

// Response type discriminators, spec.md §6.1.
const (
	RespFileLoading     = "FileLoading"
	RespFileLoaded      = "FileLoaded"
	RespFileFailed      = "FileFailed"
	RespHierarchy       = "Hierarchy"
	RespDecimated       = "DecimatedRange"
	RespValuesAt        = "ValuesAt"
	RespSnapshot        = "SessionSnapshot"
	RespPluginStatus    = "PluginStatus"
	RespWorkspaceHistory = "WorkspaceHistory"
	RespError           = "Error"
)

// Error kinds, spec.md §6.1 / §7.
const (
	ErrFileNotFound      = "FileNotFound"
	ErrPermissionDenied  = "PermissionDenied"
	ErrUnsupportedFormat = "UnsupportedFormat"
	ErrParseError        = "ParseError"
	ErrOutOfRange        = "OutOfRange"
	ErrInvalidRequest    = "InvalidRequest"
	ErrCancelled         = "Cancelled"
	ErrPluginError       = "PluginError"
	ErrConfigError       = "ConfigError"
)

// SpanJSON is the wire form of a timeng.Span.
type SpanJSON struct {
	StartNs timeng.Ns `json:"start_ns"`
	EndNs   timeng.Ns `json:"end_ns"`
}

// ScopeNode is the wire form of a hierarchy scope, spec.md §3 "Hierarchy".
type ScopeNode struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Children  []ScopeNode `json:"children,omitempty"`
	Variables []VarInfo   `json:"variables,omitempty"`
}

// VarInfo describes a single variable leaf within a scope.
type VarInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Width uint32 `json:"width"`
	Kind  string `json:"kind"`
}

// VariableResult carries either decimated points or values-at-time for one
// variable, or a per-entity error (spec.md §4.5 "partial response").
type VariableResult struct {
	VariableID string           `json:"variable_id"`
	Points     []DecimatedPoint `json:"points,omitempty"`
	Value      *ValueJSON       `json:"value,omitempty"`
	ErrorKind  string           `json:"error,omitempty"`
}

// DecimatedPoint is the wire form of a decimation bucket, spec.md §3.
type DecimatedPoint struct {
	BucketStartNs     timeng.Ns  `json:"bucket_start_ns"`
	BucketEndNs       timeng.Ns  `json:"bucket_end_ns"`
	FirstTransitionNs *timeng.Ns `json:"first_transition_ns,omitempty"`
	LastTransitionNs  *timeng.Ns `json:"last_transition_ns,omitempty"`
	MinValue          *ValueJSON `json:"min_value,omitempty"`
	MaxValue          *ValueJSON `json:"max_value,omitempty"`
	Representative    *ValueJSON `json:"representative_value,omitempty"`
	HasSpecialState   bool       `json:"has_special_state"`
	NoData            bool       `json:"no_data,omitempty"`
}

// ValueJSON is the wire form of a SignalValue (spec.md §3): exactly one of
// Bits/Special/NoData is meaningful, selected by Kind.
type ValueJSON struct {
	Kind    string `json:"kind"` // "bits" | "special" | "no_data"
	Bits    string `json:"bits,omitempty"`
	Special string `json:"special,omitempty"` // "Z" | "X" | "U"
}

// Snapshot carries the full derived view the UI needs after any session
// mutation (spec.md §4.4 "derived signals ... published").
type Snapshot struct {
	Files             []TrackedFileJSON `json:"files"`
	SelectedScope     *string           `json:"selected_scope"`
	SelectedVariables []SelectedVarJSON `json:"selected_variables"`
	CursorNs          timeng.Ns         `json:"cursor_ns"`
	ZoomCenterNs      timeng.Ns         `json:"zoom_center_ns"`
	ViewportStartNs   timeng.Ns         `json:"viewport_start_ns"`
	ViewportEndNs     timeng.Ns         `json:"viewport_end_ns"`
	Theme             string            `json:"theme"`
	DockMode          string            `json:"dock_mode"`
	FilterText        string            `json:"filter_text"`
	MaxTimelineStart  timeng.Ns         `json:"max_timeline_start_ns"`
	MaxTimelineEnd    timeng.Ns         `json:"max_timeline_end_ns"`
}

// TrackedFileJSON is the wire form of a TrackedFile (spec.md §3).
type TrackedFileJSON struct {
	Path        string    `json:"path"`
	State       string    `json:"state"` // "loading" | "failed" | "loaded"
	Stage       string    `json:"stage,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ErrorMsg    string    `json:"error_message,omitempty"`
	StartNs     timeng.Ns `json:"start_ns,omitempty"`
	EndNs       timeng.Ns `json:"end_ns,omitempty"`
	UnitHint    string    `json:"unit_hint,omitempty"`
	SmartLabel  string    `json:"smart_label,omitempty"`
}

// SelectedVarJSON is the wire form of a SelectedVariable (spec.md §3).
type SelectedVarJSON struct {
	VariableID   string `json:"variable_id"`
	Formatter    string `json:"formatter"`
	DisplayOrder *int   `json:"display_order,omitempty"`
	Unresolved   bool   `json:"unresolved,omitempty"`
}

// Formatter names, spec.md §3 / §6.2.
const (
	FormatterText       = "Text"
	FormatterBin        = "Bin"
	FormatterBinGroups  = "BinGroups"
	FormatterHex        = "Hex"
	FormatterOct        = "Oct"
	FormatterSignedInt  = "Int"
	FormatterUnsignedInt = "UInt"
)
