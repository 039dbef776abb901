package nwconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// ChangeClass buckets a mutation by how aggressively it should be debounced
// before being written to disk (spec.md §4.6's change-class table).
type ChangeClass int

const (
	ClassImmediate ChangeClass = iota // theme/dock toggle, variable selection/formatter
	ClassPanelResize
	ClassDialogScroll
	ClassCursorZoom
)

func debounceFor(c ChangeClass) time.Duration {
	switch c {
	case ClassPanelResize, ClassDialogScroll:
		return 500 * time.Millisecond
	case ClassCursorZoom:
		return 1000 * time.Millisecond
	default:
		return 0
	}
}

// knownTopLevelKeys lists the TOML tables this build understands; anything
// else read from disk is carried in Document.unknown untouched.
var knownTopLevelKeys = map[string]bool{
	"workspace": true, "files": true, "scope": true, "variables": true,
	"panels": true, "timeline": true, "dialogs": true, "errors": true,
	"plugins": true,
}

// CorruptError describes a config file that failed to parse (spec.md §4.6
// "surface a single error carrying the parse diagnostic and absolute
// path").
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store is the ConfigStore of spec.md §4.6: it resolves which file is
// active (per-project beats platform-global), loads it once, and persists
// mutations back with per-change-class debouncing.
type Store struct {
	log       *logrus.Entry
	path      string
	isProject bool

	mu      sync.Mutex
	doc     *Document
	corrupt *CorruptError
	// corruptTaken records that TakeCorruptError already surfaced corrupt;
	// corrupt itself stays set so saves remain disabled.
	corruptTaken bool
	timers  map[ChangeClass]*time.Timer
}

// NewStore resolves the active config file for workDir (per-project
// `.novywave` found by walking up from workDir, else the platform-global
// config.toml) and loads it.
func NewStore(log *logrus.Entry, workDir string) (*Store, error) {
	projectPath, err := FindProjectConfig(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project config: %w", err)
	}

	path := projectPath
	isProject := projectPath != ""
	if !isProject {
		path = GlobalConfigPath()
	}

	doc, corrupt := loadDocument(path)
	return &Store{
		log:       log,
		path:      path,
		isProject: isProject,
		doc:       doc,
		corrupt:   corrupt,
		timers:    make(map[ChangeClass]*time.Timer),
	}, nil
}

func loadDocument(path string) (*Document, *CorruptError) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDefaultDocument(), nil
		}
		return newDefaultDocument(), &CorruptError{Path: path, Err: err}
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return newDefaultDocument(), &CorruptError{Path: path, Err: err}
	}

	doc := &Document{}
	if err := toml.Unmarshal(data, doc); err != nil {
		return newDefaultDocument(), &CorruptError{Path: path, Err: err}
	}
	doc.unknown = make(map[string]any)
	for k, v := range raw {
		if !knownTopLevelKeys[k] {
			doc.unknown[k] = v
		}
	}

	if err := migrate(doc); err != nil {
		return newDefaultDocument(), &CorruptError{Path: path, Err: err}
	}
	return doc, nil
}

// migrate applies in-process schema migrations and rejects downgrades
// (spec.md §4.6 "schema_version bumps trigger an in-process migration
// step; downgrade is rejected").
func migrate(doc *Document) error {
	v := doc.Plugins.SchemaVersion
	if v == 0 {
		doc.Plugins.SchemaVersion = CurrentSchemaVersion
		return nil
	}
	if v > CurrentSchemaVersion {
		return fmt.Errorf("schema_version %d is newer than this build supports (%d): downgrade rejected", v, CurrentSchemaVersion)
	}
	doc.Plugins.SchemaVersion = CurrentSchemaVersion
	return nil
}

// Path returns the resolved, active config file path.
func (s *Store) Path() string { return s.path }

// IsProjectScoped reports whether Path is a per-project `.novywave` (true)
// or the platform-global config.toml (false).
func (s *Store) IsProjectScoped() bool { return s.isProject }

// TakeCorruptError returns the corrupt-config error, if any, on its first
// call and nil afterwards, so the session layer emits exactly one Error
// response for it. The error stays recorded, so saves remain disabled.
func (s *Store) TakeCorruptError() *CorruptError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corrupt == nil || s.corruptTaken {
		return nil
	}
	s.corruptTaken = true
	return s.corrupt
}

// Mutate runs fn with exclusive access to the in-memory document, then
// schedules a debounced save under class. Callers must not retain the
// *Document passed to fn past the call.
func (s *Store) Mutate(class ChangeClass, fn func(*Document)) {
	s.mu.Lock()
	fn(s.doc)
	s.mu.Unlock()
	s.scheduleSave(class)
}

// Snapshot returns a value copy of the document's exported fields for
// read-only use (e.g. rendering a SessionSnapshot).
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.doc
}

func (s *Store) scheduleSave(class ChangeClass) {
	s.mu.Lock()
	if s.corrupt != nil {
		// Never overwrite the on-disk file while the in-memory document is
		// running on defaults recovered from a parse failure (spec.md §4.6).
		s.mu.Unlock()
		return
	}
	delay := debounceFor(class)
	if t, ok := s.timers[class]; ok {
		t.Stop()
	}
	if delay == 0 {
		s.mu.Unlock()
		s.saveNow()
		return
	}
	s.timers[class] = time.AfterFunc(delay, s.saveNow)
	s.mu.Unlock()
}

func (s *Store) saveNow() {
	s.mu.Lock()
	doc := s.doc
	path := s.path
	s.mu.Unlock()

	data, err := marshalWithUnknown(doc)
	if err != nil {
		s.log.WithError(err).Error("nwconfig: marshaling config")
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.log.WithError(err).Error("nwconfig: creating config directory")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.WithError(err).WithField("path", path).Error("nwconfig: writing config")
	}
}

// Close flushes any pending debounced save synchronously, so process exit
// never silently drops the last mutation.
func (s *Store) Close() {
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	corrupt := s.corrupt
	s.mu.Unlock()
	if corrupt == nil {
		s.saveNow()
	}
}

// marshalWithUnknown serializes doc's known fields, then merges them over
// doc.unknown so unmodeled top-level tables survive the round-trip (spec.md
// §4.6 "Unknown top-level sections survive round-trip").
func marshalWithUnknown(doc *Document) ([]byte, error) {
	knownBytes, err := toml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var knownMap map[string]any
	if err := toml.Unmarshal(knownBytes, &knownMap); err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(doc.unknown)+len(knownMap))
	for k, v := range doc.unknown {
		merged[k] = v
	}
	for k, v := range knownMap {
		merged[k] = v
	}
	return toml.Marshal(merged)
}
