// Package logging centralizes logrus setup for every engine component
// (SPEC_FULL.md §2 "internal/logging"), following the teacher's
// `log "github.com/sirupsen/logrus"` usage in internal/vm/machine_linux.go.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures the root logger.
type Options struct {
	// Level is a logrus level name ("debug", "info", "warn", "error"); an
	// unrecognized or empty value defaults to "info".
	Level string
	// JSON selects the JSON formatter (for log aggregation) over the
	// human-readable text formatter (the default, for terminal use).
	JSON bool
	// Output defaults to os.Stderr, keeping stdout free for the
	// newline-delimited wire protocol (internal/engineio) when the engine
	// is driven over stdio instead of a socket.
	Output io.Writer
}

// New builds the root *logrus.Logger every component derives its
// component-scoped *logrus.Entry from.
func New(opts Options) *logrus.Logger {
	l := logrus.New()
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stderr)
	}
	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// ForComponent returns an Entry pre-populated with the "component" field
// (spec.md §7 "fields: component, entity, error_kind"), the discriminator
// every other package's log lines carry.
func ForComponent(l *logrus.Logger, component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithEntity adds the "entity" field (a file path, variable_id, or plugin
// id — spec.md §7) to an existing component entry.
func WithEntity(e *logrus.Entry, entity string) *logrus.Entry {
	return e.WithField("entity", entity)
}

// WithErrorKind adds the "error_kind" field matching one of the wire
// protocol's enumerated error kinds (internal/wire's Err* constants),
// keeping the logged value and the wire value identical so log lines can
// be correlated with client-visible errors.
func WithErrorKind(e *logrus.Entry, kind string) *logrus.Entry {
	return e.WithField("error_kind", kind)
}
