package waveform

import "errors"

// Sentinel errors, translated by internal/pipeline to wire.ErrInvalidRequest
// (ErrNotTracked), wire.ErrUnsupportedFormat and wire.ErrOutOfRange
// (ErrVariableNotFound); any other error becomes wire.ErrParseError.
var (
	ErrNotTracked        = errors.New("waveform: path is not tracked")
	ErrUnsupportedFormat = errors.New("waveform: no adapter registered for this extension")
	ErrVariableNotFound   = errors.New("waveform: variable id not found in file")
)
