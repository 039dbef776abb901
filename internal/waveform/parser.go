package waveform

import "context"

// ParserAdapter is the boundary between the engine and a concrete waveform
// file format. Production deployments would bind this to a real FST/GHW/VCD
// C-library wrapper; that binding is out of scope here (spec.md Non-goals —
// "no bundled third-party waveform-format parser"), so the engine is built
// against this interface and exercised end-to-end by the plain-text VCD
// adapter in internal/waveform/vcdtext.
//
// Header parsing must be eager and cheap; body parsing may be arbitrarily
// expensive and is only invoked once, lazily, on first range query against a
// file (spec.md §4.3 "body parsing happens off the request-handling
// goroutine, triggered by the first query that needs it").
type ParserAdapter interface {
	// Extensions lists the lowercase file extensions (including the leading
	// dot) this adapter claims, e.g. ".vcd".
	Extensions() []string

	// ParseHeader reads just the hierarchy, span, and unit hint.
	ParseHeader(ctx context.Context, path string) (HeaderResult, error)

	// ParseBody reads the full transition stream for every variable named in
	// header. Called at most once per loaded file.
	ParseBody(ctx context.Context, path string, header HeaderResult) (BodyResult, error)
}

// adapterFor returns the first registered adapter claiming ext (matched
// case-insensitively by the caller), or nil.
func adapterFor(adapters []ParserAdapter, ext string) ParserAdapter {
	for _, a := range adapters {
		for _, e := range a.Extensions() {
			if e == ext {
				return a
			}
		}
	}
	return nil
}
