// Package vcdtext is the trusted-boundary stand-in waveform.ParserAdapter
// for plain-text Value Change Dump files. A production build would bind
// waveform.ParserAdapter to a real FST/GHW/VCD C library; that binding is
// explicitly out of scope (spec.md Non-goals), so this adapter exists to
// make the engine exercisable and testable end-to-end against a real,
// if minimal, waveform format. It supports the commonly-emitted subset of
// VCD: $timescale, $scope/$upscope/$var, $enddefinitions, $dumpvars/$dumpall,
// and scalar/vector/real value-change lines.
package vcdtext

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/waveform"
)

// Adapter implements waveform.ParserAdapter for plain-text VCD.
type Adapter struct{}

// New constructs a VCD text adapter.
func New() *Adapter { return &Adapter{} }

// Extensions implements waveform.ParserAdapter.
func (a *Adapter) Extensions() []string { return []string{".vcd"} }

// ident describes one VCD short identifier code declared by a $var line.
type ident struct {
	variableID string
	width      uint32
}

// ParseHeader implements waveform.ParserAdapter. It reads the declarations
// block and then takes one lightweight pass over the whole file to find the
// last timestamp, without decoding any values.
func (a *Adapter) ParseHeader(ctx context.Context, path string) (waveform.HeaderResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return waveform.HeaderResult{}, err
	}
	defer f.Close()

	root, _, unit, mul, err := parseDeclarations(f)
	if err != nil {
		return waveform.HeaderResult{}, err
	}

	maxRaw, err := scanMaxTimestamp(f)
	if err != nil {
		return waveform.HeaderResult{}, err
	}
	// A ConversionWarning here just means sub-nanosecond precision was
	// clamped; the returned Ns is still usable (DESIGN.md Open Questions).
	end, _ := timeng.FromUnit(maxRaw*mul, unit)

	return waveform.HeaderResult{
		Root: root,
		Span: timeng.Span{Start: 0, End: end},
		Unit: unit,
	}, nil
}

// ParseBody implements waveform.ParserAdapter: a full second pass building
// every variable's transition stream.
func (a *Adapter) ParseBody(ctx context.Context, path string, header waveform.HeaderResult) (waveform.BodyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return waveform.BodyResult{}, err
	}
	defer f.Close()

	_, idents, unit, mul, err := parseDeclarations(f)
	if err != nil {
		return waveform.BodyResult{}, err
	}
	// parseDeclarations' scanner reads ahead, so rewind and skip the
	// declaration commands again before decoding value changes.
	if _, err := f.Seek(0, 0); err != nil {
		return waveform.BodyResult{}, err
	}

	transitions := make(map[string][]sigval.Transition, len(idents))
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		tok := sc.Text()
		if !strings.HasPrefix(tok, "$") {
			continue
		}
		readUntilEnd(sc)
		if tok == "$enddefinitions" {
			break
		}
	}

	var curTimeNs timeng.Ns
	for sc.Scan() {
		tok := sc.Text()
		if tok == "" {
			continue
		}
		switch tok[0] {
		case '#':
			raw, perr := strconv.ParseUint(tok[1:], 10, 64)
			if perr != nil {
				continue
			}
			ns, _ := timeng.FromUnit(raw*mul, unit)
			curTimeNs = ns
		case '$':
			// $dumpvars/$dumpall/$dumpon/$dumpoff/$end wrap value-change
			// lines, not opaque arguments — fall through to ordinary
			// scanning for everything except commands that truly carry
			// free-form text (e.g. $comment).
			switch tok {
			case "$dumpvars", "$dumpall", "$dumpon", "$dumpoff", "$end":
				// nothing to skip; next tokens are value changes (or, for
				// $end, the dump section is simply over).
			default:
				readUntilEnd(sc)
			}
		case 'b', 'B':
			valTok := tok[1:]
			if !sc.Scan() {
				break
			}
			idTok := sc.Text()
			appendVectorTransition(transitions, idents, idTok, valTok, curTimeNs)
		case 'r', 'R':
			// Real values: skip the identifier token but don't attempt
			// to model them as bit vectors.
			if sc.Scan() {
				_ = sc.Text()
			}
		default:
			if len(tok) < 2 {
				continue
			}
			valCh := tok[0]
			idTok := tok[1:]
			appendScalarTransition(transitions, idents, idTok, valCh, curTimeNs)
		}
	}
	if err := sc.Err(); err != nil {
		return waveform.BodyResult{}, err
	}

	for id := range transitions {
		sortTransitions(transitions[id])
	}
	return waveform.BodyResult{Transitions: transitions}, nil
}

func appendScalarTransition(out map[string][]sigval.Transition, idents map[string]ident, idTok string, valCh byte, t timeng.Ns) {
	info, ok := idents[idTok]
	if !ok {
		return
	}
	v, ok := scalarValue(valCh, info.width)
	if !ok {
		return
	}
	out[info.variableID] = append(out[info.variableID], sigval.Transition{TimeNs: t, Value: v})
}

func appendVectorTransition(out map[string][]sigval.Transition, idents map[string]ident, idTok, valTok string, t timeng.Ns) {
	info, ok := idents[idTok]
	if !ok {
		return
	}
	v, ok := vectorValue(valTok, info.width)
	if !ok {
		return
	}
	out[info.variableID] = append(out[info.variableID], sigval.Transition{TimeNs: t, Value: v})
}

func scalarValue(c byte, width uint32) (sigval.Value, bool) {
	switch c {
	case '0':
		return sigval.NewBits(width, []byte{0}), true
	case '1':
		return sigval.NewBits(width, []byte{1}), true
	case 'x', 'X':
		return sigval.NewSpecial(width, sigval.SpecialX), true
	case 'z', 'Z':
		return sigval.NewSpecial(width, sigval.SpecialZ), true
	case 'u', 'U':
		return sigval.NewSpecial(width, sigval.SpecialU), true
	default:
		return sigval.Value{}, false
	}
}

// vectorValue parses a VCD binary literal ("b0101" without the leading 'b',
// so the argument here is just "0101") into a little-endian bit-packed
// Value, or a Special value if any digit is non-binary.
func vectorValue(bin string, width uint32) (sigval.Value, bool) {
	if bin == "" {
		return sigval.Value{}, false
	}
	for _, r := range bin {
		switch r {
		case 'x', 'X':
			return sigval.NewSpecial(width, sigval.SpecialX), true
		case 'z', 'Z':
			return sigval.NewSpecial(width, sigval.SpecialZ), true
		case 'u', 'U':
			return sigval.NewSpecial(width, sigval.SpecialU), true
		}
	}
	nbytes := int((width + 7) / 8)
	if nbytes == 0 {
		nbytes = 1
	}
	bits := make([]byte, nbytes)
	for i := len(bin) - 1; i >= 0; i-- {
		bitIndex := len(bin) - 1 - i
		if bin[i] == '1' {
			byteIdx := bitIndex / 8
			if byteIdx >= nbytes {
				continue
			}
			bits[byteIdx] |= 1 << uint(bitIndex%8)
		}
	}
	return sigval.NewBits(width, bits), true
}

func sortTransitions(trs []sigval.Transition) {
	for i := 1; i < len(trs); i++ {
		for j := i; j > 0 && trs[j].TimeNs < trs[j-1].TimeNs; j-- {
			trs[j], trs[j-1] = trs[j-1], trs[j]
		}
	}
}

// parseDeclarations reads everything up to and including `$enddefinitions
// $end`, building the scope tree, the identifier-code table, and the
// timescale. It seeks f to the start first. Its scanner reads ahead in
// large chunks, so afterwards f's read position is not just after that
// command; a caller that needs the value-change data rewinds f and skips
// the declarations itself (see ParseBody).
func parseDeclarations(f *os.File) (root *waveform.Scope, idents map[string]ident, unit timeng.Unit, multiplier uint64, err error) {
	if _, serr := f.Seek(0, 0); serr != nil {
		return nil, nil, timeng.UnitNs, 1, serr
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)

	root = &waveform.Scope{ID: "", Name: ""}
	stack := []*waveform.Scope{root}
	idents = make(map[string]ident)
	unit = timeng.UnitNs
	multiplier = 1

	for sc.Scan() {
		tok := sc.Text()
		if !strings.HasPrefix(tok, "$") {
			continue
		}
		switch tok {
		case "$timescale":
			args := readUntilEnd(sc)
			multiplier, unit = parseTimescale(args)
		case "$scope":
			args := readUntilEnd(sc)
			if len(args) < 2 {
				continue
			}
			name := args[1]
			parent := stack[len(stack)-1]
			child := &waveform.Scope{ID: scopePath(parent, name), Name: name}
			parent.Children = append(parent.Children, child)
			stack = append(stack, child)
		case "$upscope":
			readUntilEnd(sc)
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case "$var":
			args := readUntilEnd(sc)
			if len(args) < 4 {
				continue
			}
			kind := args[0]
			width64, _ := strconv.ParseUint(args[1], 10, 32)
			code := args[2]
			name := args[3]
			parent := stack[len(stack)-1]
			vid := scopePath(parent, name)
			parent.Variables = append(parent.Variables, waveform.Variable{
				ID:    vid,
				Name:  name,
				Width: uint32(width64),
				Kind:  signalKind(kind),
			})
			idents[code] = ident{variableID: vid, width: uint32(width64)}
		case "$enddefinitions":
			readUntilEnd(sc)
			return root, idents, unit, multiplier, nil
		default:
			readUntilEnd(sc)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, unit, multiplier, err
	}
	return root, idents, unit, multiplier, nil
}

func scopePath(parent *waveform.Scope, name string) string {
	if parent.ID == "" {
		return name
	}
	return parent.ID + "." + name
}

func signalKind(vcdType string) waveform.SignalKind {
	switch strings.ToLower(vcdType) {
	case "reg":
		return waveform.KindReg
	case "integer":
		return waveform.KindInteger
	case "real", "realtime":
		return waveform.KindReal
	case "parameter":
		return waveform.KindParameter
	case "event":
		return waveform.KindEvent
	default:
		return waveform.KindWire
	}
}

// readUntilEnd collects tokens up to (excluding) a literal "$end" token.
func readUntilEnd(sc *bufio.Scanner) []string {
	var args []string
	for sc.Scan() {
		tok := sc.Text()
		if tok == "$end" {
			break
		}
		args = append(args, tok)
	}
	return args
}

// parseTimescale interprets the $timescale argument list, e.g. ["1ns"] or
// ["10", "ns"], into a magnitude and a timeng.Unit.
func parseTimescale(args []string) (uint64, timeng.Unit) {
	joined := strings.Join(args, "")
	i := 0
	for i < len(joined) && (joined[i] >= '0' && joined[i] <= '9') {
		i++
	}
	magStr, unitStr := joined[:i], joined[i:]
	mag, err := strconv.ParseUint(magStr, 10, 64)
	if err != nil || mag == 0 {
		mag = 1
	}
	switch strings.ToLower(unitStr) {
	case "fs":
		return mag, timeng.UnitFs
	case "ps":
		return mag, timeng.UnitPs
	case "us":
		return mag, timeng.UnitUs
	case "ms":
		return mag, timeng.UnitMs
	case "s":
		return mag, timeng.UnitS
	default:
		return mag, timeng.UnitNs
	}
}

// scanMaxTimestamp takes one pass over the remainder of f (already
// positioned after $enddefinitions $end by the caller's own earlier scan,
// but since each call reopens the file, this re-scans from the start and
// only tracks '#' tokens) to find the last declared simulation time.
func scanMaxTimestamp(f *os.File) (uint64, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return 0, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	var max uint64
	for sc.Scan() {
		tok := sc.Text()
		if len(tok) > 1 && tok[0] == '#' {
			if raw, err := strconv.ParseUint(tok[1:], 10, 64); err == nil && raw > max {
				max = raw
			}
		}
	}
	return max, sc.Err()
}
