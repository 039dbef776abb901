package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/novywave/engine/internal/decimate"
	"github.com/novywave/engine/internal/session"
	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
	"github.com/novywave/engine/internal/wire"
)

// rangeMember is one originating QueryDecimated request folded into a
// rangeGroup because it shares (start_ns, end_ns, pixel_count) with others.
type rangeMember struct {
	requestID string
	variables []string
}

// rangeGroup batches sibling QueryDecimated requests (spec.md §4.5
// "Coalesce range queries that share (start_ns, end_ns, pixel_count) ...
// into one DecimationEngine call") and answers them cooperatively
// cancellably (spec.md §5 "workers check a token between transitions").
type rangeGroup struct {
	startNs, endNs timeng.Ns
	pixelCount     uint32

	members []rangeMember
	varSet  map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

func rangeGroupKey(startNs, endNs timeng.Ns, pixelCount uint32) string {
	return fmt.Sprintf("%d|%d|%d", startNs, endNs, pixelCount)
}

// dispatchQueryDecimated folds req into an existing pending group sharing
// its range, or starts a new one with a batchWindow flush timer.
func (p *Pipeline) dispatchQueryDecimated(ctx context.Context, req wire.Request) {
	key := rangeGroupKey(req.StartNs, req.EndNs, req.PixelCount)

	p.mu.Lock()
	g, ok := p.groups[key]
	if ok {
		g.members = append(g.members, rangeMember{requestID: req.RequestID, variables: req.Variables})
		for _, v := range req.Variables {
			g.varSet[v] = true
		}
		p.mu.Unlock()
		return
	}

	gctx, cancel := context.WithCancel(ctx)
	g = &rangeGroup{
		startNs:    req.StartNs,
		endNs:      req.EndNs,
		pixelCount: req.PixelCount,
		members:    []rangeMember{{requestID: req.RequestID, variables: req.Variables}},
		varSet:     make(map[string]bool, len(req.Variables)),
		ctx:        gctx,
		cancel:     cancel,
	}
	for _, v := range req.Variables {
		g.varSet[v] = true
	}
	p.groups[key] = g
	p.mu.Unlock()

	time.AfterFunc(batchWindow, func() { p.flushGroup(key) })
}

// flushGroup runs the DecimationEngine once per distinct variable across
// every member request, then fans the shared results back out per
// originating request_id (spec.md §4.5 "Ordering" — each response still
// carries its own originator's id even though the computation was shared).
func (p *Pipeline) flushGroup(key string) {
	p.mu.Lock()
	g, ok := p.groups[key]
	if ok {
		delete(p.groups, key)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	onScreen := p.intersectsViewport(g.startNs, g.endNs)

	if onScreen {
		p.rangeSem <- struct{}{}
	} else {
		select {
		case p.rangeSem <- struct{}{}:
		default:
			// Backpressure: the soft bound is full and this range is
			// off-screen — drop it, most-recent-wins (spec.md §4.5).
			p.respondCancelled(g)
			return
		}
	}
	defer func() { <-p.rangeSem }()

	results := make(map[string]wire.VariableResult, len(g.varSet))
	for variable := range g.varSet {
		if g.ctx.Err() != nil {
			results[variable] = wire.VariableResult{VariableID: variable, ErrorKind: wire.ErrCancelled}
			continue
		}
		results[variable] = p.decimateOne(g.ctx, variable, g.startNs, g.endNs, g.pixelCount)
	}

	for _, m := range g.members {
		per := make([]wire.VariableResult, 0, len(m.variables))
		for _, v := range m.variables {
			if r, ok := results[v]; ok {
				per = append(per, r)
			}
		}
		p.emit(wire.Response{Type: wire.RespDecimated, RequestID: m.requestID, PerVariable: per})
	}
}

func (p *Pipeline) respondCancelled(g *rangeGroup) {
	for _, m := range g.members {
		per := make([]wire.VariableResult, 0, len(m.variables))
		for _, v := range m.variables {
			per = append(per, wire.VariableResult{VariableID: v, ErrorKind: wire.ErrCancelled})
		}
		p.emit(wire.Response{Type: wire.RespDecimated, RequestID: m.requestID, PerVariable: per})
	}
}

// decimateOne runs the full StreamTransitions -> decimate.Run -> wire chain
// for one variable, surfacing a per-variable error rather than failing
// sibling variables (spec.md §4.5 "Error surfacing").
func (p *Pipeline) decimateOne(ctx context.Context, variableID string, startNs, endNs timeng.Ns, pixelCount uint32) wire.VariableResult {
	filePath, localID := session.SplitVariableID(variableID)
	span, _, err := p.store.Span(filePath)
	if err != nil {
		return wire.VariableResult{VariableID: variableID, ErrorKind: classifyDomainErr(err)}
	}
	prior, transitions, err := p.store.StreamTransitions(ctx, filePath, localID, startNs, endNs)
	if err != nil {
		return wire.VariableResult{VariableID: variableID, ErrorKind: classifyDomainErr(err)}
	}
	points, err := decimate.Run(decimate.Request{StartNs: startNs, EndNs: endNs, PixelCount: pixelCount}, span, prior, transitions)
	if err != nil {
		return wire.VariableResult{VariableID: variableID, ErrorKind: wire.ErrInvalidRequest}
	}
	wirePoints := make([]wire.DecimatedPoint, len(points))
	for i, pt := range points {
		wirePoints[i] = pointToWire(pt)
	}
	return wire.VariableResult{VariableID: variableID, Points: wirePoints}
}

// intersectsViewport reports whether [startNs, endNs) overlaps the last
// SetViewport request the pipeline observed; with no viewport yet, every
// range is treated as on-screen (spec.md §4.5 "on-screen queries are never
// dropped" — the safe default before the UI has told us otherwise).
func (p *Pipeline) intersectsViewport(startNs, endNs timeng.Ns) bool {
	p.mu.Lock()
	vp, has := p.viewport, p.hasViewport
	p.mu.Unlock()
	if !has {
		return true
	}
	return startNs < vp.EndNs && endNs > vp.StartNs
}

// cancelOffscreenGroups cancels every pending rangeGroup whose range no
// longer overlaps the new viewport (spec.md §4.5 "Cancellation. When the
// viewport changes, outstanding range queries for the old viewport are
// cancelled").
func (p *Pipeline) cancelOffscreenGroups(old, newViewport wire.Request) {
	p.mu.Lock()
	var toCancel []*rangeGroup
	for key, g := range p.groups {
		if !(g.startNs < newViewport.EndNs && g.endNs > newViewport.StartNs) {
			g.cancel()
			toCancel = append(toCancel, g)
			delete(p.groups, key)
		}
	}
	p.mu.Unlock()
	for _, g := range toCancel {
		p.respondCancelled(g)
	}
}

// dispatchQueryValuesAt throttles cursor-probe requests to at most one
// in-flight at a time: a newer request evicts an unprocessed older one
// (spec.md §4.5 "Throttling ... the latest request supersedes queued
// ones").
func (p *Pipeline) dispatchQueryValuesAt(req wire.Request) {
	select {
	case p.probeCh <- req:
	default:
		select {
		case <-p.probeCh:
		default:
		}
		p.probeCh <- req
	}
}

func (p *Pipeline) runProbeWorker() {
	for {
		select {
		case req := <-p.probeCh:
			p.handleValuesAt(req)
		case <-p.done:
			return
		}
	}
}

func (p *Pipeline) handleValuesAt(req wire.Request) {
	per := make([]wire.VariableResult, 0, len(req.Variables))
	for _, variable := range req.Variables {
		filePath, localID := session.SplitVariableID(variable)
		span, _, err := p.store.Span(filePath)
		if err != nil {
			per = append(per, wire.VariableResult{VariableID: variable, ErrorKind: classifyDomainErr(err)})
			continue
		}
		if !span.Contains(req.TimeNs) {
			per = append(per, wire.VariableResult{VariableID: variable, Value: valueToWire(sigval.NoData)})
			continue
		}
		prior, transitions, err := p.store.StreamTransitions(context.Background(), filePath, localID, 0, req.TimeNs+1)
		if err != nil {
			per = append(per, wire.VariableResult{VariableID: variable, ErrorKind: classifyDomainErr(err)})
			continue
		}
		value := prior
		for _, tr := range transitions {
			if tr.TimeNs > req.TimeNs {
				break
			}
			value = tr.Value
		}
		per = append(per, wire.VariableResult{VariableID: variable, Value: valueToWire(value)})
	}
	p.emit(wire.Response{Type: wire.RespValuesAt, RequestID: req.RequestID, PerVariable: per})
}
