// Package decimate implements the peak-preserving bucketization algorithm
// of spec.md §4.3: reducing an arbitrarily long transition stream to at
// most pixel_count buckets while never losing a sub-pixel pulse's
// visibility. It is pure numeric logic with no analog in the retrieved
// example pack — no third-party library applies (see DESIGN.md).
package decimate

import (
	"errors"
	"fmt"

	"github.com/novywave/engine/internal/sigval"
	"github.com/novywave/engine/internal/timeng"
)

// ErrZeroPixelCount is returned when PixelCount == 0, a protocol error per
// spec.md §4.3 ("Pixel counts of 0 are a protocol error").
var ErrZeroPixelCount = errors.New("decimate: pixel_count must be > 0")

// Request describes one range query for a single variable.
type Request struct {
	StartNs    timeng.Ns
	EndNs      timeng.Ns
	PixelCount uint32
}

// Point is the domain form of spec.md §3's DecimatedPoint.
type Point struct {
	BucketStartNs     timeng.Ns
	BucketEndNs       timeng.Ns
	FirstTransitionNs timeng.Ns
	LastTransitionNs  timeng.Ns
	HasTransition     bool
	MinValue          sigval.Value
	MaxValue          sigval.Value
	Representative    sigval.Value
	HasSpecialState   bool
	NoData            bool
}

// Run decimates transitions (assumed sorted ascending by TimeNs, and
// restricted to req.StartNs <= t < req.EndNs by the caller) into at most
// req.PixelCount buckets tiling [req.StartNs, req.EndNs) exactly.
//
// fileSpan is the variable's owning file's span; buckets entirely outside
// it emit NoData (spec.md §4.3 step 5). priorValue is the value that was in
// effect immediately before req.StartNs (the last transition strictly
// before StartNs, or NoData if none / before the file's span) — it seeds
// carry-forward into the first bucket when that bucket contains no
// transition of its own.
func Run(req Request, fileSpan timeng.Span, priorValue sigval.Value, transitions []sigval.Transition) ([]Point, error) {
	if req.PixelCount == 0 {
		return nil, ErrZeroPixelCount
	}
	if req.EndNs < req.StartNs {
		return nil, fmt.Errorf("decimate: end_ns %d < start_ns %d", req.EndNs, req.StartNs)
	}

	if req.StartNs == req.EndNs {
		return []Point{pointwisePoint(req.StartNs, fileSpan, priorValue, transitions)}, nil
	}

	edges := bucketEdges(req.StartNs, req.EndNs, req.PixelCount)

	points := make([]Point, 0, len(edges)-1)
	carry := priorValue
	ti := 0
	for b := 0; b < len(edges)-1; b++ {
		lb, rb := edges[b], edges[b+1]

		if lb > fileSpan.End || rb <= fileSpan.Start {
			// Entirely outside the closed file span.
			points = append(points, Point{BucketStartNs: lb, BucketEndNs: rb, NoData: true})
			continue
		}

		p := Point{BucketStartNs: lb, BucketEndNs: rb}
		var (
			min, max       sigval.Value
			hasValue       bool
			lastInBucket   sigval.Value
			lastSpecial    sigval.Value
		)

		for ti < len(transitions) && transitions[ti].TimeNs < rb {
			tr := transitions[ti]
			if tr.TimeNs < lb {
				// Shouldn't happen if caller filtered correctly, but guard anyway.
				ti++
				continue
			}
			if !p.HasTransition {
				p.FirstTransitionNs = tr.TimeNs
				p.HasTransition = true
			}
			p.LastTransitionNs = tr.TimeNs
			lastInBucket = tr.Value
			if !hasValue {
				min, max = tr.Value, tr.Value
				hasValue = true
			} else {
				if sigval.Compare(tr.Value, min) < 0 {
					min = tr.Value
				}
				if sigval.Compare(tr.Value, max) > 0 {
					max = tr.Value
				}
			}
			if tr.Value.IsSpecial() && tr.Value.Special != sigval.SpecialNone {
				p.HasSpecialState = true
				lastSpecial = tr.Value
			}
			ti++
		}

		if hasValue {
			p.MinValue, p.MaxValue = min, max
			p.Representative = representative(lastSpecial, lastInBucket, p.HasSpecialState)
			carry = lastInBucket
		} else {
			p.MinValue, p.MaxValue, p.Representative = carry, carry, carry
			if carry.IsSpecial() {
				p.HasSpecialState = true
			}
		}

		points = append(points, p)
	}

	return points, nil
}

// representative picks the value shown to label a bucket: the last Special
// seen if any (spec.md §4.3 step 3), else the last transition's value.
func representative(lastSpecial, last sigval.Value, hasSpecial bool) sigval.Value {
	if hasSpecial {
		if last.IsSpecial() {
			return last
		}
		return lastSpecial
	}
	return last
}

// bucketEdges computes pixelCount+1 edges tiling [start, end) exactly per
// spec.md §4.3 step 1: ns_per_pixel = floor((end-start)/pixel_count), with
// the residual (end-start) mod pixel_count nanoseconds distributed one each
// to the first r buckets.
func bucketEdges(start, end timeng.Ns, pixelCount uint32) []timeng.Ns {
	total := uint64(end - start)
	n := uint64(pixelCount)
	perPixel := total / n
	residual := total % n

	edges := make([]timeng.Ns, pixelCount+1)
	edges[0] = start
	cur := uint64(start)
	for i := uint64(0); i < n; i++ {
		width := perPixel
		if i < residual {
			width++
		}
		cur += width
		edges[i+1] = timeng.Ns(cur)
	}
	return edges
}

// pointwisePoint handles the zero-width range case (start == end): a single
// bucket reporting the value at that exact instant (spec.md §4.3 "Zero-width
// ranges yield one bucket with the pointwise value").
func pointwisePoint(t timeng.Ns, fileSpan timeng.Span, priorValue sigval.Value, transitions []sigval.Transition) Point {
	if !fileSpan.Contains(t) {
		return Point{BucketStartNs: t, BucketEndNs: t, NoData: true}
	}
	value := priorValue
	for _, tr := range transitions {
		if tr.TimeNs > t {
			break
		}
		value = tr.Value
	}
	return Point{
		BucketStartNs:   t,
		BucketEndNs:     t,
		MinValue:        value,
		MaxValue:        value,
		Representative:  value,
		HasSpecialState: value.IsSpecial(),
	}
}
