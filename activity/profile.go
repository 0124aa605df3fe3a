// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package activity accumulates per-locus activity probabilities, smooths
// them with a band-pass kernel and cuts the smoothed signal into active and
// inactive candidate regions.
package activity

import (
	"fmt"
	"math"

	"github.com/grailbio/assembly/circular"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Pending is a decided region that has not been filled with reads yet.
type Pending struct {
	Span       interval.Span
	PaddedSpan interval.Span
	Active     bool
	// States are the raw states of the loci in Span, in order.
	States []State
}

// Profile is a window of consecutive loci on one contig.  States are added at
// the back; decided regions are popped from the front.  Not thread safe.
type Profile struct {
	opts       Opts
	kernel     []float64
	filterSize int

	// states[i] is the raw state of locus start+i.
	states circular.Queue[State]
	// probs[i] is the smoothed probability of locus start+i.  probs may run
	// past states: that is mass already spread onto loci not added yet.
	probs circular.Queue[float64]
	start interval.Locus
}

// NewProfile creates an empty profile.
func NewProfile(opts Opts) (*Profile, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	kernel := newKernel(opts)
	p := &Profile{opts: opts, kernel: kernel, filterSize: (len(kernel) - 1) / 2}
	if log.At(log.Debug) {
		log.Debug.Printf("activity.NewProfile: filter size %d (max %d), propagation %d", p.filterSize, opts.MaxFilterSize, p.propagation())
	}
	return p, nil
}

// FilterSize returns the half-width of the kernel in use.
func (p *Profile) FilterSize() int { return p.filterSize }

// propagation is the distance over which Add can change a locus's smoothed
// probability.
func (p *Profile) propagation() int { return p.opts.MaxProbPropagationDistance + p.filterSize }

// IsEmpty returns true iff the profile holds no loci.
func (p *Profile) IsEmpty() bool { return p.states.Len() == 0 }

// End returns the last locus added.  ok is false if the profile is empty.
func (p *Profile) End() (l interval.Locus, ok bool) {
	if p.IsEmpty() {
		return interval.Locus{}, false
	}
	return p.states.Back().Locus, true
}

// Add appends s.  s.Locus must immediately follow End() unless the profile is
// empty.
func (p *Profile) Add(s State) error {
	if s.Locus.Ref == nil || s.Locus.Pos < 0 || s.Locus.Pos >= s.Locus.Ref.Len() {
		return errors.E(errors.Invalid, fmt.Sprintf("activity.Profile.Add: locus %v outside its contig", s.Locus))
	}
	if math.IsNaN(s.Prob) || s.Prob < 0 || s.Prob > 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("activity.Profile.Add: probability %v at %v outside [0, 1]", s.Prob, s.Locus))
	}
	if end, ok := p.End(); ok {
		if !end.Adjacent(s.Locus) {
			return errors.E(errors.Invalid, fmt.Sprintf("activity.Profile.Add: %v does not follow %v", s.Locus, end))
		}
	} else {
		p.start = s.Locus
		p.probs.Clear()
	}
	p.states.PushBack(s)
	for p.probs.Len() < p.states.Len() {
		p.probs.PushBack(0)
	}
	if s.Prob == 0 {
		return nil
	}
	if s.Kind == HighQualitySoftClips {
		n := int(s.Value)
		if n > p.opts.MaxProbPropagationDistance {
			n = p.opts.MaxProbPropagationDistance
		}
		for pos := s.Locus.Pos - n; pos <= s.Locus.Pos+n; pos++ {
			if pos >= 0 && pos < s.Locus.Ref.Len() {
				p.spread(pos, s.Prob)
			}
		}
		return nil
	}
	p.spread(s.Locus.Pos, s.Prob)
	return nil
}

// spread adds prob at pos, smoothed by the kernel, to the accumulated
// probabilities.  Mass landing before the profile start or past the contig
// end is dropped.
func (p *Profile) spread(pos int, prob float64) {
	refLen := p.start.Ref.Len()
	for i, w := range p.kernel {
		target := pos - p.filterSize + i
		if target < p.start.Pos || target >= refLen {
			continue
		}
		idx := target - p.start.Pos
		for p.probs.Len() <= idx {
			p.probs.PushBack(0)
		}
		*p.probs.Ptr(idx) += prob * w
	}
}

// decided returns the number of loci from the front whose smoothed
// probability can no longer change.
func (p *Profile) decided() int {
	n := p.states.Len() - p.propagation()
	if n < 0 {
		return 0
	}
	return n
}

func (p *Profile) isActive(i int) bool { return p.probs.At(i) > p.opts.ActiveProbThreshold }

// runEnd returns the first index in [from, limit) whose activity differs from
// active, or limit.
func (p *Profile) runEnd(from int, active bool, limit int) int {
	i := from
	for i < limit && p.isActive(i) == active {
		i++
	}
	return i
}

// isMinimum reports whether probs[i] is a local minimum among the first n
// loci.
func (p *Profile) isMinimum(i, n int) bool {
	if i < 1 || i >= n-1 {
		return false
	}
	v := p.probs.At(i)
	return v < p.probs.At(i-1) && v <= p.probs.At(i+1)
}

// bestCutSite returns the region length, in [minSize, end], that ends just
// after the lowest local minimum of the smoothed signal, or end if there is
// none.
func (p *Profile) bestCutSite(end, minSize, n int) int {
	minI, minP := end-1, math.MaxFloat64
	for i := end - 1; i >= minSize-1; i-- {
		if v := p.probs.At(i); v < minP && p.isMinimum(i, n) {
			minI, minP = i, v
		}
	}
	return minI + 1
}

// popNext pops the next region among the first n (eligible) loci.  It
// returns false if no region can be decided yet.
func (p *Profile) popNext(n, padding, minSize, maxSize int, force bool) (Pending, bool) {
	if n == 0 {
		return Pending{}, false
	}
	limit := n
	if maxSize < limit {
		limit = maxSize
	}
	active := p.isActive(0)
	end := p.runEnd(0, active, limit)
	if !active && end < limit && end < minSize {
		// A short inactive run joins the active run that follows it.
		active = true
		end = p.runEnd(end, true, limit)
	}
	if active && end == maxSize {
		runLen := p.runEnd(end, true, n)
		switch {
		case runLen == n && !force && n < maxSize+minSize:
			// Wait until a cut can leave at least minSize loci of the run.
			return Pending{}, false
		case runLen < n || force:
			if runLen <= maxSize {
				end = runLen
				break
			}
			maxCut := runLen - minSize
			if maxCut > maxSize {
				maxCut = maxSize
			}
			if maxCut < minSize {
				maxCut = minSize
			}
			end = p.bestCutSite(maxCut, minSize, n)
		default:
			end = p.bestCutSite(end, minSize, n)
		}
	} else if active && end < n {
		// A short inactive run after an active one is absorbed into it.
		tail := p.runEnd(end, false, n)
		if tail-end < minSize && tail <= maxSize && (tail < n || force) {
			end = tail
		}
	}

	span := interval.Span{Ref: p.start.Ref, Start: p.start.Pos, End: p.start.Pos + end}
	pending := Pending{
		Span:       span,
		PaddedSpan: span.Pad(padding),
		Active:     active,
		States:     make([]State, end),
	}
	for i := range pending.States {
		pending.States[i] = p.states.PopFront()
		p.probs.PopFront()
	}
	p.start.Pos += end
	return pending, true
}

// PopReadyRegions pops the regions that have been decided.  Unless force is
// set, only loci that no future Add can change are considered, and nothing is
// popped until more than maxSize of them exist.  With force the profile is
// drained completely; probability mass already spread past End() is dropped.
// An active run longer than maxSize is cut so that at least minSize of its
// loci remain, when its length allows.
//
// REQUIRES: 1 <= minSize <= maxSize, padding >= 0.
func (p *Profile) PopReadyRegions(padding, minSize, maxSize int, force bool) []Pending {
	if p.IsEmpty() {
		return nil
	}
	if force {
		p.probs.Truncate(p.states.Len())
	}
	var out []Pending
	for {
		n := p.states.Len()
		if !force {
			if n = p.decided(); n <= maxSize {
				break
			}
		}
		pending, ok := p.popNext(n, padding, minSize, maxSize, force)
		if !ok {
			break
		}
		if log.At(log.Debug) {
			log.Debug.Printf("activity: region %v active=%v force=%v", pending.Span, pending.Active, force)
		}
		out = append(out, pending)
	}
	if force {
		p.probs.Clear()
	}
	return out
}
