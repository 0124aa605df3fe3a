// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"fmt"

	"github.com/grailbio/assembly/activity"
	"github.com/grailbio/assembly/circular"
	"github.com/grailbio/assembly/encoding/fasta"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/assembly/pileup"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

// ErrExhausted is returned by Segmenter.Next when there are no regions left.
var ErrExhausted = errors.E(errors.Precondition, "assembly: no more regions")

// Segmenter cuts a shard into assembly regions.  It is a pull iterator: each
// Next call reads just enough loci and reads to finalize one region.  Not
// thread safe.
type Segmenter struct {
	opts     Opts
	ref      fasta.Fasta
	features *interval.FeatureIndex
	eval     Evaluator

	reads    *pileup.CachingIterator
	byState  *pileup.ByState
	loci     pileup.LocusIterator
	lociDone bool
	drained  bool

	profile *activity.Profile
	// Regions decided by the profile but not yet handed out.
	pending circular.Queue[activity.Pending]
	cache   ReadCache
	pileups PileupQueue
	// Reads of the region returned last; they may overlap the next one too.
	prevReads []*sam.Record

	next   *Region
	err    error
	closed bool
}

// checkIntervals verifies that spans lie on contigs of header.
func checkIntervals(header *sam.Header, spans []interval.Span) error {
	refs := header.Refs()
	for _, s := range spans {
		if s.Ref == nil || s.Ref.ID() < 0 || s.Ref.ID() >= len(refs) || refs[s.Ref.ID()] != s.Ref {
			return errors.E(errors.Invalid, "assembly.New: interval", s.String(), "is not on a contig of the header")
		}
		if s.Start < 0 || s.Empty() || s.End > s.Ref.Len() {
			return errors.E(errors.Invalid, "assembly.New: interval", s.String(), "is empty or outside its contig")
		}
	}
	return nil
}

// New creates a Segmenter over shard.  ref and features are optional; when
// nil, the evaluator sees contexts without data.
func New(shard *Shard, header *sam.Header, ref fasta.Fasta, features *interval.FeatureIndex, eval Evaluator, opts Opts) (*Segmenter, error) {
	switch {
	case shard == nil:
		return nil, errors.E(errors.Invalid, "assembly.New: nil shard")
	case shard.Reads == nil:
		return nil, errors.E(errors.Invalid, "assembly.New: nil shard reads")
	case header == nil:
		return nil, errors.E(errors.Invalid, "assembly.New: nil header")
	case eval == nil:
		return nil, errors.E(errors.Invalid, "assembly.New: nil evaluator")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	spans := shard.Intervals
	if len(spans) == 0 {
		spans = interval.WholeGenome(header)
	} else if err := checkIntervals(header, spans); err != nil {
		return nil, err
	}
	spans = interval.MergeSpans(spans)
	if ref != nil {
		if err := pileup.CheckReference(ref, header.Refs()); err != nil {
			return nil, errors.E(errors.Invalid, err)
		}
	}
	profile, err := activity.NewProfile(opts.Profile)
	if err != nil {
		return nil, err
	}
	s := &Segmenter{
		opts:     opts,
		ref:      ref,
		features: features,
		eval:     eval,
		reads:    pileup.NewCachingIterator(shard.Reads),
		profile:  profile,
	}
	s.byState = pileup.NewByState(s.reads)
	s.loci = pileup.NewIntervalIterator(s.byState, spans)
	if log.At(log.Debug) {
		log.Debug.Printf("assembly.New: %d interval(s), padding %d, region size [%d, %d]",
			len(spans), opts.Padding, opts.MinRegionSize, opts.MaxRegionSize)
	}
	return s, nil
}

// HasNext returns true iff Next will return a region.  It returns false
// after an error; the error is returned by Next and Err.
func (s *Segmenter) HasNext() bool {
	if s.next == nil && s.err == nil && !s.closed {
		s.next, s.err = s.load()
	}
	return s.next != nil
}

// Next returns the next region.  It returns ErrExhausted once every region
// has been returned, or the upstream error if reading failed.
func (s *Segmenter) Next() (*Region, error) {
	if !s.HasNext() {
		if s.err != nil {
			return nil, s.err
		}
		return nil, ErrExhausted
	}
	r := s.next
	s.next = nil
	return r, nil
}

// Err returns the error that stopped the iteration, if any.
func (s *Segmenter) Err() error { return s.err }

// Remove is not supported.
func (s *Segmenter) Remove() error {
	return errors.E(errors.NotSupported, "assembly.Segmenter: Remove is not supported")
}

// Close closes the shard's read iterator.  The Segmenter yields nothing
// afterwards.
func (s *Segmenter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.next = nil
	return s.reads.Close()
}

func (s *Segmenter) popRegions(force bool) {
	if force {
		s.opts.Metrics.observeForced()
	}
	for _, p := range s.profile.PopReadyRegions(s.opts.Padding, s.opts.MinRegionSize, s.opts.MaxRegionSize, force) {
		s.pending.PushBack(p)
	}
}

// load walks loci until a region is finalized and returns it filled, or nil
// if the shard is exhausted.
func (s *Segmenter) load() (*Region, error) {
	var (
		next  activity.Pending
		found bool
	)
	for !found && !s.lociDone {
		if !s.loci.Scan() {
			if err := s.loci.Err(); err != nil {
				return nil, err
			}
			s.lociDone = true
			break
		}
		p := s.loci.Pileup()
		if end, ok := s.profile.End(); ok {
			s.popRegions(!end.Adjacent(p.Locus))
		}
		window := p.Locus.Span()
		refCtx := NewReferenceContext(s.ref, window)
		state := s.eval.IsActive(p, refCtx, NewFeatureContext(s.features, window))
		state.Locus = p.Locus
		if s.opts.TrackPileups {
			s.pileups.Push(PileupContext{Pileup: p, Reference: refCtx})
		}
		if err := s.profile.Add(state); err != nil {
			return nil, err
		}
		s.opts.Metrics.observeLocus()
		if s.pending.Len() > 0 && p.Locus.IsAfter(s.pending.Front().PaddedSpan) {
			next, found = s.pending.PopFront(), true
		}
	}
	if s.lociDone && !s.drained {
		s.drained = true
		s.byState.Drain()
		if err := s.byState.Err(); err != nil {
			return nil, err
		}
		if !s.profile.IsEmpty() {
			s.popRegions(true)
		}
	}
	if !found && s.pending.Len() > 0 {
		next, found = s.pending.PopFront(), true
	}
	if !found {
		log.Debug.Printf("assembly.Segmenter: exhausted")
		return nil, nil
	}
	return s.fill(next), nil
}

// fill attaches to p the reads overlapping its padded span and, if enabled,
// the pileups of its span.
func (s *Segmenter) fill(p activity.Pending) *Region {
	r := newRegion(p)
	for _, rec := range s.prevReads {
		r.addRead(rec)
	}
	s.cache.AppendAll(s.reads.Consume())
	for s.cache.Len() > 0 {
		rec := s.cache.Front()
		if interval.RecordIsAfter(rec, r.PaddedSpan) {
			break
		}
		s.cache.PopFront()
		// Reads that do not overlap end before the padded span and are
		// dropped.
		r.addRead(rec)
	}
	s.prevReads = r.Reads
	if s.opts.TrackPileups {
		s.pileups.DropBefore(r.Span)
		r.Pileups = s.pileups.TakeWithin(r.Span)
	}
	s.opts.Metrics.observeRegion(r)
	if log.At(log.Debug) {
		log.Debug.Printf("assembly.Segmenter: %s", regionString(r))
	}
	return r
}

func regionString(r *Region) string {
	kind := "inactive"
	if r.Active {
		kind = "active"
	}
	return fmt.Sprintf("%s region %v (padded %v): %d reads, %d pileups", kind, r.Span, r.PaddedSpan, len(r.Reads), len(r.Pileups))
}
