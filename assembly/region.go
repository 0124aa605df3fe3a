// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"github.com/grailbio/assembly/activity"
	"github.com/grailbio/assembly/encoding/bamprovider"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/hts/sam"
)

// Shard is the unit of work of a Segmenter: the reads of a set of genomic
// intervals.
type Shard struct {
	// Intervals are the spans to segment.  They are sorted and merged before
	// use.  Empty means the whole genome.
	Intervals []interval.Span
	// Reads yields, in coordinate order, every read overlapping Intervals
	// padded by Opts.Padding.  A read missing from Reads is missing from the
	// edge regions whose padded span it overlaps.  See NewShard.
	Reads bamprovider.Iterator
}

// NewShard returns the shard of spans, reading from p over spans padded by
// padding.  Intervals keep the unpadded spans.  Empty spans means the whole
// genome of p's header.
func NewShard(p bamprovider.Provider, spans []interval.Span, padding int) *Shard {
	fetch := spans
	if len(fetch) == 0 {
		header, err := p.GetHeader()
		if err != nil {
			return &Shard{Reads: bamprovider.NewErrorIterator(err)}
		}
		fetch = interval.WholeGenome(header)
	}
	padded := make([]interval.Span, len(fetch))
	for i, s := range fetch {
		padded[i] = s.Pad(padding)
	}
	return &Shard{
		Intervals: spans,
		Reads:     bamprovider.NewIntervalsIterator(p, interval.MergeSpans(padded)),
	}
}

// Region is an assembly region.  Once returned by Segmenter.Next it belongs
// to the caller.
type Region struct {
	// Span is the unpadded extent of the region.
	Span interval.Span
	// PaddedSpan is Span extended by Opts.Padding, clipped to the contig.
	PaddedSpan interval.Span
	// Active is true if the region needs reassembly.
	Active bool
	// Reads overlap PaddedSpan, in coordinate order.  A read may also belong
	// to the preceding or following region.
	Reads []*sam.Record
	// Pileups holds one entry per locus of Span, if Opts.TrackPileups is set.
	Pileups []PileupContext
	// States are the raw activity states of the loci of Span.
	States []activity.State
}

func newRegion(p activity.Pending) *Region {
	return &Region{
		Span:       p.Span,
		PaddedSpan: p.PaddedSpan,
		Active:     p.Active,
		States:     p.States,
	}
}

// addRead attaches r if it overlaps the padded span.  It returns false
// otherwise.
func (r *Region) addRead(rec *sam.Record) bool {
	if !r.PaddedSpan.OverlapsRecord(rec) {
		return false
	}
	r.Reads = append(r.Reads, rec)
	return true
}
