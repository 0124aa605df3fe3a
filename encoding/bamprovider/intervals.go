// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bamprovider

import (
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// intervalsIterator chains per-span iterators.
type intervalsIterator struct {
	p     Provider
	spans []interval.Span
	idx   int // index of the span read by cur
	cur   Iterator
	rec   *sam.Record
	err   errors.Once
}

// NewIntervalsIterator returns an Iterator over the records overlapping any
// of spans.  spans must be sorted and disjoint, as produced by
// interval.MergeSpans.  A read overlapping several spans is yielded once, so
// the stream remains coordinate sorted.
func NewIntervalsIterator(p Provider, spans []interval.Span) Iterator {
	for i := 1; i < len(spans); i++ {
		prev, s := spans[i-1], spans[i]
		if prev.LastLocus().Compare(s.StartLocus()) >= 0 {
			return NewErrorIterator(errors.E(errors.Invalid,
				"bamprovider.NewIntervalsIterator: spans are not sorted and disjoint:", prev.String(), s.String()))
		}
	}
	return &intervalsIterator{p: p, spans: spans, idx: -1}
}

func (it *intervalsIterator) closeCur() {
	if it.cur != nil {
		it.err.Set(it.cur.Close())
		it.cur = nil
	}
}

// Scan implements the Iterator interface.
func (it *intervalsIterator) Scan() bool {
	for it.err.Err() == nil {
		if it.cur == nil {
			if it.idx+1 >= len(it.spans) {
				return false
			}
			it.idx++
			it.cur = it.p.NewIterator(it.spans[it.idx])
		}
		if !it.cur.Scan() {
			it.closeCur()
			continue
		}
		rec := it.cur.Record()
		if it.idx > 0 && it.spans[it.idx-1].OverlapsRecord(rec) {
			// Already yielded while reading the previous span.
			sam.PutInFreePool(rec)
			continue
		}
		it.rec = rec
		return true
	}
	return false
}

// Record implements the Iterator interface.
func (it *intervalsIterator) Record() *sam.Record { return it.rec }

// Err implements the Iterator interface.
func (it *intervalsIterator) Err() error { return it.err.Err() }

// Close implements the Iterator interface.
func (it *intervalsIterator) Close() error {
	it.closeCur()
	return it.err.Err()
}
