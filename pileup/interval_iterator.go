// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pileup

import "github.com/grailbio/assembly/interval"

// IntervalIterator restricts a locus stream to a set of spans and fills in
// every locus of the spans: loci the underlying stream skips (no coverage)
// are reported with an empty Pileup, so consecutive output loci within a
// span are always adjacent.
type IntervalIterator struct {
	inner     LocusIterator
	spans     []interval.Span
	si        int // index of the current span
	pos       int // next position to emit within spans[si]
	innerCur  *Pileup
	innerDone bool
	cur       *Pileup
	err       error
}

// NewIntervalIterator returns an iterator over spans, which must be sorted
// and disjoint (see interval.MergeSpans).
func NewIntervalIterator(inner LocusIterator, spans []interval.Span) *IntervalIterator {
	it := &IntervalIterator{inner: inner, spans: spans}
	if len(spans) > 0 {
		it.pos = spans[0].Start
	}
	return it
}

// advanceInner moves the underlying stream to the first pileup at or after l.
func (it *IntervalIterator) advanceInner(l interval.Locus) {
	for !it.innerDone && (it.innerCur == nil || it.innerCur.Locus.Compare(l) < 0) {
		if !it.inner.Scan() {
			it.innerDone, it.innerCur = true, nil
			it.err = it.inner.Err()
			return
		}
		it.innerCur = it.inner.Pileup()
	}
}

// Scan implements LocusIterator.
func (it *IntervalIterator) Scan() bool {
	for it.err == nil && it.si < len(it.spans) {
		span := it.spans[it.si]
		if it.pos >= span.End {
			it.si++
			if it.si < len(it.spans) {
				it.pos = it.spans[it.si].Start
			}
			continue
		}
		l := interval.Locus{Ref: span.Ref, Pos: it.pos}
		it.pos++
		it.advanceInner(l)
		if it.err != nil {
			return false
		}
		if it.innerCur != nil && it.innerCur.Locus == l {
			it.cur = it.innerCur
		} else {
			it.cur = &Pileup{Locus: l}
		}
		return true
	}
	return false
}

// Pileup implements LocusIterator.
func (it *IntervalIterator) Pileup() *Pileup { return it.cur }

// Err implements LocusIterator.
func (it *IntervalIterator) Err() error { return it.err }
