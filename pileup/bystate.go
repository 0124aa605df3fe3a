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

import (
	"github.com/grailbio/assembly/encoding/bamprovider"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
)

// ByState builds pileups by walking a coordinate-sorted read stream, keeping
// only the reads that overlap the current locus.  It yields a pileup for
// every locus covered by at least one read's aligned span.  Reads without
// an aligned reference span (unmapped, or all clipped/inserted bases) are
// pulled from the stream but contribute nothing.
type ByState struct {
	reads  bamprovider.Iterator
	next   *sam.Record // lookahead
	active []*sam.Record
	cur    interval.Locus
	pileup *Pileup
	// started is set once the first pileup has been produced.
	started bool
	done    bool
	err     error
}

// NewByState returns a locus iterator over reads.
func NewByState(reads bamprovider.Iterator) *ByState {
	return &ByState{reads: reads}
}

func placed(r *sam.Record) bool {
	return r.Ref != nil && r.Flags&sam.Unmapped == 0 && r.End() > r.Pos
}

// fetch fills the lookahead.  It returns false at the end of the stream.
func (b *ByState) fetch() bool {
	if b.next != nil {
		return true
	}
	for !b.done && b.reads.Scan() {
		r := b.reads.Record()
		if !placed(r) {
			continue
		}
		if b.started && (interval.Locus{Ref: r.Ref, Pos: r.Pos}).Compare(b.cur) < 0 {
			log.Error.Printf("pileup.ByState: read %s at %s:%d is out of order, skipping", r.Name, r.Ref.Name(), r.Pos+1)
			continue
		}
		b.next = r
		return true
	}
	if !b.done {
		b.done = true
		b.err = b.reads.Err()
	}
	return false
}

// Scan implements LocusIterator.
func (b *ByState) Scan() bool {
	if b.err != nil {
		return false
	}
	var locus interval.Locus
	if b.started {
		locus = b.cur.Next()
	}
	// Retire reads that end before the candidate locus.
	n := 0
	for _, r := range b.active {
		if b.started && r.Ref == locus.Ref && r.End() > locus.Pos {
			b.active[n] = r
			n++
		}
	}
	for i := n; i < len(b.active); i++ {
		b.active[i] = nil
	}
	b.active = b.active[:n]
	if len(b.active) == 0 {
		if !b.fetch() {
			return false
		}
		locus = interval.Locus{Ref: b.next.Ref, Pos: b.next.Pos}
	}
	for b.fetch() && b.next.Ref == locus.Ref && b.next.Pos == locus.Pos {
		b.active = append(b.active, b.next)
		b.next = nil
	}
	if b.err != nil {
		return false
	}
	p := &Pileup{Locus: locus, Elements: make([]Element, 0, len(b.active))}
	for _, r := range b.active {
		if e, ok := newElement(r, locus.Pos); ok {
			p.Elements = append(p.Elements, e)
		}
	}
	b.cur, b.pileup, b.started = locus, p, true
	return true
}

// Pileup implements LocusIterator.
func (b *ByState) Pileup() *Pileup { return b.pileup }

// Err implements LocusIterator.
func (b *ByState) Err() error { return b.err }

// Drain pulls every remaining read from the underlying stream without
// producing pileups.
func (b *ByState) Drain() {
	for b.err == nil && !b.done {
		b.next = nil
		b.fetch()
	}
	b.next = nil
	b.active = nil
}
