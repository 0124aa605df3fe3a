// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"github.com/grailbio/assembly/circular"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/assembly/pileup"
)

// PileupContext is a pileup together with the reference context it was
// evaluated against.
type PileupContext struct {
	Pileup    *pileup.Pileup
	Reference ReferenceContext
}

// PileupQueue buffers PileupContexts in locus order.
type PileupQueue struct {
	q circular.Queue[PileupContext]
}

// Push appends pc.  Loci must be pushed in increasing order.
func (pq *PileupQueue) Push(pc PileupContext) { pq.q.PushBack(pc) }

// Len returns the number of queued entries.
func (pq *PileupQueue) Len() int { return pq.q.Len() }

// DropBefore discards the entries at the front that lie on another contig
// than span or before span.Start.
func (pq *PileupQueue) DropBefore(span interval.Span) {
	for pq.q.Len() > 0 {
		l := pq.q.Front().Pileup.Locus
		if l.Ref == span.Ref && l.Pos >= span.Start {
			return
		}
		pq.q.PopFront()
	}
}

// TakeWithin removes and returns, in order, the entries at the front that lie
// on span's contig before span.End.
func (pq *PileupQueue) TakeWithin(span interval.Span) []PileupContext {
	var out []PileupContext
	for pq.q.Len() > 0 {
		l := pq.q.Front().Pileup.Locus
		if l.Ref != span.Ref || l.Pos >= span.End {
			break
		}
		out = append(out, pq.q.PopFront())
	}
	return out
}
