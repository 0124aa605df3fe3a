// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"github.com/grailbio/assembly/circular"
	"github.com/grailbio/hts/sam"
)

// ReadCache buffers reads in arrival order until the region being filled has
// moved past them.
type ReadCache struct {
	q circular.Queue[*sam.Record]
}

// AppendAll appends reads at the back.
func (c *ReadCache) AppendAll(reads []*sam.Record) {
	for _, r := range reads {
		c.q.PushBack(r)
	}
}

// Len returns the number of cached reads.
func (c *ReadCache) Len() int { return c.q.Len() }

// Front returns the oldest read, or nil if the cache is empty.
func (c *ReadCache) Front() *sam.Record {
	if c.q.Len() == 0 {
		return nil
	}
	return c.q.Front()
}

// PopFront removes and returns the oldest read.
//
// REQUIRES: Len() > 0.
func (c *ReadCache) PopFront() *sam.Record { return c.q.PopFront() }
