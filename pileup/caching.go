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
	"github.com/grailbio/hts/sam"
)

// CachingIterator wraps a read iterator and remembers every record it yields
// until the records are claimed with Consume.  Record returns the same
// pointer on every call, so the pileups built from a record and the record
// handed out by Consume are identical.
type CachingIterator struct {
	bamprovider.Iterator
	rec    *sam.Record
	pulled []*sam.Record
}

// NewCachingIterator wraps it.
func NewCachingIterator(it bamprovider.Iterator) *CachingIterator {
	return &CachingIterator{Iterator: it}
}

// Scan implements bamprovider.Iterator.
func (c *CachingIterator) Scan() bool {
	if !c.Iterator.Scan() {
		c.rec = nil
		return false
	}
	c.rec = c.Iterator.Record()
	c.pulled = append(c.pulled, c.rec)
	return true
}

// Record implements bamprovider.Iterator.
func (c *CachingIterator) Record() *sam.Record { return c.rec }

// Consume returns the records pulled since the last call, in stream order.
func (c *CachingIterator) Consume() []*sam.Record {
	out := c.pulled
	c.pulled = nil
	return out
}
