// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"github.com/grailbio/assembly/encoding/fasta"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/base/errors"
)

// ReferenceContext gives access to the reference bases around a window.  The
// zero value, or one built from a nil Fasta, has no data.
type ReferenceContext struct {
	// Window is the span the context describes, usually a single locus.
	Window interval.Span
	fa     fasta.Fasta
}

// NewReferenceContext returns the context of window in fa.  fa may be nil.
func NewReferenceContext(fa fasta.Fasta, window interval.Span) ReferenceContext {
	return ReferenceContext{Window: window, fa: fa}
}

// HasData returns true iff reference bases are available.
func (c ReferenceContext) HasData() bool { return c.fa != nil && c.Window.Ref != nil }

// Bases returns the reference bases of Window, or "" if there is no data.
func (c ReferenceContext) Bases() (string, error) {
	return c.WindowBases(0, 0)
}

// WindowBases returns the bases of Window extended by lead bases before and
// trail bases after, clipped to the contig.
func (c ReferenceContext) WindowBases(lead, trail int) (string, error) {
	if !c.HasData() {
		return "", nil
	}
	if lead < 0 || trail < 0 {
		return "", errors.E(errors.Invalid, "assembly.ReferenceContext.WindowBases: negative extension")
	}
	start, end := c.Window.Start-lead, c.Window.End+trail
	if start < 0 {
		start = 0
	}
	if end > c.Window.Ref.Len() {
		end = c.Window.Ref.Len()
	}
	if end <= start {
		return "", nil
	}
	bases, err := c.fa.Get(c.Window.Ref.Name(), uint64(start), uint64(end))
	if err != nil {
		return "", errors.E(err, "assembly.ReferenceContext", c.Window.String())
	}
	return bases, nil
}

// FeatureContext lists the annotated features overlapping a window.  The zero
// value, or one built from a nil index, has no data.
type FeatureContext struct {
	Window interval.Span
	idx    *interval.FeatureIndex
}

// NewFeatureContext returns the features of idx around window.  idx may be
// nil.
func NewFeatureContext(idx *interval.FeatureIndex, window interval.Span) FeatureContext {
	return FeatureContext{Window: window, idx: idx}
}

// HasData returns true iff a feature index is available.
func (c FeatureContext) HasData() bool { return c.idx != nil }

// Features returns the features overlapping Window, ordered by start.
func (c FeatureContext) Features() []interval.Feature { return c.idx.Overlapping(c.Window) }
