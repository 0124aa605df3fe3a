// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package activity

import "github.com/grailbio/assembly/interval"

// Kind qualifies the raw probability of a State.
type Kind int

const (
	// None is a plain per-locus probability.
	None Kind = iota
	// HighQualitySoftClips marks a locus next to high-quality soft-clipped
	// bases.  State.Value holds the mean number of such bases per read, and
	// the probability is spread over that many loci on either side.
	HighQualitySoftClips
)

// State is the raw activity judgment for one locus.
type State struct {
	Locus interval.Locus
	// Prob is the probability in [0, 1] that the locus is active.
	Prob  float64
	Kind  Kind
	Value float64
}
