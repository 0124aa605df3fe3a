// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"fmt"

	"github.com/grailbio/assembly/activity"
	"github.com/grailbio/base/errors"
)

// Opts configures a Segmenter.
type Opts struct {
	// Padding is the number of bases added on both sides of a region's span
	// when collecting reads.
	Padding int
	// MinRegionSize is the smallest region emitted, except at a forced
	// boundary (coverage gap, contig change, end of shard).
	MinRegionSize int
	// MaxRegionSize is the largest region emitted.
	MaxRegionSize int
	// Profile configures the activity profile.
	Profile activity.Opts
	// TrackPileups attaches the per-locus pileups and reference contexts to
	// each region.
	TrackPileups bool
	// Metrics, if non-nil, is updated as regions are produced.
	Metrics *Metrics
}

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	Padding:       100,
	MinRegionSize: 50,
	MaxRegionSize: 300,
	Profile:       activity.DefaultOpts,
}

// Validate checks that opts are consistent.
func (opts Opts) Validate() error {
	if opts.Padding < 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("assembly: negative padding %d", opts.Padding))
	}
	if opts.MinRegionSize < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("assembly: MinRegionSize must be positive, got %d", opts.MinRegionSize))
	}
	if opts.MaxRegionSize < opts.MinRegionSize {
		return errors.E(errors.Invalid, fmt.Sprintf("assembly: MaxRegionSize %d < MinRegionSize %d", opts.MaxRegionSize, opts.MinRegionSize))
	}
	return opts.Profile.Validate()
}
