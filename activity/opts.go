// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package activity

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Opts configures a Profile.
type Opts struct {
	// MaxProbPropagationDistance bounds how far a state's probability may be
	// spread before smoothing (see HighQualitySoftClips).
	MaxProbPropagationDistance int
	// ActiveProbThreshold: a locus whose smoothed probability exceeds this is
	// active.
	ActiveProbThreshold float64
	// MaxFilterSize is the half-width of the band-pass kernel.  0 disables
	// smoothing.
	MaxFilterSize int
	// Sigma is the standard deviation of the Gaussian kernel.
	Sigma float64
	// AdaptiveFilterSize trims kernel taps smaller than MinKernelProb.
	AdaptiveFilterSize bool
}

// MinKernelProb is the smallest tap kept by an adaptive filter.
const MinKernelProb = 1e-5

// DefaultOpts is the default configuration.
var DefaultOpts = Opts{
	MaxProbPropagationDistance: 50,
	ActiveProbThreshold:        0.002,
	MaxFilterSize:              50,
	Sigma:                      17.0,
	AdaptiveFilterSize:         true,
}

// Validate checks that opts are usable.
func (opts Opts) Validate() error {
	switch {
	case opts.MaxProbPropagationDistance < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("activity: negative MaxProbPropagationDistance %d", opts.MaxProbPropagationDistance))
	case opts.ActiveProbThreshold < 0 || opts.ActiveProbThreshold > 1:
		return errors.E(errors.Invalid, fmt.Sprintf("activity: ActiveProbThreshold %v outside [0, 1]", opts.ActiveProbThreshold))
	case opts.MaxFilterSize < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("activity: negative MaxFilterSize %d", opts.MaxFilterSize))
	case opts.MaxFilterSize > 0 && !(opts.Sigma > 0):
		return errors.E(errors.Invalid, fmt.Sprintf("activity: Sigma must be positive, got %v", opts.Sigma))
	}
	return nil
}
