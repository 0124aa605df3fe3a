// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package activity

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Kernel returns a Gaussian band-pass kernel with 2*filterSize+1 taps centered
// on index filterSize, normalized to sum to 1.  filterSize 0 yields the
// identity kernel.
func Kernel(filterSize int, sigma float64) []float64 {
	if filterSize <= 0 {
		return []float64{1}
	}
	gauss := distuv.Normal{Mu: float64(filterSize), Sigma: sigma}
	k := make([]float64, 2*filterSize+1)
	for i := range k {
		k[i] = gauss.Prob(float64(i))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// FilterSize returns the number of taps left of the kernel's center that are
// at least minProb, walking outward from the center.
func FilterSize(kernel []float64, minProb float64) int {
	middle := (len(kernel) - 1) / 2
	end := middle
	for end > 0 && kernel[end-1] >= minProb {
		end--
	}
	return middle - end
}

// newKernel builds the kernel described by opts.
func newKernel(opts Opts) []float64 {
	k := Kernel(opts.MaxFilterSize, opts.Sigma)
	if opts.AdaptiveFilterSize && opts.MaxFilterSize > 0 {
		k = Kernel(FilterSize(k, MinKernelProb), opts.Sigma)
	}
	return k
}
