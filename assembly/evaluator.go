// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package assembly

import (
	"github.com/grailbio/assembly/activity"
	"github.com/grailbio/assembly/pileup"
	"github.com/grailbio/base/log"
)

// Evaluator judges how likely a locus is to need local reassembly.  It must
// return the same State for the same inputs within one pass.  The Segmenter
// sets the returned State's Locus to the pileup's locus.
type Evaluator interface {
	IsActive(p *pileup.Pileup, ref ReferenceContext, features FeatureContext) activity.State
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(p *pileup.Pileup, ref ReferenceContext, features FeatureContext) activity.State

// IsActive implements Evaluator.
func (f EvaluatorFunc) IsActive(p *pileup.Pileup, ref ReferenceContext, features FeatureContext) activity.State {
	return f(p, ref, features)
}

// MismatchEvaluator scores a locus by the fraction of its high-quality
// bases, deletions included, that disagree with the reference.  Loci
// next to many high-quality soft clips are reported as such, so the profile
// widens them.
type MismatchEvaluator struct {
	// MinBaseQual is the smallest base quality counted.
	MinBaseQual byte
	// MinSoftClipQual is the smallest quality of a soft-clipped base counted
	// as high quality.
	MinSoftClipQual byte
	// MinMeanSoftClips is the mean number of high-quality soft-clipped bases
	// per read above which the locus is tagged HighQualitySoftClips.
	MinMeanSoftClips float64
}

// DefaultMismatchEvaluator uses typical Illumina quality cutoffs.
var DefaultMismatchEvaluator = MismatchEvaluator{
	MinBaseQual:      10,
	MinSoftClipQual:  28,
	MinMeanSoftClips: 6,
}

// IsActive implements Evaluator.  Without reference bases every locus is
// inactive.
func (e MismatchEvaluator) IsActive(p *pileup.Pileup, ref ReferenceContext, _ FeatureContext) activity.State {
	st := activity.State{Locus: p.Locus}
	if p.Empty() || !ref.HasData() {
		return st
	}
	bases, err := ref.Bases()
	if err != nil || len(bases) == 0 {
		log.Error.Printf("assembly.MismatchEvaluator: %v: no reference base: %v", p.Locus, err)
		return st
	}
	refBase := pileup.ASCIIToEnum(bases[0])
	counts, deletions := p.BaseCounts(e.MinBaseQual)
	total, mismatches := deletions, deletions
	for b := byte(0); b < pileup.NBase; b++ {
		total += counts[b]
		if b != refBase {
			mismatches += counts[b]
		}
	}
	softClips := 0
	for _, el := range p.Elements {
		softClips += el.HighQualitySoftClips(e.MinSoftClipQual)
	}
	if total > 0 {
		st.Prob = float64(mismatches) / float64(total)
	}
	if mean := float64(softClips) / float64(len(p.Elements)); mean > e.MinMeanSoftClips {
		st.Kind, st.Value = activity.HighQualitySoftClips, mean
	}
	if log.At(log.Debug) && st.Prob > 0 {
		log.Debug.Printf("assembly.MismatchEvaluator: %v ref %c bases %s prob %.3f", p.Locus, bases[0], p.Bases(), st.Prob)
	}
	return st
}
