// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"sort"

	bsinterval "github.com/biogo/store/interval"
	"github.com/grailbio/base/errors"
)

// featureNode adapts a Feature to biogo's integer interval tree.
type featureNode struct {
	id uintptr
	f  Feature
}

func (n *featureNode) Overlap(r bsinterval.IntRange) bool {
	return n.f.End > r.Start && n.f.Start < r.End
}
func (n *featureNode) ID() uintptr { return n.id }
func (n *featureNode) Range() bsinterval.IntRange {
	return bsinterval.IntRange{Start: n.f.Start, End: n.f.End}
}

type query struct{ start, end int }

func (q query) Overlap(r bsinterval.IntRange) bool {
	return r.End > q.start && r.Start < q.end
}

// FeatureIndex answers "which features overlap this span" queries.  Unlike
// MergeSpans, overlapping features are kept separately.  Immutable once
// built, hence thread safe.
type FeatureIndex struct {
	trees map[int]*bsinterval.IntTree // keyed by sam.Reference.ID()
	n     int
}

// NewFeatureIndex builds an index over features.
func NewFeatureIndex(features []Feature) (*FeatureIndex, error) {
	idx := &FeatureIndex{trees: make(map[int]*bsinterval.IntTree)}
	for i, f := range features {
		if f.Ref == nil || f.Empty() {
			return nil, errors.E(errors.Invalid, "interval.NewFeatureIndex: empty or unplaced feature", f.Span.String())
		}
		tree := idx.trees[f.Ref.ID()]
		if tree == nil {
			tree = &bsinterval.IntTree{}
			idx.trees[f.Ref.ID()] = tree
		}
		if err := tree.Insert(&featureNode{id: uintptr(i), f: f}, true); err != nil {
			return nil, errors.E(errors.Invalid, err, "interval.NewFeatureIndex")
		}
		idx.n++
	}
	for _, tree := range idx.trees {
		tree.AdjustRanges()
	}
	return idx, nil
}

// Len returns the number of indexed features.
func (idx *FeatureIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.n
}

// Overlapping returns the features intersecting s, ordered by start
// position.  A nil index has no features.
func (idx *FeatureIndex) Overlapping(s Span) []Feature {
	if idx == nil || s.Ref == nil || s.Empty() {
		return nil
	}
	tree := idx.trees[s.Ref.ID()]
	if tree == nil {
		return nil
	}
	var out []Feature
	tree.DoMatching(func(e bsinterval.IntInterface) bool {
		out = append(out, e.(*featureNode).f)
		return false
	}, query{s.Start, s.End})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Intersects returns true iff any feature overlaps s.
func (idx *FeatureIndex) Intersects(s Span) bool {
	if idx == nil || s.Ref == nil || s.Empty() {
		return false
	}
	tree := idx.trees[s.Ref.ID()]
	if tree == nil {
		return false
	}
	found := false
	tree.DoMatching(func(bsinterval.IntInterface) bool {
		found = true
		return true
	}, query{s.Start, s.End})
	return found
}
