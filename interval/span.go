// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// Locus is a single 0-based reference position.
type Locus struct {
	Ref *sam.Reference
	Pos int
}

// refOrder maps a reference to its sort key.  References are ordered by their
// position in the header; a nil (unmapped) reference sorts last.
func refOrder(ref *sam.Reference) int {
	if ref == nil {
		return int(^uint(0) >> 1)
	}
	return ref.ID()
}

// CompareRefs returns (negative int, 0, positive int) if (r<r1, r=r1, r>r1)
// respectively, in header order.
func CompareRefs(r, r1 *sam.Reference) int {
	if r == r1 {
		return 0
	}
	return refOrder(r) - refOrder(r1)
}

// Compare returns (negative int, 0, positive int) if (l<l1, l=l1, l>l1)
// respectively.
func (l Locus) Compare(l1 Locus) int {
	if c := CompareRefs(l.Ref, l1.Ref); c != 0 {
		return c
	}
	return l.Pos - l1.Pos
}

// Next returns the locus immediately following l on the same contig.
func (l Locus) Next() Locus { return Locus{Ref: l.Ref, Pos: l.Pos + 1} }

// Adjacent returns true iff l1 immediately follows l on the same contig.
func (l Locus) Adjacent(l1 Locus) bool {
	return l.Ref == l1.Ref && l.Pos+1 == l1.Pos
}

// IsAfter returns true iff l lies strictly past the end of s, either on a
// later contig or at or beyond s.End on the same contig.
func (l Locus) IsAfter(s Span) bool {
	if c := CompareRefs(l.Ref, s.Ref); c != 0 {
		return c > 0
	}
	return l.Pos >= s.End
}

// Span returns the single-base span covering l.
func (l Locus) Span() Span { return Span{Ref: l.Ref, Start: l.Pos, End: l.Pos + 1} }

// String renders l as a 1-based "contig:pos" string.
func (l Locus) String() string {
	return fmt.Sprintf("%s:%d", refName(l.Ref), l.Pos+1)
}

// Span is a 0-based half-open interval [Start, End) on one contig.
type Span struct {
	Ref        *sam.Reference
	Start, End int
}

// NewSpan returns [start, end) on ref, checking that it is nonempty and lies
// within the contig.
func NewSpan(ref *sam.Reference, start, end int) (Span, error) {
	if ref == nil {
		return Span{}, errors.E(errors.Invalid, "interval.NewSpan: nil reference")
	}
	if start < 0 || end <= start || end > ref.Len() {
		return Span{}, errors.E(errors.Invalid,
			fmt.Sprintf("interval.NewSpan: invalid range [%d, %d) for %s of length %d", start, end, ref.Name(), ref.Len()))
	}
	return Span{Ref: ref, Start: start, End: end}, nil
}

// Len returns the number of bases covered by s.
func (s Span) Len() int { return s.End - s.Start }

// Empty returns true iff s covers no bases.
func (s Span) Empty() bool { return s.End <= s.Start }

// StartLocus returns the first locus of s.
func (s Span) StartLocus() Locus { return Locus{Ref: s.Ref, Pos: s.Start} }

// LastLocus returns the last locus of s.
func (s Span) LastLocus() Locus { return Locus{Ref: s.Ref, Pos: s.End - 1} }

// Contains returns true iff l lies within s.
func (s Span) Contains(l Locus) bool {
	return l.Ref == s.Ref && s.Start <= l.Pos && l.Pos < s.End
}

// Overlaps returns true iff (s ∩ s1) != ∅.
func (s Span) Overlaps(s1 Span) bool {
	return s.Ref == s1.Ref && s.Start < s1.End && s1.Start < s.End
}

// OverlapsRecord returns true iff the reference bases aligned by r (including
// deletions) intersect s.
func (s Span) OverlapsRecord(r *sam.Record) bool {
	return r.Ref == s.Ref && r.Pos < s.End && r.End() > s.Start
}

// RecordIsAfter returns true iff r starts strictly past the end of s.
func RecordIsAfter(r *sam.Record, s Span) bool {
	return Locus{Ref: r.Ref, Pos: r.Pos}.IsAfter(s)
}

// Pad extends s by padding bases on both sides, clipped to the contig.
func (s Span) Pad(padding int) Span {
	p := Span{Ref: s.Ref, Start: s.Start - padding, End: s.End + padding}
	if p.Start < 0 {
		p.Start = 0
	}
	if s.Ref != nil && p.End > s.Ref.Len() {
		p.End = s.Ref.Len()
	}
	return p
}

// String renders s in the samtools 1-based inclusive "contig:first-last"
// form.
func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", refName(s.Ref), s.Start+1, s.End)
}

func refName(ref *sam.Reference) string {
	if ref == nil {
		return "*"
	}
	return ref.Name()
}

// ParseRegion parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// into a Span on a contig of header.  A bare contig ID covers the whole
// contig.
func ParseRegion(header *sam.Header, region string) (Span, error) {
	if len(region) == 0 {
		return Span{}, errors.E(errors.Invalid, "interval.ParseRegion: empty region string")
	}
	name := region
	rangeStr := ""
	if colonPos := strings.LastIndexByte(region, ':'); colonPos != -1 {
		name, rangeStr = region[:colonPos], region[colonPos+1:]
	}
	if name == "" {
		return Span{}, errors.E(errors.Invalid, "interval.ParseRegion: empty contig ID")
	}
	ref := RefByName(header, name)
	if ref == nil {
		return Span{}, errors.E(errors.NotExist, fmt.Sprintf("interval.ParseRegion: contig %s not in header", name))
	}
	if rangeStr == "" {
		return NewSpan(ref, 0, ref.Len())
	}
	rangeStr = strings.Replace(rangeStr, ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		pos1, err := strconv.Atoi(rangeStr)
		if err != nil {
			return Span{}, errors.E(errors.Invalid, err, "interval.ParseRegion:", region)
		}
		return NewSpan(ref, pos1-1, pos1)
	}
	start1, err := strconv.Atoi(rangeStr[:dashPos])
	if err != nil {
		return Span{}, errors.E(errors.Invalid, err, "interval.ParseRegion:", region)
	}
	end, err := strconv.Atoi(rangeStr[dashPos+1:])
	if err != nil {
		return Span{}, errors.E(errors.Invalid, err, "interval.ParseRegion:", region)
	}
	return NewSpan(ref, start1-1, end)
}

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	if h == nil {
		return nil
	}
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}
