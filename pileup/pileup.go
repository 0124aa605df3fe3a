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
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/hts/sam"
)

// Element is one read's contribution to a pileup.
type Element struct {
	Read *sam.Record
	// Offset is the index into Read.Seq of the aligned base.  For a deletion
	// it is the offset of the last base before the deletion.
	Offset int
	// Deletion is true when the read has a deletion spanning the locus.
	Deletion bool
	// Base is the aligned base as BaseA..BaseX.  BaseX for deletions.
	Base byte
	// Qual is the base quality, or 0 for deletions.
	Qual byte
}

// Pileup is the set of read bases aligned to one locus.  A Pileup with no
// elements marks a locus that no read covers.
type Pileup struct {
	Locus    interval.Locus
	Elements []Element
}

// Depth returns the number of elements, deletions included.
func (p *Pileup) Depth() int { return len(p.Elements) }

// Empty returns true iff no read covers the locus.
func (p *Pileup) Empty() bool { return len(p.Elements) == 0 }

// Bases renders the elements' bases in order, '*' marking a deletion.
func (p *Pileup) Bases() string {
	out := make([]byte, len(p.Elements))
	for i, e := range p.Elements {
		if e.Deletion {
			out[i] = '*'
		} else {
			out[i] = EnumToASCIITable[e.Base]
		}
	}
	return string(out)
}

// BaseCounts counts the non-deletion elements with quality at least minQual,
// by base enum, and separately the deletions.
func (p *Pileup) BaseCounts(minQual byte) (counts [NBaseEnum]int, deletions int) {
	for _, e := range p.Elements {
		switch {
		case e.Deletion:
			deletions++
		case e.Qual >= minQual:
			counts[e.Base]++
		}
	}
	return
}

// LocusIterator yields pileups in strictly increasing locus order.
type LocusIterator interface {
	// Scan advances to the next locus.  It returns false at the end of the
	// stream or on error.
	Scan() bool
	// Pileup returns the current pileup.  The caller may retain it.
	//
	// REQUIRES: the last Scan returned true.
	Pileup() *Pileup
	// Err returns the first error encountered.
	Err() error
}

func seqBase(r *sam.Record, i int) byte {
	nib := byte(r.Seq.Seq[i>>1])
	if i&1 == 0 {
		nib >>= 4
	}
	return Seq8ToEnumTable[nib&0xf]
}

// newElement returns r's contribution at reference position pos.  ok is false
// if r has no base or deletion there (e.g. a reference skip).
//
// REQUIRES: r.Pos <= pos.
func newElement(r *sam.Record, pos int) (e Element, ok bool) {
	refPos, readPos := r.Pos, 0
	for _, op := range r.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if pos < refPos+n {
				off := readPos + pos - refPos
				e = Element{Read: r, Offset: off, Base: BaseX}
				if off < r.Seq.Length {
					e.Base = seqBase(r, off)
				}
				if off < len(r.Qual) {
					e.Qual = r.Qual[off]
				}
				return e, true
			}
			refPos += n
			readPos += n
		case sam.CigarDeletion:
			if pos < refPos+n {
				return Element{Read: r, Offset: readPos - 1, Deletion: true, Base: BaseX}, true
			}
			refPos += n
		case sam.CigarSkipped:
			if pos < refPos+n {
				return Element{}, false
			}
			refPos += n
		case sam.CigarInsertion, sam.CigarSoftClipped:
			readPos += n
		}
	}
	return Element{}, false
}

// softClips returns the lengths of r's leading and trailing soft clips.
func softClips(r *sam.Record) (lead, trail int) {
	ops := r.Cigar
	for len(ops) > 0 && ops[0].Type() == sam.CigarHardClipped {
		ops = ops[1:]
	}
	for len(ops) > 0 && ops[len(ops)-1].Type() == sam.CigarHardClipped {
		ops = ops[:len(ops)-1]
	}
	if len(ops) > 0 && ops[0].Type() == sam.CigarSoftClipped {
		lead = ops[0].Len()
	}
	if len(ops) > 1 && ops[len(ops)-1].Type() == sam.CigarSoftClipped {
		trail = ops[len(ops)-1].Len()
	}
	return
}

func countQualAtLeast(qual []byte, minQual byte) int {
	n := 0
	for _, q := range qual {
		if q >= minQual {
			n++
		}
	}
	return n
}

// HighQualitySoftClips returns the number of soft-clipped bases with quality
// >= minQual that sit directly next to e, i.e. when e is the first aligned
// base after a leading clip or the last one before a trailing clip.
func (e Element) HighQualitySoftClips(minQual byte) int {
	if e.Deletion || e.Read == nil {
		return 0
	}
	r := e.Read
	lead, trail := softClips(r)
	n := 0
	if lead > 0 && e.Offset == lead && lead <= len(r.Qual) {
		n += countQualAtLeast(r.Qual[:lead], minQual)
	}
	if trail > 0 && e.Offset == r.Seq.Length-trail-1 && r.Seq.Length <= len(r.Qual) {
		n += countQualAtLeast(r.Qual[r.Seq.Length-trail:r.Seq.Length], minQual)
	}
	return n
}
