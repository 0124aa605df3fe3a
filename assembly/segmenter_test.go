package assembly

import (
	"fmt"
	"strings"
	"testing"

	"github.com/grailbio/assembly/activity"
	"github.com/grailbio/assembly/encoding/bamprovider"
	"github.com/grailbio/assembly/encoding/fasta"
	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/assembly/pileup"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// newHeader creates contigs chr1, chr2, ... with the given lengths.
func newHeader(t *testing.T, lengths ...int) (*sam.Header, []*sam.Reference) {
	var refs []*sam.Reference
	for i, n := range lengths {
		ref, err := sam.NewReference(fmt.Sprintf("chr%d", i+1), "", "", n, nil, nil)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	header, err := sam.NewHeader(nil, refs)
	require.NoError(t, err)
	return header, refs
}

// newRead creates a read aligned without gaps to [pos, pos+len(seq)).
func newRead(t *testing.T, name string, ref *sam.Reference, pos int, seq string) *sam.Record {
	qual := []byte(strings.Repeat("\x1e", len(seq)))
	cigar := []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, len(seq))}
	r, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 60, cigar, []byte(seq), qual, nil)
	require.NoError(t, err)
	return r
}

func newReadLen(t *testing.T, name string, ref *sam.Reference, pos, length int) *sam.Record {
	return newRead(t, name, ref, pos, strings.Repeat("A", length))
}

func testOpts(padding, minSize, maxSize int) Opts {
	return Opts{
		Padding:       padding,
		MinRegionSize: minSize,
		MaxRegionSize: maxSize,
		Profile:       activity.Opts{ActiveProbThreshold: 0.002},
	}
}

// activeAt reports prob 1 at the given positions (on any contig) and records
// every pileup it is shown.
type activeAt struct {
	positions map[int]bool
	seen      []*pileup.Pileup
}

func newActiveAt(from, to int) *activeAt {
	e := &activeAt{positions: map[int]bool{}}
	for pos := from; pos < to; pos++ {
		e.positions[pos] = true
	}
	return e
}

func (e *activeAt) IsActive(p *pileup.Pileup, _ ReferenceContext, _ FeatureContext) activity.State {
	e.seen = append(e.seen, p)
	st := activity.State{Locus: p.Locus}
	if e.positions[p.Locus.Pos] {
		st.Prob = 1
	}
	return st
}

func newSegmenter(t *testing.T, header *sam.Header, reads []*sam.Record, spans []interval.Span, eval Evaluator, opts Opts) *Segmenter {
	p := bamprovider.NewFakeProvider(header, reads)
	s, err := New(NewShard(p, spans, opts.Padding), header, nil, nil, eval, opts)
	require.NoError(t, err)
	return s
}

// collect drains s and checks that it then stays exhausted.
func collect(t *testing.T, s *Segmenter) []*Region {
	var out []*Region
	for s.HasNext() {
		r, err := s.Next()
		require.NoError(t, err)
		out = append(out, r)
	}
	for i := 0; i < 2; i++ {
		expect.False(t, s.HasNext())
		_, err := s.Next()
		expect.True(t, err == ErrExhausted)
		expect.True(t, errors.Is(errors.Precondition, err))
	}
	assert.NoError(t, s.Err())
	assert.NoError(t, s.Close())
	return out
}

func readNames(reads []*sam.Record) []string {
	var names []string
	for _, r := range reads {
		names = append(names, r.Name)
	}
	return names
}

type regionSummary struct {
	span   string
	active bool
	reads  string
}

func summarize(regions []*Region) []regionSummary {
	var out []regionSummary
	for _, r := range regions {
		out = append(out, regionSummary{r.Span.String(), r.Active, strings.Join(readNames(r.Reads), ",")})
	}
	return out
}

// checkRegions verifies the properties every segmentation must have: raw
// spans are disjoint, increasing and tile spans exactly; each region holds
// exactly the reads overlapping its padded span, in coordinate order.
func checkRegions(t *testing.T, regions []*Region, spans []interval.Span, reads []*sam.Record, padding int) {
	var tiles []interval.Span
	for i, r := range regions {
		if i > 0 {
			prev := regions[i-1].Span
			expect.True(t, prev.LastLocus().Compare(r.Span.StartLocus()) < 0, "%v then %v", prev, r.Span)
		}
		expect.EQ(t, r.PaddedSpan, r.Span.Pad(padding))
		expect.EQ(t, len(r.States), r.Span.Len())
		if n := len(tiles); n > 0 && tiles[n-1].Ref == r.Span.Ref && tiles[n-1].End == r.Span.Start {
			tiles[n-1].End = r.Span.End
		} else {
			tiles = append(tiles, r.Span)
		}
		var want []string
		for _, rec := range reads {
			if r.PaddedSpan.OverlapsRecord(rec) {
				want = append(want, rec.Name)
			}
		}
		expect.EQ(t, readNames(r.Reads), want, "region %v", r.Span)
	}
	expect.EQ(t, tiles, interval.MergeSpans(spans))
}

func TestActiveIslandScenario(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{
		newReadLen(t, "r1", chr1, 0, 10),
		newReadLen(t, "r2", chr1, 25, 10),
		newReadLen(t, "r3", chr1, 45, 10),
		newReadLen(t, "r4", chr1, 80, 10),
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 100}}
	s := newSegmenter(t, header, reads, spans, newActiveAt(39, 60), testOpts(10, 5, 1000))
	regions := collect(t, s)
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-39", false, "r1,r2,r3"},
		{"chr1:40-60", true, "r2,r3"},
		{"chr1:61-100", false, "r3,r4"},
	})
	expect.EQ(t, regions[1].PaddedSpan.String(), "chr1:30-70")
	checkRegions(t, regions, spans, reads, 10)
}

func TestCoverageGapIsNotABreak(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{
		newReadLen(t, "a", chr1, 0, 50),
		newReadLen(t, "b", chr1, 52, 48),
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 100}}
	eval := newActiveAt(0, 0)
	opts := testOpts(5, 5, 1000)
	opts.Metrics = NewMetrics(nil)
	regions := collect(t, newSegmenter(t, header, reads, spans, eval, opts))

	assert.EQ(t, len(eval.seen), 100)
	for i, p := range eval.seen {
		expect.EQ(t, p.Locus.Pos, i)
	}
	expect.True(t, eval.seen[50].Empty())
	expect.True(t, eval.seen[51].Empty())
	expect.False(t, eval.seen[52].Empty())
	// Only the end of the shard forces the profile.
	expect.EQ(t, counterValue(opts.Metrics.forced), 1.0)
	expect.EQ(t, summarize(regions), []regionSummary{{"chr1:1-100", false, "a,b"}})
	checkRegions(t, regions, spans, reads, 5)
}

func TestIntervalGapForcesConversion(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{
		newReadLen(t, "a", chr1, 20, 20),
		newReadLen(t, "b", chr1, 25, 60),
		// d lies between the intervals and only overlaps the padding of the
		// second one.
		newReadLen(t, "d", chr1, 50, 8),
		newReadLen(t, "c", chr1, 90, 5),
	}
	spans := []interval.Span{{Ref: chr1, Start: 60, End: 100}, {Ref: chr1, Start: 0, End: 30}}
	opts := testOpts(5, 5, 1000)
	opts.Metrics = NewMetrics(nil)
	regions := collect(t, newSegmenter(t, header, reads, spans, newActiveAt(0, 0), opts))
	expect.EQ(t, counterValue(opts.Metrics.forced), 2.0)
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-30", false, "a,b"},
		{"chr1:61-100", false, "b,d,c"},
	})
	checkRegions(t, regions, spans, reads, 5)
}

func TestTrailingShortActiveRunIsFlushed(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{newReadLen(t, "a", chr1, 0, 100)}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 100}}
	regions := collect(t, newSegmenter(t, header, reads, spans, newActiveAt(97, 100), testOpts(3, 5, 1000)))
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-97", false, "a"},
		{"chr1:98-100", true, "a"},
	})
	checkRegions(t, regions, spans, reads, 3)
}

func TestActiveRunSplitAtMaxSize(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{
		newReadLen(t, "a", chr1, 0, 20),
		newReadLen(t, "long", chr1, 35, 30),
		newReadLen(t, "b", chr1, 70, 5),
		newReadLen(t, "c", chr1, 95, 5),
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 100}}
	regions := collect(t, newSegmenter(t, header, reads, spans, newActiveAt(0, 100), testOpts(10, 5, 30)))
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-30", true, "a,long"},
		{"chr1:31-60", true, "long"},
		{"chr1:61-90", true, "long,b,c"},
		{"chr1:91-100", true, "c"},
	})
	for _, r := range regions {
		expect.True(t, r.Span.Len() <= 30)
	}
	checkRegions(t, regions, spans, reads, 10)
}

func TestActiveRunSplitLeavesMinSize(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{
		newReadLen(t, "x", chr1, 0, 10),
		newReadLen(t, "y", chr1, 8, 12),
		newReadLen(t, "z", chr1, 50, 10),
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 100}}
	regions := collect(t, newSegmenter(t, header, reads, spans, newActiveAt(0, 13), testOpts(2, 5, 10)))
	assert.True(t, len(regions) > 2)
	// Cutting the 13-locus run at 10 would leave 3 loci.
	expect.EQ(t, summarize(regions[:2]), []regionSummary{
		{"chr1:1-8", true, "x,y"},
		{"chr1:9-13", true, "x,y"},
	})
	for _, r := range regions {
		expect.True(t, r.Span.Len() >= 5 && r.Span.Len() <= 10, "region %v", r.Span)
	}
	checkRegions(t, regions, spans, reads, 2)
}

func TestSmoothedSegmentation(t *testing.T) {
	header, refs := newHeader(t, 300)
	chr1 := refs[0]
	var reads []*sam.Record
	for pos := 0; pos < 300; pos += 20 {
		reads = append(reads, newReadLen(t, fmt.Sprintf("r%d", pos), chr1, pos, 15))
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 300}}
	opts := testOpts(10, 5, 50)
	opts.Profile.MaxFilterSize = 10
	opts.Profile.Sigma = 3
	eval := newActiveAt(100, 110)
	s := newSegmenter(t, header, reads, spans, eval, opts)

	assert.True(t, s.HasNext())
	first, err := s.Next()
	assert.NoError(t, err)
	// The first region is handed out long before the end of the contig.
	expect.EQ(t, first.Span.String(), "chr1:1-50")
	expect.True(t, len(eval.seen) < 100, "%d loci seen", len(eval.seen))
	regions := append([]*Region{first}, collect(t, s)...)

	active := map[int]bool{}
	for _, r := range regions {
		if !r.Active {
			continue
		}
		expect.True(t, r.Span.Start >= 80 && r.Span.End <= 130, "active region %v", r.Span)
		for pos := r.Span.Start; pos < r.Span.End; pos++ {
			active[pos] = true
		}
	}
	for pos := 100; pos < 110; pos++ {
		expect.True(t, active[pos], "locus %d", pos)
	}
	checkRegions(t, regions, spans, reads, 10)
}

func TestShortInactiveRunIsAbsorbed(t *testing.T) {
	header, refs := newHeader(t, 200)
	chr1 := refs[0]
	eval := newActiveAt(20, 40)
	for pos := 43; pos < 60; pos++ {
		eval.positions[pos] = true
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 200}}
	regions := collect(t, newSegmenter(t, header, nil, spans, eval, testOpts(0, 5, 1000)))
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-20", false, ""},
		{"chr1:21-43", true, ""},
		{"chr1:44-60", true, ""},
		{"chr1:61-200", false, ""},
	})
	checkRegions(t, regions, spans, nil, 0)
}

func TestContigChange(t *testing.T) {
	header, refs := newHeader(t, 50, 60)
	chr1, chr2 := refs[0], refs[1]
	reads := []*sam.Record{
		newReadLen(t, "a", chr1, 30, 20),
		newReadLen(t, "b", chr2, 0, 10),
		newReadLen(t, "c", chr2, 40, 10),
	}
	opts := testOpts(10, 5, 1000)
	opts.Metrics = NewMetrics(nil)
	regions := collect(t, newSegmenter(t, header, reads, nil, newActiveAt(45, 48), opts))
	expect.EQ(t, counterValue(opts.Metrics.forced), 2.0)
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-45", false, "a"},
		{"chr1:46-50", true, "a"},
		{"chr2:1-45", false, "b,c"},
		{"chr2:46-48", true, "c"},
		{"chr2:49-60", false, "c"},
	})
	checkRegions(t, regions, interval.WholeGenome(header), reads, 10)
}

func TestTrackPileups(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	reads := []*sam.Record{newReadLen(t, "a", chr1, 10, 50)}
	spans := []interval.Span{{Ref: chr1, Start: 5, End: 100}}
	opts := testOpts(10, 5, 1000)
	opts.TrackPileups = true
	regions := collect(t, newSegmenter(t, header, reads, spans, newActiveAt(39, 60), opts))
	assert.EQ(t, len(regions), 3)
	for _, r := range regions {
		assert.EQ(t, len(r.Pileups), r.Span.Len())
		for i, pc := range r.Pileups {
			expect.EQ(t, pc.Pileup.Locus, interval.Locus{Ref: chr1, Pos: r.Span.Start + i})
			expect.EQ(t, pc.Reference.Window, pc.Pileup.Locus.Span())
			expect.False(t, pc.Reference.HasData())
		}
	}
	expect.EQ(t, regions[0].Pileups[4].Pileup.Depth(), 0)
	expect.EQ(t, regions[0].Pileups[5].Pileup.Depth(), 1)
}

func TestMismatchEvaluatorWithReference(t *testing.T) {
	header, refs := newHeader(t, 100)
	chr1 := refs[0]
	ref, err := fasta.New(strings.NewReader(">chr1\n" + strings.Repeat("A", 100) + "\n"))
	require.NoError(t, err)
	seq := strings.Repeat("A", 10) + "C" + strings.Repeat("A", 9)
	var reads []*sam.Record
	for i := 0; i < 5; i++ {
		reads = append(reads, newRead(t, fmt.Sprintf("r%d", i), chr1, 20, seq))
	}
	spans := []interval.Span{{Ref: chr1, Start: 0, End: 100}}
	shard := &Shard{
		Intervals: spans,
		Reads:     bamprovider.NewIntervalsIterator(bamprovider.NewFakeProvider(header, reads), spans),
	}
	s, err := New(shard, header, ref, nil, DefaultMismatchEvaluator, testOpts(5, 5, 1000))
	require.NoError(t, err)
	regions := collect(t, s)
	expect.EQ(t, summarize(regions), []regionSummary{
		{"chr1:1-30", false, "r0,r1,r2,r3,r4"},
		{"chr1:31-31", true, "r0,r1,r2,r3,r4"},
		{"chr1:32-100", false, "r0,r1,r2,r3,r4"},
	})
	expect.EQ(t, regions[1].States[0].Prob, 1.0)
}

func TestUpstreamError(t *testing.T) {
	header, _ := newHeader(t, 100)
	upstream := fmt.Errorf("connection reset")
	shard := &Shard{Reads: bamprovider.NewErrorIterator(upstream)}
	s, err := New(shard, header, nil, nil, newActiveAt(0, 0), testOpts(5, 5, 100))
	require.NoError(t, err)
	expect.False(t, s.HasNext())
	_, err = s.Next()
	expect.True(t, err == upstream)
	expect.True(t, s.Err() == upstream)
	expect.False(t, s.HasNext())
}

func TestRemoveIsNotSupported(t *testing.T) {
	header, refs := newHeader(t, 100)
	s := newSegmenter(t, header, nil, []interval.Span{{Ref: refs[0], Start: 0, End: 10}}, newActiveAt(0, 0), testOpts(5, 5, 100))
	expect.True(t, errors.Is(errors.NotSupported, s.Remove()))
	assert.NoError(t, s.Close())
	expect.False(t, s.HasNext())
}

func TestNewRejectsInvalidArguments(t *testing.T) {
	header, refs := newHeader(t, 100)
	_, otherRefs := newHeader(t, 100)
	reads := bamprovider.NewFakeIterator(nil)
	eval := newActiveAt(0, 0)
	good := testOpts(5, 5, 100)
	shard := &Shard{Reads: reads}
	for i, test := range []struct {
		shard  *Shard
		header *sam.Header
		eval   Evaluator
		opts   Opts
	}{
		{nil, header, eval, good},
		{&Shard{}, header, eval, good},
		{shard, nil, eval, good},
		{shard, header, nil, good},
		{shard, header, eval, testOpts(-1, 5, 100)},
		{shard, header, eval, testOpts(5, 0, 100)},
		{shard, header, eval, testOpts(5, 50, 10)},
		{shard, header, eval, Opts{Padding: 5, MinRegionSize: 5, MaxRegionSize: 10, Profile: activity.Opts{ActiveProbThreshold: 2}}},
		{&Shard{Reads: reads, Intervals: []interval.Span{{Ref: otherRefs[0], Start: 0, End: 10}}}, header, eval, good},
		{&Shard{Reads: reads, Intervals: []interval.Span{{Ref: refs[0], Start: 90, End: 110}}}, header, eval, good},
	} {
		_, err := New(test.shard, test.header, nil, nil, test.eval, test.opts)
		expect.True(t, errors.Is(errors.Invalid, err), "case %d: %v", i, err)
	}

	bad, err := fasta.New(strings.NewReader(">chr1\nACGT\n"))
	require.NoError(t, err)
	_, err = New(shard, header, bad, nil, eval, good)
	expect.True(t, errors.Is(errors.Invalid, err))
}
