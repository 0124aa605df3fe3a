package interval_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func newHeader(t *testing.T) (*sam.Header, *sam.Reference, *sam.Reference) {
	chr1, err := sam.NewReference("chr1", "", "", 1000, nil, nil)
	assert.NoError(t, err)
	chr2, err := sam.NewReference("chr2", "", "", 500, nil, nil)
	assert.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
	assert.NoError(t, err)
	return header, chr1, chr2
}

func TestSpanPadClipsToContig(t *testing.T) {
	_, chr1, _ := newHeader(t)
	s := interval.Span{Ref: chr1, Start: 5, End: 995}
	p := s.Pad(10)
	expect.EQ(t, p.Start, 0)
	expect.EQ(t, p.End, 1000)
	expect.EQ(t, interval.Span{Ref: chr1, Start: 39, End: 60}.Pad(10),
		interval.Span{Ref: chr1, Start: 29, End: 70})
	expect.EQ(t, interval.Span{Ref: chr1, Start: 39, End: 60}.String(), "chr1:40-60")
}

func TestLocusOrdering(t *testing.T) {
	_, chr1, chr2 := newHeader(t)
	s := interval.Span{Ref: chr1, Start: 10, End: 20}
	expect.False(t, interval.Locus{Ref: chr1, Pos: 19}.IsAfter(s))
	expect.True(t, interval.Locus{Ref: chr1, Pos: 20}.IsAfter(s))
	expect.True(t, interval.Locus{Ref: chr2, Pos: 0}.IsAfter(s))
	expect.False(t, interval.Locus{Ref: chr1, Pos: 0}.IsAfter(interval.Span{Ref: chr2, Start: 0, End: 1}))
	expect.True(t, interval.Locus{Ref: chr1, Pos: 3}.Adjacent(interval.Locus{Ref: chr1, Pos: 4}))
	expect.False(t, interval.Locus{Ref: chr1, Pos: 3}.Adjacent(interval.Locus{Ref: chr2, Pos: 4}))
	expect.True(t, interval.Locus{Ref: chr1, Pos: 999}.Compare(interval.Locus{Ref: chr2, Pos: 0}) < 0)
}

func TestParseRegion(t *testing.T) {
	header, chr1, chr2 := newHeader(t)
	for _, test := range []struct {
		region string
		want   interval.Span
	}{
		{"chr1", interval.Span{Ref: chr1, Start: 0, End: 1000}},
		{"chr2:7", interval.Span{Ref: chr2, Start: 6, End: 7}},
		{"chr1:41-60", interval.Span{Ref: chr1, Start: 40, End: 60}},
		{"chr1:1,001-1,000", interval.Span{}},
	} {
		got, err := interval.ParseRegion(header, test.region)
		if test.want.Ref == nil {
			expect.True(t, errors.Is(errors.Invalid, err), "region %s", test.region)
			continue
		}
		assert.NoError(t, err, "region %s", test.region)
		expect.EQ(t, got, test.want)
	}
	_, err := interval.ParseRegion(header, "chrX:1-2")
	expect.True(t, errors.Is(errors.NotExist, err))
}

func TestReadBEDAndMerge(t *testing.T) {
	header, chr1, chr2 := newHeader(t)
	bed := "track name=test\n" +
		"#comment\n" +
		"chr2\t0\t10\tb\n" +
		"chr1\t100\t200\ta\n" +
		"chr1\t150\t250\n" +
		"chr1\t250\t260\tc\n" +
		"chr1\t300\t310\td\n"
	features, err := interval.ReadBED(strings.NewReader(bed), header)
	assert.NoError(t, err)
	assert.EQ(t, len(features), 5)
	expect.EQ(t, features[0].Name, "b")
	expect.EQ(t, features[2].Name, "")

	merged := interval.MergeSpans(interval.Spans(features))
	expect.EQ(t, merged, []interval.Span{
		{Ref: chr1, Start: 100, End: 260},
		{Ref: chr1, Start: 300, End: 310},
		{Ref: chr2, Start: 0, End: 10},
	})

	_, err = interval.ReadBED(strings.NewReader("chr1\t10\n"), header)
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = interval.ReadBED(strings.NewReader("chr9\t10\t20\n"), header)
	expect.True(t, errors.Is(errors.NotExist, err))
}

func TestFeatureIndex(t *testing.T) {
	_, chr1, chr2 := newHeader(t)
	idx, err := interval.NewFeatureIndex([]interval.Feature{
		{Span: interval.Span{Ref: chr1, Start: 100, End: 200}, Name: "a"},
		{Span: interval.Span{Ref: chr1, Start: 150, End: 160}, Name: "b"},
		{Span: interval.Span{Ref: chr2, Start: 0, End: 5}, Name: "c"},
	})
	assert.NoError(t, err)
	expect.EQ(t, idx.Len(), 3)

	var names []string
	for _, f := range idx.Overlapping(interval.Span{Ref: chr1, Start: 155, End: 156}) {
		names = append(names, f.Name)
	}
	expect.EQ(t, names, []string{"a", "b"})
	expect.True(t, idx.Intersects(interval.Span{Ref: chr1, Start: 199, End: 300}))
	expect.False(t, idx.Intersects(interval.Span{Ref: chr1, Start: 200, End: 300}))
	expect.False(t, idx.Intersects(interval.Span{Ref: chr2, Start: 5, End: 6}))

	var nilIdx *interval.FeatureIndex
	expect.EQ(t, len(nilIdx.Overlapping(interval.Span{Ref: chr1, Start: 0, End: 10})), 0)
}

func TestReadBEDFromPath(t *testing.T) {
	header, chr1, _ := newHeader(t)
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	bed := "chr1\t10\t20\tx\nchr1\t30\t40\n"
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(bed))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	gzPath := filepath.Join(tempDir, "targets.bed.gz")
	assert.NoError(t, os.WriteFile(gzPath, buf.Bytes(), 0644))
	plainPath := filepath.Join(tempDir, "targets.bed")
	assert.NoError(t, os.WriteFile(plainPath, []byte(bed), 0644))

	for _, path := range []string{gzPath, plainPath} {
		features, err := interval.ReadBEDFromPath(path, header)
		assert.NoError(t, err, path)
		expect.EQ(t, interval.Spans(features), []interval.Span{
			{Ref: chr1, Start: 10, End: 20},
			{Ref: chr1, Start: 30, End: 40},
		})
		expect.EQ(t, features[0].Name, "x")
	}
	_, err = interval.ReadBEDFromPath(filepath.Join(tempDir, "missing.bed"), header)
	expect.True(t, err != nil)
}

func TestWholeGenome(t *testing.T) {
	header, chr1, chr2 := newHeader(t)
	expect.EQ(t, interval.WholeGenome(header), []interval.Span{
		{Ref: chr1, Start: 0, End: 1000},
		{Ref: chr2, Start: 0, End: 500},
	})
}
