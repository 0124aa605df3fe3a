// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package interval

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// Feature is a named BED interval.
type Feature struct {
	Span
	// Name is the BED name column, or "" if the line had only three columns.
	Name string
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// ReadBED parses the BED data in r.  Contig names are resolved against
// header; coordinates are 0-based half-open as usual for BED.  Header,
// "track" and "browser" lines are skipped.  The features are returned in
// file order.
func ReadBED(r io.Reader, header *sam.Header) ([]Feature, error) {
	if header == nil {
		return nil, errors.E(errors.Invalid, "interval.ReadBED: nil header")
	}
	var (
		features []Feature
		tokens   = make([][]byte, 4)
		lineIdx  = 0
		// The same contig is usually repeated on consecutive lines.
		lastName []byte
		lastRef  *sam.Reference
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineIdx++
		line := scanner.Bytes()
		n := getTokens(tokens, line)
		if n == 0 || tokens[0][0] == '#' ||
			bytes.Equal(tokens[0], []byte("track")) || bytes.Equal(tokens[0], []byte("browser")) {
			continue
		}
		if n < 3 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.ReadBED: line %d has fewer than three columns", lineIdx))
		}
		if lastRef == nil || !bytes.Equal(lastName, tokens[0]) {
			lastName = append(lastName[:0], tokens[0]...)
			if lastRef = RefByName(header, string(tokens[0])); lastRef == nil {
				return nil, errors.E(errors.NotExist, fmt.Sprintf("interval.ReadBED: line %d: contig %s not in header", lineIdx, tokens[0]))
			}
		}
		start, err := strconv.Atoi(string(tokens[1]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("interval.ReadBED: line %d", lineIdx))
		}
		end, err := strconv.Atoi(string(tokens[2]))
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("interval.ReadBED: line %d", lineIdx))
		}
		span, err := NewSpan(lastRef, start, end)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("interval.ReadBED: line %d", lineIdx))
		}
		f := Feature{Span: span}
		if n == 4 {
			f.Name = string(tokens[3])
		}
		features = append(features, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return features, nil
}

// ReadBEDFromPath is a wrapper for ReadBED that takes a path instead of an
// io.Reader.  Gzipped files are decompressed transparently.
func ReadBEDFromPath(path string, header *sam.Header) (features []Feature, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return ReadBED(reader, header)
}

// Spans returns the spans of features, in the same order.
func Spans(features []Feature) []Span {
	out := make([]Span, len(features))
	for i, f := range features {
		out[i] = f.Span
	}
	return out
}

// MergeSpans sorts spans into header order and merges any that overlap or
// abut, returning the disjoint union.  The input slice is not modified.
func MergeSpans(spans []Span) []Span {
	sorted := append([]Span(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := CompareRefs(sorted[i].Ref, sorted[j].Ref); c != 0 {
			return c < 0
		}
		return sorted[i].Start < sorted[j].Start
	})
	var merged []Span
	for _, s := range sorted {
		if s.Empty() {
			continue
		}
		if n := len(merged); n > 0 && merged[n-1].Ref == s.Ref && s.Start <= merged[n-1].End {
			if s.End > merged[n-1].End {
				merged[n-1].End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// WholeGenome returns one span per reference in header.
func WholeGenome(header *sam.Header) []Span {
	var spans []Span
	for _, ref := range header.Refs() {
		if ref.Len() > 0 {
			spans = append(spans, Span{Ref: ref, Start: 0, End: ref.Len()})
		}
	}
	return spans
}
