// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fasta

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// faiEntry is one line of a .fai index: "<name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>".
type faiEntry struct {
	length    uint64
	offset    uint64
	lineBases uint64
	lineWidth uint64
}

// fileOffset returns the byte offset of base pos.
func (e faiEntry) fileOffset(pos uint64) int64 {
	return int64(e.offset + (pos/e.lineBases)*e.lineWidth + pos%e.lineBases)
}

type indexedFasta struct {
	seqs     map[string]faiEntry
	seqNames []string

	mu  sync.Mutex
	in  io.ReadSeeker
	buf []byte
}

func parseIndex(index io.Reader) (map[string]faiEntry, []string, error) {
	seqs := make(map[string]faiEntry)
	var names []string
	scanner := bufio.NewScanner(index)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 5 {
			return nil, nil, errors.Errorf("fasta index line %d: expect 5 columns, got %q", lineNo, line)
		}
		var vals [4]uint64
		for i := range vals {
			v, err := strconv.ParseUint(cols[i+1], 10, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "fasta index line %d", lineNo)
			}
			vals[i] = v
		}
		ent := faiEntry{length: vals[0], offset: vals[1], lineBases: vals[2], lineWidth: vals[3]}
		if ent.lineBases == 0 || ent.lineWidth < ent.lineBases {
			return nil, nil, errors.Errorf("fasta index line %d: bad line geometry %q", lineNo, line)
		}
		seqs[cols[0]] = ent
		names = append(names, cols[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "fasta index")
	}
	return seqs, names, nil
}

// NewIndexed returns a Fasta that reads bases from fasta on demand using the
// faidx index.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	seqs, names, err := parseIndex(index)
	if err != nil {
		return nil, err
	}
	return &indexedFasta{seqs: seqs, seqNames: names, in: fasta}, nil
}

func (f *indexedFasta) Get(name string, start, end uint64) (string, error) {
	ent, ok := f.seqs[name]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", name)
	}
	if err := checkRange(name, start, end, ent.length); err != nil {
		return "", err
	}
	off := ent.fileOffset(start)
	n := int(ent.fileOffset(end-1)-off) + 1

	f.mu.Lock()
	defer f.mu.Unlock()
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	raw := f.buf[:n]
	if _, err := f.in.Seek(off, io.SeekStart); err != nil {
		return "", errors.Wrapf(err, "seek %s:%d", name, start)
	}
	if _, err := io.ReadFull(f.in, raw); err != nil {
		return "", errors.Wrapf(err, "read %s:%d-%d (bad index?)", name, start, end)
	}
	var sb strings.Builder
	sb.Grow(int(end - start))
	for _, b := range raw {
		if b != '\n' && b != '\r' {
			sb.WriteByte(b)
		}
	}
	if uint64(sb.Len()) != end-start {
		return "", errors.Errorf("read %s:%d-%d: got %d bases, index does not match file", name, start, end, sb.Len())
	}
	return sb.String(), nil
}

func (f *indexedFasta) Len(name string) (uint64, error) {
	ent, ok := f.seqs[name]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", name)
	}
	return ent.length, nil
}

func (f *indexedFasta) SeqNames() []string { return f.seqNames }
