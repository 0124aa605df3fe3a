// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package fasta reads reference sequences from FASTA files, either fully in
// memory or through a samtools faidx index (http://www.htslib.org/doc/faidx.html).
//
// A sequence name is the run of non-space characters after '>'; the rest of
// the header line is ignored, so '>chr1 A viral sequence' names "chr1".
// Bases are returned exactly as stored, including soft-masked lowercase.
package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Longest FASTA line accepted by New.
const maxLineLen = 1 << 28

// Fasta represents a set of named reference sequences.
type Fasta interface {
	// Get returns bases [start, end) of the named sequence.  It is thread
	// safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the named sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the sequence names in file order.
	SeqNames() []string
}

type memFasta struct {
	seqs     map[string][]byte
	seqNames []string
}

// seqName extracts the sequence name from a '>' header line.
func seqName(line []byte) string {
	name := line[1:]
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return string(name)
}

// New reads all of r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string][]byte)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLen)
	var (
		name string
		seq  []byte
		open bool
	)
	flush := func() {
		if open {
			f.seqs[name] = seq
			f.seqNames = append(f.seqNames, name)
		}
	}
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			name, seq, open = seqName(line), nil, true
			if name == "" {
				return nil, errors.Errorf("fasta.New: empty sequence name")
			}
			if _, dup := f.seqs[name]; dup {
				return nil, errors.Errorf("fasta.New: duplicate sequence %s", name)
			}
			continue
		}
		if !open {
			return nil, errors.Errorf("fasta.New: bases before the first sequence header")
		}
		seq = append(seq, line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "fasta.New")
	}
	flush()
	return f, nil
}

func (f *memFasta) Get(name string, start, end uint64) (string, error) {
	seq, ok := f.seqs[name]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", name)
	}
	if err := checkRange(name, start, end, uint64(len(seq))); err != nil {
		return "", err
	}
	return string(seq[start:end]), nil
}

func (f *memFasta) Len(name string) (uint64, error) {
	seq, ok := f.seqs[name]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", name)
	}
	return uint64(len(seq)), nil
}

func (f *memFasta) SeqNames() []string { return f.seqNames }

func checkRange(name string, start, end, length uint64) error {
	if end <= start {
		return errors.Errorf("start must be less than end")
	}
	if end > length {
		return errors.Errorf("end is past end of sequence %s: %d", name, length)
	}
	return nil
}
