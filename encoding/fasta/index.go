// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// GenerateIndex writes the faidx index of the FASTA data read from in.  Every
// line of a sequence except the last must have the same width.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w       = tsv.NewWriter(out)
		r       = bufio.NewReader(in)
		off     int64
		cur     string
		ent     faiEntry
		started bool
		short   bool // a line shorter than lineBases was seen
	)
	flush := func() error {
		if !started {
			return nil
		}
		w.WriteString(cur)
		w.WriteInt64(int64(ent.length))
		w.WriteInt64(int64(ent.offset))
		w.WriteInt64(int64(ent.lineBases))
		w.WriteInt64(int64(ent.lineWidth))
		return w.EndLine()
	}
	for {
		full, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "fasta.GenerateIndex")
		}
		lineStart := off
		off += int64(len(full))
		line := bytes.TrimRight(full, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if ferr := flush(); ferr != nil {
				return ferr
			}
			cur, started, short = seqName(line), true, false
			ent = faiEntry{offset: uint64(off)}
		case !started:
			return errors.Errorf("fasta.GenerateIndex: bases at offset %d before the first header", lineStart)
		default:
			if short {
				return errors.Errorf("fasta.GenerateIndex: %s has uneven line lengths", cur)
			}
			if ent.lineBases == 0 {
				ent.lineBases, ent.lineWidth = uint64(len(line)), uint64(len(full))
			} else if uint64(len(line)) > ent.lineBases {
				return errors.Errorf("fasta.GenerateIndex: %s has uneven line lengths", cur)
			} else if uint64(len(line)) < ent.lineBases {
				short = true
			}
			ent.length += uint64(len(line))
		}
		if err == io.EOF {
			break
		}
	}
	if !started {
		return errors.Errorf("fasta.GenerateIndex: no sequences")
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Flush()
}
