// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bamprovider

import (
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/assembly/interval"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for indexed BAM files.  Both BAM and the
// index filenames are allowed to be S3 URLs, in which case the data will be
// read from S3. Otherwise the data will be read from the local filesystem.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Index is the pathname of *.bam.bai file. If "", Path + ".bai"
	Index string
	err   errors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
	index   *bam.Index
}

type bamIterator struct {
	provider *BAMProvider
	span     interval.Span
	in       file.File
	reader   *bam.Reader

	err    error
	rec    *sam.Record
	done   bool
	closed bool
}

func (b *BAMProvider) indexPath() string {
	if b.Index != "" {
		return b.Index
	}
	return b.Path + ".bai"
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.err.Err(); err != nil {
		return nil, err
	}
	if b.header != nil {
		return b.header, nil
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		b.err.Set(err)
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		b.err.Set(err)
		return nil, err
	}
	b.header = reader.Header()
	b.err.Set(reader.Close())
	return b.header, b.err.Err()
}

// loadIndex reads the BAI index once.  REQUIRES: b.mu is held.
func (b *BAMProvider) loadIndex() (*bam.Index, error) {
	if b.index != nil {
		return b.index, nil
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.indexPath())
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	if b.index, err = bam.ReadIndex(in.Reader(ctx)); err != nil {
		return nil, fmt.Errorf("%s: %v", b.indexPath(), err)
	}
	return b.index, nil
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %+v", b.nActive, b.Path)
	}
	return b.err.Err()
}

// NewIterator implements the Provider interface.
func (b *BAMProvider) NewIterator(span interval.Span) Iterator {
	if span.Ref == nil || span.Empty() {
		return NewErrorIterator(fmt.Errorf("bamprovider: invalid span %v", span))
	}
	if _, err := b.GetHeader(); err != nil {
		return NewErrorIterator(err)
	}
	b.mu.Lock()
	idx, err := b.loadIndex()
	if err == nil {
		b.nActive++
	}
	b.mu.Unlock()
	if err != nil {
		b.err.Set(err)
		return NewErrorIterator(err)
	}

	iter := &bamIterator{provider: b, span: span}
	chunks, err := idx.Chunks(span.Ref, span.Start, span.End)
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		// No reads for this span.
		iter.done = true
		return iter
	}
	if err != nil {
		iter.err = err
		return iter
	}
	ctx := vcontext.Background()
	if iter.in, iter.err = file.Open(ctx, b.Path); iter.err != nil {
		return iter
	}
	if iter.reader, iter.err = bam.NewReader(iter.in.Reader(ctx), 1); iter.err != nil {
		return iter
	}
	iter.err = iter.reader.Seek(chunks[0].Begin)
	vlog.VI(1).Infof("%s: reading %v from offset %+v", b.Path, span, chunks[0].Begin)
	return iter
}

// Scan implements the Iterator interface.  The index may place the seek
// offset before the span, so records ending before span.Start are skipped.
func (i *bamIterator) Scan() bool {
	if i.err != nil || i.done {
		return false
	}
	for {
		i.rec, i.err = i.reader.Read()
		if i.err != nil {
			return false
		}
		i.canonicalizeRefs()
		if interval.RecordIsAfter(i.rec, i.span) {
			i.done = true
			return false
		}
		if i.span.OverlapsRecord(i.rec) {
			return true
		}
	}
}

// canonicalizeRefs points the record's references into the provider's
// header, since each iterator decodes its own copy of the header.
func (i *bamIterator) canonicalizeRefs() {
	refs := i.provider.header.Refs()
	if r := i.rec.Ref; r != nil && r.ID() >= 0 && r.ID() < len(refs) {
		i.rec.Ref = refs[r.ID()]
	}
	if r := i.rec.MateRef; r != nil && r.ID() >= 0 && r.ID() < len(refs) {
		i.rec.MateRef = refs[r.ID()]
	}
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record { return i.rec }

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	if i.closed {
		return i.Err()
	}
	i.closed = true
	if i.reader != nil {
		if err := i.reader.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.reader = nil
	}
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.err == nil {
			i.err = err
		}
		i.in = nil
	}
	p := i.provider
	p.mu.Lock()
	p.nActive--
	if p.nActive < 0 {
		vlog.Fatalf("Negative active count for %+v", p.Path)
	}
	p.mu.Unlock()
	err := i.Err()
	p.err.Set(err)
	return err
}
