// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package fasta

import (
	"context"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Opened is a Fasta backed by an open file.  Close releases the file.
type Opened struct {
	Fasta
	ctx context.Context
	in  file.File
}

// Close closes the underlying file.
func (o *Opened) Close() error {
	if o.in == nil {
		return nil
	}
	err := o.in.Close(o.ctx)
	o.in = nil
	return err
}

// Open opens the FASTA file at path.  When path+".fai" exists the sequences
// are read on demand through the index; otherwise the whole file is loaded
// into memory and closed; compressed files are supported on that path.
func Open(ctx context.Context, path string) (*Opened, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "fasta.Open", path)
	}
	idx, err := file.Open(ctx, path+".fai")
	if err == nil {
		defer idx.Close(ctx) // nolint: errcheck
		fa, err := NewIndexed(in.Reader(ctx), idx.Reader(ctx))
		if err != nil {
			_ = in.Close(ctx)
			return nil, errors.E(err, "fasta.Open", path)
		}
		return &Opened{Fasta: fa, ctx: ctx, in: in}, nil
	}
	log.Debug.Printf("fasta.Open: %s has no index, loading into memory", path)
	reader, _ := compress.NewReader(in.Reader(ctx))
	fa, err := New(reader)
	if cerr := reader.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := in.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.E(err, "fasta.Open", path)
	}
	return &Opened{Fasta: fa, ctx: ctx}, nil
}
