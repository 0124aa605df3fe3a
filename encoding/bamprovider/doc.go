// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bamprovider reads coordinate-sorted alignments that overlap
// genomic spans.
//
// A Provider opens an indexed BAM file (or, in tests, an in-memory record
// list) and hands out Iterators over one span each.  NewIntervalsIterator
// chains the iterators of several disjoint spans into one stream in which
// every read appears once.
package bamprovider
