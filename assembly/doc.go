// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

/*
Package assembly segments a coordinate-sorted read stream into assembly
regions: bounded spans of the genome, tagged active or inactive, each carrying
every read that overlaps the span extended by a fixed padding.

A Segmenter walks the loci of a shard one at a time.  At each locus an
Evaluator judges how likely the locus is to be interesting; the judgments go
into an activity.Profile, which smooths them and decides where regions begin
and end.  A decided region is only handed out once the walk has moved past
its padded span, since only then can no further read overlap it.  Reads are
buffered in a ReadCache and may be attached to two consecutive regions.

	shard := assembly.NewShard(provider, intervals, assembly.DefaultOpts.Padding)
	seg, err := assembly.New(shard, header, ref, nil, evaluator, assembly.DefaultOpts)
	...
	for seg.HasNext() {
		region, err := seg.Next()
		...
	}
	err = seg.Close()
*/
package assembly
