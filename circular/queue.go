// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package circular

import "github.com/grailbio/base/log"

// minQueueCap is the capacity of a Queue's first allocation.
const minQueueCap = 16

// Queue is a FIFO ring buffer.  Elements are appended at the back and removed
// from the front; the buffer size is always a power of two so that logical
// index i lives in row (head+i) & (cap-1), as in the pileup ring buffers.
//
// The zero value is an empty queue ready to use.  Not thread safe.
type Queue[T any] struct {
	buf  []T
	head int
	n    int
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int { return q.n }

func (q *Queue[T]) mask() int { return len(q.buf) - 1 }

func (q *Queue[T]) grow() {
	newCap := minQueueCap
	if len(q.buf) >= minQueueCap {
		newCap = NextExp2(len(q.buf))
	}
	buf := make([]T, newCap)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)&q.mask()]
	}
	q.buf = buf
	q.head = 0
}

// PushBack appends v at the back of the queue.
func (q *Queue[T]) PushBack(v T) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)&q.mask()] = v
	q.n++
}

// Ptr returns a pointer to the i'th element from the front.  The pointer is
// invalidated by the next PushBack.
//
// REQUIRES: 0 <= i < Len().
func (q *Queue[T]) Ptr(i int) *T {
	if i < 0 || i >= q.n {
		log.Panicf("circular.Queue: index %d out of range [0, %d)", i, q.n)
	}
	return &q.buf[(q.head+i)&q.mask()]
}

// At returns the i'th element from the front.
//
// REQUIRES: 0 <= i < Len().
func (q *Queue[T]) At(i int) T { return *q.Ptr(i) }

// Front returns the first element.
//
// REQUIRES: Len() > 0.
func (q *Queue[T]) Front() T { return q.At(0) }

// Back returns the last element.
//
// REQUIRES: Len() > 0.
func (q *Queue[T]) Back() T { return q.At(q.n - 1) }

// PopFront removes and returns the first element.
//
// REQUIRES: Len() > 0.
func (q *Queue[T]) PopFront() T {
	p := q.Ptr(0)
	v := *p
	var zero T
	*p = zero // Release references held by the slot.
	q.head = (q.head + 1) & q.mask()
	q.n--
	return v
}

// Truncate drops elements from the back until Len() <= n.
func (q *Queue[T]) Truncate(n int) {
	var zero T
	for q.n > n {
		q.n--
		q.buf[(q.head+q.n)&q.mask()] = zero
	}
}

// Clear removes all elements.
func (q *Queue[T]) Clear() { q.Truncate(0) }
