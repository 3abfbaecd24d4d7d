// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package capture

import (
	"testing"
)

func block(id int) []byte {
	return []byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
}

func blockID(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16 | int(b[3])<<24
}

// TestQueueDropOldest pushes 7000 blocks into a queue of capacity 6000
// with no consumer: the queue must stay full at its bound, holding
// exactly the most recent 6000 blocks, with a dropped count equal to
// producer_total - consumed_total - queue_size.
func TestQueueDropOldest(t *testing.T) {
	const (
		capacity = 6000
		total    = 7000
	)
	q := newBlockQueue(capacity)
	for i := 0; i < total; i++ {
		q.push(block(i))
	}

	if got := q.len(); got != capacity {
		t.Fatalf("queue length = %d, want %d", got, capacity)
	}
	if got, want := q.droppedCount(), uint64(total-capacity); got != want {
		t.Fatalf("dropped = %d, want %d", got, want)
	}
	if got, want := q.droppedCount(), uint64(total)-0-uint64(q.len()); got != want {
		t.Fatalf("dropped invariant violated: dropped=%d, want=total-consumed-queue_size=%d", got, want)
	}

	done := make(chan struct{})
	for i := 0; i < capacity; i++ {
		b, ok := q.pop(done)
		if !ok {
			t.Fatalf("pop %d: queue drained early", i)
		}
		if want := total - capacity + i; blockID(b) != want {
			t.Fatalf("pop %d: got block %d, want %d", i, blockID(b), want)
		}
	}
}

func TestQueueNeverExceedsCapacity(t *testing.T) {
	const capacity = 16
	q := newBlockQueue(capacity)
	for i := 0; i < 10*capacity; i++ {
		q.push(block(i))
		if got := q.len(); got > capacity {
			t.Fatalf("queue length %d exceeds capacity %d", got, capacity)
		}
	}
}

func TestQueueClear(t *testing.T) {
	q := newBlockQueue(10)
	for i := 0; i < 5; i++ {
		q.push(block(i))
	}
	q.clear()
	if got := q.len(); got != 0 {
		t.Fatalf("queue length after clear = %d, want 0", got)
	}
}

func TestQueuePopUnblocksOnDone(t *testing.T) {
	q := newBlockQueue(10)
	done := make(chan struct{})
	close(done)

	_, ok := q.pop(done)
	if ok {
		t.Fatalf("expected pop to report !ok once done fired on an empty queue")
	}
}
