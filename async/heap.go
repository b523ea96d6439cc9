// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package async

import "time"

// waitEntry is one pending wakeup: task should become ready once the
// scheduler's virtual clock reaches deadline. seq breaks ties between
// entries with an equal deadline, preserving FIFO wake order (spec §4.3
// "Tasks woken at the same virtual-time tick run in insertion order").
type waitEntry struct {
	deadline time.Duration
	seq      uint64
	task     *taskState
}

// waitHeap is a container/heap.Interface ordered by (deadline, seq).
type waitHeap []*waitEntry

func (h waitHeap) Len() int { return len(h) }
func (h waitHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h waitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *waitHeap) Push(x any) {
	*h = append(*h, x.(*waitEntry))
}

func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
