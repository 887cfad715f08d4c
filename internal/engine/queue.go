package engine

import "container/heap"

// event is one scheduled transition firing. seq is a monotone insertion
// counter, so equal-time events pop in FIFO order.
type event struct {
	time float64
	seq  uint64
	atm  int
	tr   int
}

// eventQueue is a binary heap keyed (time, seq). Cancelled events are not
// removed; they go stale when their pending entry is dropped and are skipped
// on pop.
type eventQueue []*event

var _ heap.Interface = (*eventQueue)(nil)

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}
