package core

import (
	"container/heap"
	"time"
)

// scheduledTask is one entry in the timer min-heap: an action due to run at
// a specific instant. Action re-schedules itself (by calling back into the
// owning Timers) when its task family needs another pass: terminate-by-
// timeout, acknowledgement retransmit, and the periodic scheduler tick all
// work this way.
type scheduledTask struct {
	at     time.Time
	action func(now time.Time)
	index  int // heap bookkeeping, maintained by container/heap
}

// taskHeap is a container/heap.Interface ordering scheduledTasks by at
// ascending. A priority heap is the natural fit for "pop everything due by
// now" against an unbounded, arbitrarily-timed set of pending actions; see
// DESIGN.md for why this stays on the standard library rather than a
// cron-style scheduling dependency.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	t := x.(*scheduledTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Timers is the priority-ordered delayed-action subsystem backing
// retransmission and timeout handling. It is driven exclusively by the
// dispatcher goroutine's poll ticker, so it needs no internal
// synchronization.
type Timers struct {
	heap taskHeap
}

// NewTimers returns an empty Timers.
func NewTimers() *Timers {
	t := &Timers{}
	heap.Init(&t.heap)
	return t
}

// Schedule installs action to run at (or after) at.
func (t *Timers) Schedule(at time.Time, action func(now time.Time)) {
	heap.Push(&t.heap, &scheduledTask{at: at, action: action})
}

// After installs action to run after d elapses from now.
func (t *Timers) After(now time.Time, d time.Duration, action func(now time.Time)) {
	t.Schedule(now.Add(d), action)
}

// Poll pops and invokes, in due-time order, every task whose at is <= now.
// Actions that need to run again call back into Schedule/After themselves;
// Poll does not re-invoke a popped task.
func (t *Timers) Poll(now time.Time) {
	for t.heap.Len() > 0 {
		next := t.heap[0]
		if next.at.After(now) {
			return
		}
		heap.Pop(&t.heap)
		next.action(now)
	}
}

// Len reports how many tasks are currently pending, exposed for tests that
// need to assert the heap drains after a transfer terminates.
func (t *Timers) Len() int {
	return t.heap.Len()
}
