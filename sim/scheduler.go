package sim

import "time"

// FrameID identifies a pending frame request. The zero value is never issued.
type FrameID uint64

// FrameFunc is invoked once per granted frame with a monotonic timestamp.
type FrameFunc func(ts time.Duration)

// Scheduler grants frame callbacks at the host's display cadence.
type Scheduler interface {
	RequestFrame(fn FrameFunc) FrameID
	CancelFrame(id FrameID)
}

type pendingFrame struct {
	id FrameID
	fn FrameFunc
}

// FrameQueue is an in-process Scheduler. Requests accumulate until the host
// loop calls Pump; callbacks requested during a pump run on the next one.
type FrameQueue struct {
	next    FrameID
	pending []pendingFrame
	running []pendingFrame
}

// NewFrameQueue creates an empty frame queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// RequestFrame queues fn for the next pump.
func (q *FrameQueue) RequestFrame(fn FrameFunc) FrameID {
	q.next++
	q.pending = append(q.pending, pendingFrame{id: q.next, fn: fn})
	return q.next
}

// CancelFrame drops a queued request. Unknown or already fired ids are ignored.
func (q *FrameQueue) CancelFrame(id FrameID) {
	for i := range q.pending {
		if q.pending[i].id == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued requests.
func (q *FrameQueue) Pending() int {
	return len(q.pending)
}

// Pump fires every request queued before the call, in request order, and
// returns how many ran.
func (q *FrameQueue) Pump(ts time.Duration) int {
	if len(q.pending) == 0 {
		return 0
	}
	q.running, q.pending = q.pending, q.running[:0]
	for _, f := range q.running {
		f.fn(ts)
	}
	n := len(q.running)
	clear(q.running)
	q.running = q.running[:0]
	return n
}
