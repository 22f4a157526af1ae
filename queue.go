// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import "fmt"

// kind tags which engine backs a ConcurrentQueue.
type kind uint8

const (
	kindBounded kind = iota
	kindUnbounded
)

// ConcurrentQueue is a concurrent, multi-producer multi-consumer FIFO
// queue. It is a thin tagged union over two lock-free engines — a
// fixed-capacity [bounded] ring buffer or a growable [unbounded] segmented
// list — plus a shared Close capability.
//
// Every method is safe to call from any number of goroutines concurrently,
// provided T is itself safe to share across goroutines.
//
// Example:
//
//	q := cqueue.Bounded[rune](2)
//
//	_ = q.Push('a')
//	_ = q.Push('b')
//	err := q.Push('c') // *cqueue.PushError[rune], IsFull() == true
//
//	v, _ := q.Pop() // 'a'
//	v, _ = q.Pop()  // 'b'
//	_, err = q.Pop() // cqueue.PopEmpty
type ConcurrentQueue[T any] struct {
	tag       kind
	bounded   *bounded[T]
	unbounded *unbounded[T]
}

// Bounded creates a new fixed-capacity queue. The queue allocates enough
// space for cap items up front.
//
// Panics if cap is zero.
func Bounded[T any](cap int) *ConcurrentQueue[T] {
	if cap < 1 {
		panic("cqueue: bounded capacity must be >= 1")
	}
	return &ConcurrentQueue[T]{tag: kindBounded, bounded: newBounded[T](cap)}
}

// Unbounded creates a new queue with no fixed capacity. It grows by
// linking additional fixed-size blocks as producers fill the current one.
func Unbounded[T any]() *ConcurrentQueue[T] {
	return &ConcurrentQueue[T]{tag: kindUnbounded, unbounded: newUnbounded[T]()}
}

// Push attempts to add value to the queue.
//
// Returns nil on success. Returns a *PushError[T] carrying value back to
// the caller if the queue is full (bounded only) or closed. Unbounded
// queues never report Full.
func (q *ConcurrentQueue[T]) Push(value T) error {
	if q.tag == kindBounded {
		return q.bounded.push(value)
	}
	return q.unbounded.push(value)
}

// Pop attempts to remove and return the oldest item in the queue.
//
// Returns PopEmpty if the queue currently holds no items but is still
// open, or PopClosed if it holds no items and is closed.
func (q *ConcurrentQueue[T]) Pop() (T, error) {
	if q.tag == kindBounded {
		return q.bounded.pop()
	}
	return q.unbounded.pop()
}

// IsEmpty reports whether the queue is empty at the moment of the call.
func (q *ConcurrentQueue[T]) IsEmpty() bool {
	if q.tag == kindBounded {
		return q.bounded.isEmpty()
	}
	return q.unbounded.isEmpty()
}

// IsFull reports whether the queue is at capacity at the moment of the
// call. Always false for unbounded queues.
func (q *ConcurrentQueue[T]) IsFull() bool {
	if q.tag == kindBounded {
		return q.bounded.isFull()
	}
	return q.unbounded.isFull()
}

// Len returns a best-effort consistent snapshot of the number of items
// currently in the queue. Under concurrent access this is a snapshot, not
// a linearization point, but it never reports a value outside
// [0, capacity] for a bounded queue or a negative value for either.
func (q *ConcurrentQueue[T]) Len() int {
	if q.tag == kindBounded {
		return q.bounded.len()
	}
	return q.unbounded.len()
}

// Cap returns the queue's fixed capacity and true for a bounded queue, or
// (0, false) for an unbounded queue.
func (q *ConcurrentQueue[T]) Cap() (int, bool) {
	if q.tag == kindBounded {
		return q.bounded.cap(), true
	}
	return 0, false
}

// Close closes the queue, permanently disabling further pushes. Items
// already in the queue may still be popped until it is drained.
//
// Returns true if this call closed the queue, or false if it was already
// closed. Close is idempotent: only the first call returns true.
func (q *ConcurrentQueue[T]) Close() bool {
	if q.tag == kindBounded {
		return q.bounded.close()
	}
	return q.unbounded.close()
}

// IsClosed reports whether the queue has been closed.
func (q *ConcurrentQueue[T]) IsClosed() bool {
	if q.tag == kindBounded {
		return q.bounded.isClosed()
	}
	return q.unbounded.isClosed()
}

// String implements fmt.Stringer, summarizing the queue's current
// length, capacity and closed state for diagnostics.
func (q *ConcurrentQueue[T]) String() string {
	capStr := "none"
	if c, ok := q.Cap(); ok {
		capStr = fmt.Sprintf("%d", c)
	}
	return fmt.Sprintf("ConcurrentQueue{len: %d, capacity: %s, closed: %t}", q.Len(), capStr, q.IsClosed())
}
