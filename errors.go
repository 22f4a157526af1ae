// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

// PopError is returned by [ConcurrentQueue.Pop] when no item is available.
//
// PopEmpty and PopClosed are both control-flow signals, not failures: a
// caller polling a queue should treat PopEmpty as "try again later" and
// PopClosed as "stop polling, the queue will never yield another item".
type PopError uint8

const (
	// PopEmpty means the queue currently holds no items but is still open;
	// a later Pop call may succeed once a producer pushes.
	PopEmpty PopError = iota + 1

	// PopClosed means the queue holds no items and is closed; no future
	// Pop call on this queue will ever return a value.
	PopClosed
)

// Error implements the error interface.
func (e PopError) Error() string {
	switch e {
	case PopEmpty:
		return "cqueue: empty"
	case PopClosed:
		return "cqueue: closed"
	default:
		return "cqueue: unknown pop error"
	}
}

// IsClosed reports whether e is PopClosed.
func (e PopError) IsClosed() bool { return e == PopClosed }

// PushError is returned by [ConcurrentQueue.Push] when an item could not
// be accepted. The rejected value is carried on the error so the caller
// never loses ownership of it.
type PushError[T any] struct {
	// Value is the item that was rejected.
	Value T
	// closed is true when the queue was closed; false means the bounded
	// queue was simply full.
	closed bool
}

// Error implements the error interface.
func (e *PushError[T]) Error() string {
	if e.closed {
		return "cqueue: closed"
	}
	return "cqueue: full"
}

// IsFull reports whether the push failed because the bounded queue was at
// capacity (and not closed).
func (e *PushError[T]) IsFull() bool { return !e.closed }

// IsClosed reports whether the push failed because the queue was closed.
func (e *PushError[T]) IsClosed() bool { return e.closed }

func pushFull[T any](v T) *PushError[T] {
	return &PushError[T]{Value: v, closed: false}
}

func pushClosed[T any](v T) *PushError[T] {
	return &PushError[T]{Value: v, closed: true}
}
