// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cqueue provides a concurrent, multi-producer multi-consumer
// FIFO queue with two flavors and a shared close capability.
//
//   - Bounded: a fixed-capacity lock-free ring buffer (stamped-slot
//     design, the same family of algorithm as crossbeam's ArrayQueue).
//   - Unbounded: a growable lock-free queue built from a linked chain
//     of fixed-size blocks.
//
// Both flavors are wrapped by the same [ConcurrentQueue] type, selected at
// construction time by calling [Bounded] or [Unbounded].
//
// # Quick Start
//
//	q := cqueue.Bounded[Event](1024)
//	q := cqueue.Unbounded[Event]()
//
// # Basic Usage
//
// Push and Pop never block. Push returns an error carrying the rejected
// value back to the caller when it cannot proceed; Pop returns a sentinel
// error when there is nothing to return:
//
//	if err := q.Push(value); err != nil {
//	    var pushErr *cqueue.PushError[Event]
//	    if errors.As(err, &pushErr) {
//	        // pushErr.Value is the item that was rejected.
//	    }
//	}
//
//	item, err := q.Pop()
//	switch {
//	case err == nil:
//	    process(item)
//	case errors.Is(err, cqueue.PopEmpty):
//	    // nothing to do right now
//	case errors.Is(err, cqueue.PopClosed):
//	    // queue is drained and will never yield another item
//	}
//
// # Closing
//
// Close permanently disables further pushes while letting the remaining
// items drain normally:
//
//	producers.Wait()   // all producers have stopped pushing
//	q.Close()           // no further Push call will succeed
//
//	for {
//	    item, err := q.Pop()
//	    if errors.Is(err, cqueue.PopClosed) {
//	        break // fully drained
//	    }
//	    if err == nil {
//	        process(item)
//	    }
//	}
//
// # Capacity and Length
//
// Cap reports the bounded capacity, or (0, false) for an unbounded queue.
// Len returns a best-effort consistent snapshot of the item count — under
// concurrent access it is a snapshot, not a linearization point, but it is
// always within [0, capacity] for a bounded queue.
//
// # Thread Safety
//
// Every method on [ConcurrentQueue] is safe to call from any number of
// goroutines concurrently — any goroutine may push, any goroutine may
// pop, at the same time. No internal goroutines are spawned and no
// operation blocks: contention is resolved by compare-and-swap retries
// internal to the engine, never surfaced to the caller.
//
// # Error Handling
//
// PopError and PushError are both control-flow signals describing why an
// operation could not proceed immediately, not failures to be logged or
// retried with backoff internally — that policy belongs to the caller.
// A caller polling a queue in a loop should back off between attempts the
// same way this package's own CAS-retry loops do internally, via
// [code.hybscloud.com/spin] or [code.hybscloud.com/iox]'s Backoff.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions in CAS-retry loops, and [code.hybscloud.com/iox]'s Backoff
// for the unbounded engine's bounded wait on an in-flight producer write.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives but
// cannot observe happens-before relationships established purely through
// acquire/release atomics on separate variables. Concurrent correctness
// tests that rely on such orderings skip themselves under the race
// detector by checking [RaceEnabled], whose value is chosen by the
// //go:build race and //go:build !race files.
package cqueue
