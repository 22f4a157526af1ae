// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// closedBit is the mark bit folded into a packed counter word. For the
// bounded engine it lives in the low bit of tail; for the unbounded engine
// it lives in the low bit of head. Counter arithmetic always operates on
// the word shifted right by one, so incrementing the logical counter never
// disturbs the mark.
const closedBit uint64 = 1

// boundedSlot is one ring-buffer cell: a stamp that encodes ownership plus
// a storage cell for a single value.
//
// At rest, slot i carries stamp i. A producer may write into the slot once
// it observes stamp == tail; a consumer may read from it once it observes
// stamp == head+1. The stamp transitions form the only synchronization
// between a push and the pop that consumes it.
type boundedSlot[T any] struct {
	stamp atomix.Uint64
	value T
	_     padShort
}

// bounded is a fixed-capacity MPMC ring buffer (Vyukov's stamped-slot
// design, as implemented by crossbeam-queue's ArrayQueue). head and tail
// are kept on separate cache lines to avoid false sharing between
// producers and consumers.
type bounded[T any] struct {
	_      pad
	tail   atomix.Uint64 // packed: counter<<1 | closedBit
	_      pad
	head   atomix.Uint64 // plain counter, no mark bit
	_      pad
	buffer []boundedSlot[T]
	// capacity is the usable slot count; oneLap is the smallest power of
	// two >= max(capacity, 2) and is the stride between successive laps.
	// A stride of 1 would give a full slot the same stamp as that slot
	// empty on the next lap, so a capacity-1 ring could never report Full.
	capacity uint64
	oneLap   uint64
}

// newBounded allocates a ring of cap slots. Panics if cap < 1.
func newBounded[T any](cap int) *bounded[T] {
	if cap < 1 {
		panic("cqueue: bounded capacity must be >= 1")
	}

	n := uint64(cap)
	b := &bounded[T]{
		buffer:   make([]boundedSlot[T], n),
		capacity: n,
		oneLap:   max(roundToPow2(n), 2),
	}
	for i := range b.buffer {
		b.buffer[i].stamp.StoreRelaxed(uint64(i))
	}
	return b
}

// push attempts to claim the next tail slot. Returns nil on success, or a
// *PushError[T] carrying value back to the caller on Full or Closed.
func (b *bounded[T]) push(value T) error {
	sw := spin.Wait{}
	for {
		tailRaw := b.tail.LoadAcquire()
		if tailRaw&closedBit != 0 {
			return pushClosed(value)
		}
		tail := tailRaw >> 1
		index := tail & (b.oneLap - 1)
		lap := tail &^ (b.oneLap - 1)

		slot := &b.buffer[index]
		stamp := slot.stamp.LoadAcquire()

		switch {
		case stamp == tail:
			newTail := tail + 1
			if index+1 == b.capacity {
				newTail = lap + b.oneLap
			}
			if b.tail.CompareAndSwapAcqRel(tailRaw, newTail<<1) {
				slot.value = value
				slot.stamp.StoreRelease(tail + 1)
				return nil
			}
			sw.Once()

		case stamp+b.oneLap == tail+1:
			// The slot still holds an unread item from the previous lap:
			// the ring is full. Re-check closed since a concurrent Close
			// may have landed between our two tail loads.
			if b.tail.LoadAcquire()&closedBit != 0 {
				return pushClosed(value)
			}
			return pushFull(value)

		default:
			// Lost the race to another producer; reload and retry.
			sw.Once()
		}
	}
}

// pop attempts to claim the next head slot. Returns the value and a nil
// error on success, or the zero value and a PopError.
func (b *bounded[T]) pop() (T, error) {
	sw := spin.Wait{}
	for {
		head := b.head.LoadAcquire()
		index := head & (b.oneLap - 1)
		lap := head &^ (b.oneLap - 1)

		slot := &b.buffer[index]
		stamp := slot.stamp.LoadAcquire()

		switch {
		case stamp == head+1:
			newHead := head + 1
			if index+1 == b.capacity {
				newHead = lap + b.oneLap
			}
			if b.head.CompareAndSwapAcqRel(head, newHead) {
				value := slot.value
				var zero T
				slot.value = zero
				slot.stamp.StoreRelease(head + b.oneLap)
				return value, nil
			}
			sw.Once()

		case stamp == head:
			// Slot is empty at the current lap: queue looks empty unless a
			// producer is mid-publish elsewhere in the ring.
			tailRaw := b.tail.LoadAcquire()
			if tailRaw>>1 == head {
				var zero T
				if tailRaw&closedBit != 0 {
					return zero, PopClosed
				}
				return zero, PopEmpty
			}
			sw.Once()

		default:
			sw.Once()
		}
	}
}

// len returns a best-effort consistent snapshot of the item count. Never
// reports a value outside [0, capacity].
func (b *bounded[T]) len() int {
	for {
		tailRaw := b.tail.LoadAcquire()
		head := b.head.LoadAcquire()
		if b.tail.LoadAcquire() != tailRaw {
			continue
		}

		tail := tailRaw >> 1
		hix := head & (b.oneLap - 1)
		tix := tail & (b.oneLap - 1)
		switch {
		case hix < tix:
			return int(tix - hix)
		case hix > tix:
			return int(b.capacity - hix + tix)
		case tail == head:
			return 0
		default:
			return int(b.capacity)
		}
	}
}

func (b *bounded[T]) isEmpty() bool { return b.len() == 0 }
func (b *bounded[T]) isFull() bool  { return b.len() == int(b.capacity) }

// close sets the closed bit on tail via a CAS loop (there is no
// fetch-or primitive in atomix). Returns true iff this call transitioned
// the bit from clear to set.
func (b *bounded[T]) close() bool {
	sw := spin.Wait{}
	for {
		tailRaw := b.tail.LoadAcquire()
		if tailRaw&closedBit != 0 {
			return false
		}
		if b.tail.CompareAndSwapAcqRel(tailRaw, tailRaw|closedBit) {
			return true
		}
		sw.Once()
	}
}

func (b *bounded[T]) isClosed() bool {
	return b.tail.LoadAcquire()&closedBit != 0
}

func (b *bounded[T]) cap() int { return int(b.capacity) }
