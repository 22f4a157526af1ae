// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// unboundedBlockCap is the number of slots per block in the unbounded
// engine's segmented linked list. A power of two, chosen the same way the
// bounded engines in this corpus size their ring buffers: large enough to
// amortize block allocation, small enough to bound the memory a single
// stalled consumer can pin.
const unboundedBlockCap = 32

// Slot lifecycle states for the unbounded engine. A slot starts empty,
// moves to writing while a producer copies its value in, becomes ready
// once published, moves to reading while a consumer copies the value out,
// and finally destroy once drained.
const (
	slotEmpty uint64 = iota
	slotWriting
	slotReady
	slotReading
	slotDestroy
)

type unboundedSlot[T any] struct {
	state atomix.Uint64
	value T
}

// unboundedBlock is a fixed-capacity segment of the unbounded queue's
// linked list. start is the global slot index of slots[0]; it is set once
// at allocation and never mutated, so offset = globalIndex - start never
// needs a modulo or an extra atomic load to compute.
type unboundedBlock[T any] struct {
	start        uint64
	slots        [unboundedBlockCap]unboundedSlot[T]
	next         atomic.Pointer[unboundedBlock[T]]
	destroyCount atomix.Uint64
}

// unbounded is a growable MPMC FIFO built from a singly-linked chain of
// fixed-size blocks. Only producers extend the chain; only consumers trim
// it. The closed flag is folded into the low bit of headIndex, exactly as
// the bounded engine folds its own closed flag into tail.
type unbounded[T any] struct {
	_         pad
	tailBlock atomic.Pointer[unboundedBlock[T]]
	tailIndex atomix.Uint64 // monotonic, unmarked
	_         pad
	headBlock atomic.Pointer[unboundedBlock[T]]
	headIndex atomix.Uint64 // packed: counter<<1 | closedBit
	_         pad
}

func newUnbounded[T any]() *unbounded[T] {
	first := &unboundedBlock[T]{start: 0}
	u := &unbounded[T]{}
	u.tailBlock.Store(first)
	u.headBlock.Store(first)
	return u
}

// push claims the next tail slot, growing the block chain when the
// current block is exhausted. Never returns a Full error: the unbounded
// engine only rejects on Closed.
func (u *unbounded[T]) push(value T) error {
	sw := spin.Wait{}
	for {
		if u.headIndex.LoadAcquire()&closedBit != 0 {
			return pushClosed(value)
		}

		block := u.tailBlock.Load()
		tail := u.tailIndex.LoadAcquire()
		offset := tail - block.start

		if offset >= unboundedBlockCap {
			// This block is exhausted (or our cached block pointer is
			// stale). Install the successor if it isn't there yet, then
			// swing tailBlock onto it. Only one producer's CAS wins each
			// step; the rest just retry.
			next := block.next.Load()
			if next == nil {
				candidate := &unboundedBlock[T]{start: block.start + unboundedBlockCap}
				if block.next.CompareAndSwap(nil, candidate) {
					next = candidate
				} else {
					next = block.next.Load()
				}
			}
			// Re-check closed before publishing the new block's
			// visibility, so a Close racing with growth cannot leave a
			// dangling block nobody will ever drain.
			if u.headIndex.LoadAcquire()&closedBit != 0 {
				return pushClosed(value)
			}
			u.tailBlock.CompareAndSwap(block, next)
			sw.Once()
			continue
		}

		if u.tailIndex.CompareAndSwapAcqRel(tail, tail+1) {
			slot := &block.slots[offset]
			slot.state.StoreRelease(slotWriting)
			slot.value = value
			slot.state.StoreRelease(slotReady)
			return nil
		}
		sw.Once()
	}
}

// pop claims the next head slot, waiting for its producer to finish
// publishing if the claim landed ahead of the write, and moves headBlock on
// to the successor block once every slot of the current one has been
// claimed by a consumer.
func (u *unbounded[T]) pop() (T, error) {
	sw := spin.Wait{}
	for {
		headRaw := u.headIndex.LoadAcquire()
		closed := headRaw&closedBit != 0
		head := headRaw >> 1
		tail := u.tailIndex.LoadAcquire()

		if head == tail {
			var zero T
			if closed {
				return zero, PopClosed
			}
			return zero, PopEmpty
		}

		block := u.headBlock.Load()
		if head < block.start {
			// headBlock already moved past this head snapshot; reload.
			sw.Once()
			continue
		}
		offset := head - block.start

		if offset >= unboundedBlockCap {
			next := block.next.Load()
			backoff := iox.Backoff{}
			for next == nil {
				// Producers link the successor block before claiming any
				// of its slots, so it is normally already visible here;
				// wait until the link is observed.
				backoff.Wait()
				next = block.next.Load()
			}
			u.headBlock.CompareAndSwap(block, next)
			sw.Once()
			continue
		}

		newHead := (head + 1) << 1
		if u.headIndex.CompareAndSwapAcqRel(headRaw, newHead|(headRaw&closedBit)) {
			slot := &block.slots[offset]
			backoff := iox.Backoff{}
			for slot.state.LoadAcquire() != slotReady {
				// The producer that claimed this slot has not finished
				// its write yet; this is bounded by the time of one
				// store, so a short yielding backoff suffices.
				backoff.Wait()
			}
			slot.state.StoreRelease(slotReading)
			value := slot.value
			var zero T
			slot.value = zero
			slot.state.StoreRelease(slotDestroy)
			block.destroyCount.AddAcqRel(1)
			return value, nil
		}
		sw.Once()
	}
}

// isEmpty reports whether head and tail reference the same logical
// position, masking out the closed bit.
func (u *unbounded[T]) isEmpty() bool {
	return u.len() == 0
}

// isFull is always false: the unbounded engine never rejects a push for
// being full.
func (u *unbounded[T]) isFull() bool { return false }

// len returns a best-effort consistent snapshot of the item count.
func (u *unbounded[T]) len() int {
	for {
		tail := u.tailIndex.LoadAcquire()
		headRaw := u.headIndex.LoadAcquire()
		if u.tailIndex.LoadAcquire() != tail {
			continue
		}
		head := headRaw >> 1
		if tail <= head {
			return 0
		}
		return int(tail - head)
	}
}

// close sets the closed bit on headIndex via a CAS loop. Returns true iff
// this call transitioned the bit from clear to set.
func (u *unbounded[T]) close() bool {
	sw := spin.Wait{}
	for {
		headRaw := u.headIndex.LoadAcquire()
		if headRaw&closedBit != 0 {
			return false
		}
		if u.headIndex.CompareAndSwapAcqRel(headRaw, headRaw|closedBit) {
			return true
		}
		sw.Once()
	}
}

func (u *unbounded[T]) isClosed() bool {
	return u.headIndex.LoadAcquire()&closedBit != 0
}
