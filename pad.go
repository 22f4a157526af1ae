// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue

// pad is cache line padding used to prevent false sharing between hot
// atomic counters that are written by different goroutines.
type pad [64]byte

// padShort pads out a slot whose payload starts with a single 8-byte
// atomic word, so the remainder of the slot's cache line is not shared
// with its neighbor.
type padShort [64 - 8]byte

// roundToPow2 rounds n up to the next power of two. Used only by the
// bounded engine for its lap stride; the unbounded engine imposes no
// such constraint on its block size beyond being a compile-time constant.
func roundToPow2(n uint64) uint64 {
	if n < 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
