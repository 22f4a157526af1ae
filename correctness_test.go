// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cqueue_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/cqueue"
	"code.hybscloud.com/iox"
)

// retryWithTimeout retries f until it returns true or timeout expires.
func retryWithTimeout(t *testing.T, timeout time.Duration, f func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for !f() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s", timeout, msg)
		}
		backoff.Wait()
	}
}

// mpmcMix runs numP producers pushing itemsPerProd disjoint values each,
// concurrently with numC consumers draining to exhaustion, and checks
// that the popped multiset equals the pushed multiset with no duplicates.
// Values are encoded as producerID*100000 + sequence so ordering per
// producer can be recovered afterward: each consumer must have popped any
// one producer's values in push order.
func mpmcMix(t *testing.T, q *cqueue.ConcurrentQueue[int], numP, numC, itemsPerProd int) {
	t.Helper()
	if cqueue.RaceEnabled {
		t.Skip("skip: linearizability test requires concurrent access beyond the race detector's model")
	}

	var wg sync.WaitGroup
	for p := 0; p < numP; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := 0; i < itemsPerProd; i++ {
				v := id*100000 + i
				for {
					err := q.Push(v)
					if err == nil {
						backoff.Reset()
						break
					}
					backoff.Wait()
				}
			}
		}(p)
	}

	expectedTotal := numP * itemsPerProd
	var mu sync.Mutex
	var popped []int
	var perConsumer [][]int
	done := make(chan struct{})
	deadline := time.Now().Add(30 * time.Second)

	var consumerWG sync.WaitGroup
	for c := 0; c < numC; c++ {
		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			var mine []int
			defer func() {
				mu.Lock()
				perConsumer = append(perConsumer, mine)
				mu.Unlock()
			}()
			backoff := iox.Backoff{}
			for {
				select {
				case <-done:
					return
				default:
				}
				if time.Now().After(deadline) {
					return
				}
				v, err := q.Pop()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				mine = append(mine, v)
				mu.Lock()
				popped = append(popped, v)
				n := len(popped)
				mu.Unlock()
				if n == expectedTotal {
					close(done)
					return
				}
			}
		}()
	}

	wg.Wait()
	consumerWG.Wait()

	mu.Lock()
	defer mu.Unlock()

	if len(popped) != expectedTotal {
		t.Fatalf("popped %d items, want %d", len(popped), expectedTotal)
	}

	seen := make(map[int]bool, expectedTotal)
	for _, v := range popped {
		if seen[v] {
			t.Fatalf("value %d popped more than once", v)
		}
		seen[v] = true
	}

	for _, mine := range perConsumer {
		byProducer := make(map[int][]int, numP)
		for _, v := range mine {
			id := v / 100000
			byProducer[id] = append(byProducer[id], v%100000)
		}
		for id, seq := range byProducer {
			if !sort.IntsAreSorted(seq) {
				t.Fatalf("producer %d: popped sequence %v is not in push order", id, seq)
			}
		}
	}
}

func TestBoundedMPMCMix(t *testing.T) {
	q := cqueue.Bounded[int](64)
	mpmcMix(t, q, 4, 4, 2500)
}

func TestUnboundedMPMCMix(t *testing.T) {
	q := cqueue.Unbounded[int]()
	mpmcMix(t, q, 4, 4, 2500)
}

// TestBoundedCloseStopsNewPushes exercises invariant 5: after Close
// returns, no subsequent Push on any goroutine returns nil.
func TestBoundedCloseStopsNewPushes(t *testing.T) {
	if cqueue.RaceEnabled {
		t.Skip("skip: requires concurrent access beyond the race detector's model")
	}

	q := cqueue.Bounded[int](8)
	var wg sync.WaitGroup
	var rejectedAfterClose atomix.Int64

	closed := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-closed:
					if err := q.Push(1); err != nil {
						rejectedAfterClose.Add(1)
					}
					return
				default:
					_ = q.Push(1)
					_, _ = q.Pop()
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	q.Close()
	close(closed)
	wg.Wait()

	if rejectedAfterClose.Load() != 4 {
		t.Fatalf("expected all 4 post-close pushes to be rejected, got %d accepted-as-rejected count", rejectedAfterClose.Load())
	}
}

// TestUnboundedDrainAfterClose exercises the unbounded engine's close
// semantics: items pushed before Close still drain, and Pop eventually
// reports PopClosed once empty.
func TestUnboundedDrainAfterClose(t *testing.T) {
	q := cqueue.Unbounded[int]()
	for i := 0; i < 50; i++ {
		_ = q.Push(i)
	}
	q.Close()

	for i := 0; i < 50; i++ {
		v, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop(%d) after close: %v", i, err)
		}
		if v != i {
			t.Fatalf("Pop(%d): got %d, want %d", i, v, i)
		}
	}

	retryWithTimeout(t, time.Second, func() bool {
		_, err := q.Pop()
		return err != nil
	}, "drained closed queue should keep returning an error")

	if _, err := q.Pop(); err != cqueue.PopClosed {
		t.Fatalf("final Pop(): got %v, want PopClosed", err)
	}
}

// TestBoundedLenNeverExceedsCapacity exercises invariant 4 under
// concurrent load.
func TestBoundedLenNeverExceedsCapacity(t *testing.T) {
	if cqueue.RaceEnabled {
		t.Skip("skip: requires concurrent access beyond the race detector's model")
	}

	const cap = 16
	q := cqueue.Bounded[int](cap)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	var violations atomix.Int64

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if l := q.Len(); l < 0 || l > cap {
					violations.Add(1)
				}
				_ = q.Push(1)
				_, _ = q.Pop()
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()

	if got := violations.Load(); got != 0 {
		t.Fatalf("observed %d Len() readings outside [0, capacity]", got)
	}
}
