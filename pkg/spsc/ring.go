// SPDX-License-Identifier: MIT
/*
Package spsc implements a bounded lock-free single-producer
single-consumer queue for crossing the control/audio thread boundary.

Thread Safety:
- Exactly one goroutine may hold the Producer, one the Consumer
- TrySend and TryRecv never block, never allocate
- Capacity is fixed at creation and rounded up to a power of 2

Memory ordering invariant (the safety-critical part):

The only shared mutable state is the pair of free-running counters.
`write` is stored only by the producer, `read` only by the consumer;
both sides load both. A slot is filled strictly before the producer
publishes the incremented `write`, and a slot is emptied strictly
before the consumer publishes the incremented `read`. sync/atomic
loads and stores are sequentially consistent, which is stronger than
the acquire/release pairing this protocol needs: a consumer that
observes the new `write` is guaranteed to see the fully-written slot,
and a producer that observes the new `read` is guaranteed the slot is
free to reuse. The counters are never masked; the mask is applied only
when indexing the slot array, so fullness (write-read == capacity) and
emptiness (write == read) survive counter wraparound.
*/
package spsc

import (
	"errors"
	"sync/atomic"

	"capstan/pkg/bitint"
)

// ErrFull is returned by TrySend when the queue has no free slot.
// The caller keeps the value and decides whether to retry or drop.
var ErrFull = errors.New("spsc: queue full")

// ring is the shared state behind one Producer/Consumer pair.
type ring[T any] struct {
	slots []T
	mask  uint64

	// write counts values ever sent. Stored by the producer only.
	write atomic.Uint64
	// read counts values ever received. Stored by the consumer only.
	read atomic.Uint64
}

// Producer is the sending half of the queue. Only one goroutine may
// use it; the distinct type keeps the single-producer discipline
// visible in signatures.
type Producer[T any] struct {
	r *ring[T]
}

// Consumer is the receiving half of the queue. Only one goroutine may
// use it.
type Consumer[T any] struct {
	r *ring[T]
}

// New creates a queue and returns its two halves. capacity is rounded
// up to a power of 2; the minimum usable capacity is 1. All slots are
// allocated here; TrySend and TryRecv never allocate.
func New[T any](capacity int) (*Producer[T], *Consumer[T]) {
	capacity = bitint.NextPowerOfTwo(capacity)
	r := &ring[T]{
		slots: make([]T, capacity),
		mask:  uint64(capacity - 1),
	}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

// TrySend enqueues v, or returns ErrFull without blocking.
func (p *Producer[T]) TrySend(v T) error {
	r := p.r
	write := r.write.Load()
	read := r.read.Load()

	// Full when every slot holds an unconsumed value. Unsigned
	// subtraction stays correct across counter wrap.
	if write-read > r.mask {
		return ErrFull
	}

	// The slot write must be ordered before the counter store; the
	// atomic store below provides that ordering.
	r.slots[write&r.mask] = v
	r.write.Store(write + 1)
	return nil
}

// TryRecv dequeues the oldest value. ok is false when the queue is
// empty. The consumed slot is zeroed so values holding pointers (plan
// references in particular) do not pin memory from inside the ring.
func (c *Consumer[T]) TryRecv() (v T, ok bool) {
	r := c.r
	read := r.read.Load()
	write := r.write.Load()

	if read == write {
		return v, false
	}

	i := read & r.mask
	v = r.slots[i]
	var zero T
	r.slots[i] = zero
	r.read.Store(read + 1)
	return v, true
}

// Len reports how many values are currently queued. Racy by nature;
// useful for diagnostics only.
func (c *Consumer[T]) Len() int {
	return int(c.r.write.Load() - c.r.read.Load())
}

// Cap reports the fixed slot count.
func (c *Consumer[T]) Cap() int {
	return len(c.r.slots)
}

// Full reports whether TrySend would currently fail.
func (p *Producer[T]) Full() bool {
	return p.r.write.Load()-p.r.read.Load() > p.r.mask
}
