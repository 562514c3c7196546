package drive

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Original algorithm by Dmitry Vyukov
// https://www.1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue

type letter[T any] struct {
	seq atomic.Uint64 // controls visibility and slot ownership
	val T
}

// mailbox is a bounded multi-producer, single-consumer ring. Readers post
// their final report into it and the collector drains it.
type mailbox[T any] struct {
	_       cpu.CacheLinePad
	mask    uint64
	letters []letter[T]
	_       cpu.CacheLinePad
	tail    atomic.Uint64 // updated by producers
	_       cpu.CacheLinePad
	head    uint64 // updated by the single consumer
	_       cpu.CacheLinePad
}

// newMailbox creates a mailbox holding at least capacity letters,
// rounded up to a power of two.
func newMailbox[T any](capacity int) *mailbox[T] {
	n := uint64(1)
	for n < uint64(capacity) {
		n <<= 1
	}
	letters := make([]letter[T], n)
	for i := range letters {
		letters[i].seq.Store(uint64(i))
	}
	return &mailbox[T]{mask: n - 1, letters: letters}
}

// Post adds v. Returns false if the mailbox is full.
// Safe to call concurrently from many goroutines.
func (m *mailbox[T]) Post(v T) bool {
	for {
		pos := m.tail.Load()
		l := &m.letters[pos&m.mask]
		diff := int64(l.seq.Load()) - int64(pos)

		switch {
		case diff == 0:
			if m.tail.CompareAndSwap(pos, pos+1) {
				l.val = v
				l.seq.Store(pos + 1)
				return true
			}
			// another producer took this position, retry
		case diff < 0:
			return false
		}
		// diff > 0: the slot is from a previous lap, reload pos
	}
}

// Take removes the oldest letter. Returns (zero, false) if nothing is ready.
// Must be called from a single goroutine.
func (m *mailbox[T]) Take() (T, bool) {
	var zero T
	pos := m.head
	l := &m.letters[pos&m.mask]
	if int64(l.seq.Load())-int64(pos+1) != 0 {
		// empty, or a producer is still writing
		return zero, false
	}
	m.head = pos + 1
	v := l.val
	l.val = zero
	l.seq.Store(pos + uint64(len(m.letters)))
	return v, true
}

// Capacity returns the fixed mailbox size.
func (m *mailbox[T]) Capacity() int {
	return len(m.letters)
}
