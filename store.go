package rwstore

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

var (
	ErrClosed             = fmt.Errorf("rwstore: store is closed")
	ErrHandlesOutstanding = fmt.Errorf("rwstore: reader handles still outstanding")
)

// observedBit is set in the current word once any reader has read the slot.
const observedBit = 1

// retired is a superseded slot waiting in the reclamation queue.
type retired struct {
	idx      uint32
	observed bool
	gen      uint64 // write generation that superseded the slot
}

// Store is a wait-free single-writer, multi-reader versioned value.
//
// Readers obtain a Handle, call Read as often as they like and Release the
// handle when done. The writer publishes with Write. Superseded values are
// parked in a ring-buffer queue and recycled in place once no reader can
// still reference them.
type Store[T any] struct {
	_       cpu.CacheLinePad
	cur     atomic.Uint64 // (slot index + 1) << 1 | observedBit, 0 when closed
	_       cpu.CacheLinePad
	readers atomic.Int64 // live handles
	_       cpu.CacheLinePad
	gen     atomic.Uint64 // published write generation
	_       cpu.CacheLinePad

	writing atomic.Bool
	closed  atomic.Bool

	// writer-owned state
	seq       uint64
	queue     Deque[retired]
	arena     *arena[T]
	announced registry

	writes        atomic.Uint64
	allocs        atomic.Uint64
	recycled      atomic.Uint64
	released      atomic.Uint64
	fastPath      atomic.Uint64
	slowPath      atomic.Uint64
	deferred      atomic.Uint64
	queued        atomic.Uint64
	arenaSize     atomic.Uint64
	handlesIssued atomic.Uint64
}

// Stats is a point-in-time view of the store counters.
type Stats struct {
	Writes   uint64 // completed Write calls
	Allocs   uint64 // writes that took a slot from the arena
	Recycled uint64 // writes that overwrote the oldest retired slot in place
	Released uint64 // retired slots handed back to the arena by trimming
	FastPath uint64 // superseded slots nobody read, queued at the front
	SlowPath uint64 // superseded slots that were read, queued at the back
	Deferred uint64 // reclaims postponed because a handle still announced an older generation

	Queued        uint64 // current retirement queue length
	ArenaSize     uint64 // slots carved out of the arena so far
	Readers       uint64 // live handles
	HandlesIssued uint64
}

// New creates a store publishing initial.
func New[T any](initial T) *Store[T] {
	s := &Store[T]{arena: newArena[T]()}
	idx := s.arena.alloc(initial)
	s.cur.Store(pack(idx))
	s.arenaSize.Store(uint64(s.arena.size()))
	return s
}

// Stats retrieves the current statistics of the store.
func (s *Store[T]) Stats() Stats {
	return Stats{
		Writes:        s.writes.Load(),
		Allocs:        s.allocs.Load(),
		Recycled:      s.recycled.Load(),
		Released:      s.released.Load(),
		FastPath:      s.fastPath.Load(),
		SlowPath:      s.slowPath.Load(),
		Deferred:      s.deferred.Load(),
		Queued:        s.queued.Load(),
		ArenaSize:     s.arenaSize.Load(),
		Readers:       uint64(s.readers.Load()),
		HandlesIssued: s.handlesIssued.Load(),
	}
}

// Readers returns the number of live handles.
func (s *Store[T]) Readers() int {
	return int(s.readers.Load())
}

// Handle returns a new reader handle. The handle must be used from one
// goroutine at a time and released with Release.
// Panics with ErrClosed if the store is closed or a Shutdown is waiting.
func (s *Store[T]) Handle() *Handle[T] {
	// count first: Shutdown sets closed and then waits for the count,
	// so either it waits for us or we see closed.
	s.readers.Add(1)
	if s.closed.Load() {
		s.readers.Add(-1)
		panic(ErrClosed)
	}
	s.handlesIssued.Add(1)
	return &Handle[T]{s: s, ann: s.announced.acquire()}
}

// Write publishes v. Write must only be called from a single goroutine;
// overlapping calls are detected on a best-effort basis and panic.
func (s *Store[T]) Write(v T) {
	if !s.writing.CompareAndSwap(false, true) {
		panic("rwstore: concurrent Write")
	}
	if s.closed.Load() {
		s.writing.Store(false)
		panic(ErrClosed)
	}

	var h horizon
	idx := s.slotFor(v, &h)

	old := s.cur.Swap(pack(idx))
	s.seq++
	s.gen.Store(s.seq)

	r := retired{idx: unpack(old), gen: s.seq}
	if old&observedBit == 0 {
		// nobody read it while it was current: first in line for reuse
		s.queue.PushFront(r)
		s.fastPath.Add(1)
	} else {
		// may still be referenced: age it through the queue
		r.observed = true
		s.queue.PushBack(r)
		s.slowPath.Add(1)
	}

	// announcements made before the swap may cover the slot just retired
	h = horizon{}
	s.trim(&h)

	s.queued.Store(uint64(s.queue.Len()))
	s.arenaSize.Store(uint64(s.arena.size()))
	s.writes.Add(1)
	s.writing.Store(false)
}

// slotFor returns a slot holding v, recycling the oldest retired slot when
// the queue holds more entries than there are live readers.
func (s *Store[T]) slotFor(v T, h *horizon) uint32 {
	if s.queue.Len() > int(s.readers.Load()) {
		front, _ := s.queue.Front()
		if s.reclaimable(front, h) {
			s.queue.PopFront()
			s.arena.at(front.idx).val = v
			s.recycled.Add(1)
			return front.idx
		}
		s.deferred.Add(1)
	}
	idx := s.arena.alloc(v)
	s.allocs.Add(1)
	return idx
}

// trim releases retired slots beyond readers+2 back to the arena.
func (s *Store[T]) trim(h *horizon) {
	for s.queue.Len() > int(s.readers.Load())+2 {
		front, _ := s.queue.Front()
		if !s.reclaimable(front, h) {
			s.deferred.Add(1)
			return
		}
		s.queue.PopFront()
		s.arena.release(front.idx)
		s.released.Add(1)
	}
}

// horizon caches the oldest announced generation for one reclamation pass.
type horizon struct {
	oldest  uint64
	scanned bool
}

// reclaimable reports whether no reader can still reference r.
// A slot nobody read is always safe. A read slot is safe once every live
// handle has announced a generation at or after the one that retired it.
func (s *Store[T]) reclaimable(r retired, h *horizon) bool {
	if !r.observed {
		return true
	}
	if !h.scanned {
		h.oldest = s.announced.oldest()
		h.scanned = true
	}
	return h.oldest >= r.gen
}

// Close waits for every handle to be released and drops all values.
// It spins until the handles are gone.
func (s *Store[T]) Close() {
	if err := s.Shutdown(context.Background()); err != nil {
		panic(err)
	}
}

// Shutdown is Close bounded by ctx. If ctx is done before the last handle is
// released the store is reopened and the error wraps ErrHandlesOutstanding.
//
// The store counts as closed for the whole wait: Handle and Write panic with
// ErrClosed until Shutdown returns, even if it then times out. Stop
// acquiring handles and writing before calling it; Read on handles that are
// already held keeps working.
func (s *Store[T]) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	var spins uint32
	for s.readers.Load() > 0 {
		spins++
		if spins%goschedEvery == 0 {
			if err := ctx.Err(); err != nil {
				s.closed.Store(false)
				return fmt.Errorf("%w: %w", ErrHandlesOutstanding, err)
			}
			runtime.Gosched()
		}
	}

	// no handle is left, so the current slot and every retired slot go at once
	s.cur.Store(0)
	s.queue.Clear()
	s.arena.reset()
	s.queued.Store(0)
	s.arenaSize.Store(0)
	return nil
}

// Handle is a reader's scoped token on a Store.
type Handle[T any] struct {
	s        *Store[T]
	ann      *announcement
	released bool
}

// Read returns the most recently published value. The pointer stays valid
// until the next Read or Release on this handle and must not be written
// through.
func (h *Handle[T]) Read() *T {
	if h.released {
		panic("rwstore: read on released handle")
	}
	s := h.s
	h.ann.gen.Store(s.gen.Load())
	w := s.cur.Or(observedBit)
	if w>>1 == 0 {
		panic(ErrClosed)
	}
	return &s.arena.at(unpack(w)).val
}

// Load returns a copy of the most recently published value.
func (h *Handle[T]) Load() T {
	return *h.Read()
}

// Release ends the handle. The last value returned by Read must no longer
// be used. Panics if called twice.
func (h *Handle[T]) Release() {
	if h.released {
		panic("rwstore: handle released twice")
	}
	h.released = true
	h.s.announced.release(h.ann)
	h.s.readers.Add(-1)
}

func pack(idx uint32) uint64 {
	return uint64(idx+1) << 1
}

func unpack(w uint64) uint32 {
	return uint32(w>>1) - 1
}
