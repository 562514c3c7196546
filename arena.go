package rwstore

import "sync/atomic"

const (
	chunkShift = 6
	chunkSize  = 1 << chunkShift
	chunkMask  = chunkSize - 1

	// indexes are packed into the upper bits of the current word.
	maxSlots = 1 << 31
)

// cell holds one published value.
type cell[T any] struct {
	val T
}

type chunk[T any] [chunkSize]cell[T]

// arena hands out value slots addressed by index. Chunks never move once
// allocated, so a reader holding an index always resolves the same cell.
// alloc and release must be called from the writer only; at may be called
// from any goroutine for an index the writer has published.
type arena[T any] struct {
	dir  atomic.Pointer[[]*chunk[T]] // copy-on-grow chunk directory
	next uint32                      // first never-used index
	free Deque[uint32]               // released indexes, reused LIFO
}

func newArena[T any]() *arena[T] {
	a := &arena[T]{}
	dir := []*chunk[T]{new(chunk[T])}
	a.dir.Store(&dir)
	return a
}

// at resolves idx to its cell.
func (a *arena[T]) at(idx uint32) *cell[T] {
	dir := *a.dir.Load()
	return &dir[idx>>chunkShift][idx&chunkMask]
}

// alloc returns an unused slot index holding v, preferring released ones.
func (a *arena[T]) alloc(v T) uint32 {
	if idx, ok := a.free.PopBack(); ok {
		a.at(idx).val = v
		return idx
	}
	if a.next == maxSlots {
		panic("rwstore: slot arena exhausted")
	}
	idx := a.next
	dir := *a.dir.Load()
	if int(idx>>chunkShift) == len(dir) {
		grown := make([]*chunk[T], len(dir)+1)
		copy(grown, dir)
		grown[len(dir)] = new(chunk[T])
		a.dir.Store(&grown)
	}
	a.next++
	a.at(idx).val = v
	return idx
}

// release zeroes the slot so the GC can collect whatever it referenced and
// makes idx available to alloc again.
func (a *arena[T]) release(idx uint32) {
	var zero T
	a.at(idx).val = zero
	a.free.PushBack(idx)
}

// size returns the number of slots carved out so far.
func (a *arena[T]) size() int {
	return int(a.next)
}

// reset drops every chunk.
func (a *arena[T]) reset() {
	dir := []*chunk[T]{}
	a.dir.Store(&dir)
	a.next = 0
	a.free.Clear()
}
