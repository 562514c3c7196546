package rwstore

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// idle marks an announcement whose handle holds no reference.
const idle = ^uint64(0)

// announcement records the write generation a handle last read under.
// Records are never unlinked; a released record is claimed again by the next
// Handle call.
type announcement struct {
	gen   atomic.Uint64
	inUse atomic.Bool
	next  *announcement // immutable once linked
	_     cpu.CacheLinePad
}

// registry is a lock-free, append-only list of announcements.
type registry struct {
	head atomic.Pointer[announcement]
}

// acquire claims an idle record or links a new one.
func (r *registry) acquire() *announcement {
	for a := r.head.Load(); a != nil; a = a.next {
		if !a.inUse.Load() && a.inUse.CompareAndSwap(false, true) {
			return a
		}
	}
	a := &announcement{}
	a.gen.Store(idle)
	a.inUse.Store(true)
	for {
		head := r.head.Load()
		a.next = head
		if r.head.CompareAndSwap(head, a) {
			return a
		}
	}
}

// release marks the record idle and hands it back to the pool.
func (r *registry) release(a *announcement) {
	a.gen.Store(idle)
	a.inUse.Store(false)
}

// oldest returns the smallest generation announced by any live handle,
// or idle if no handle holds a reference.
func (r *registry) oldest() uint64 {
	oldest := idle
	for a := r.head.Load(); a != nil; a = a.next {
		if g := a.gen.Load(); g < oldest {
			oldest = g
		}
	}
	return oldest
}
