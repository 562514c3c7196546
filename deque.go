package rwstore

const defaultDequeCapacity = 16

// Deque is a growable, array-backed double-ended queue.
// It is not safe for concurrent use: the store only touches it from the writer.
type Deque[T any] struct {
	buf  []T
	head int // index of the front element
	n    int // number of elements, disambiguates empty from full
}

// NewDeque creates a deque with room for capacity elements before it grows.
func NewDeque[T any](capacity int) *Deque[T] {
	if capacity <= 0 {
		capacity = defaultDequeCapacity
	}
	return &Deque[T]{buf: make([]T, capacity)}
}

// Len returns the number of stored elements.
func (d *Deque[T]) Len() int {
	return d.n
}

// Cap returns the number of elements the deque holds before it grows.
func (d *Deque[T]) Cap() int {
	return len(d.buf)
}

// Empty reports whether the deque holds no elements.
func (d *Deque[T]) Empty() bool {
	return d.n == 0
}

// PushFront inserts v before the current front element.
func (d *Deque[T]) PushFront(v T) {
	d.growIfFull()
	d.head = d.dec(d.head)
	d.buf[d.head] = v
	d.n++
}

// PushBack inserts v after the current back element.
func (d *Deque[T]) PushBack(v T) {
	d.growIfFull()
	d.buf[d.wrap(d.head+d.n)] = v
	d.n++
}

// PopFront removes and returns the front element.
// Returns (zero, false) if the deque is empty.
func (d *Deque[T]) PopFront() (T, bool) {
	var zero T
	if d.n == 0 {
		return zero, false
	}
	v := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = d.wrap(d.head + 1)
	d.n--
	return v, true
}

// PopBack removes and returns the back element.
// Returns (zero, false) if the deque is empty.
func (d *Deque[T]) PopBack() (T, bool) {
	var zero T
	if d.n == 0 {
		return zero, false
	}
	idx := d.wrap(d.head + d.n - 1)
	v := d.buf[idx]
	d.buf[idx] = zero
	d.n--
	return v, true
}

// Front returns the front element without removing it.
func (d *Deque[T]) Front() (T, bool) {
	if d.n == 0 {
		var zero T
		return zero, false
	}
	return d.buf[d.head], true
}

// Back returns the back element without removing it.
func (d *Deque[T]) Back() (T, bool) {
	if d.n == 0 {
		var zero T
		return zero, false
	}
	return d.buf[d.wrap(d.head+d.n-1)], true
}

// At returns the i-th element counting from the front.
// Panics if i is out of range.
func (d *Deque[T]) At(i int) T {
	if i < 0 || i >= d.n {
		panic("rwstore: deque index out of range")
	}
	return d.buf[d.wrap(d.head+i)]
}

// Clear drops every element and resets the deque to its initial capacity.
func (d *Deque[T]) Clear() {
	d.buf = make([]T, defaultDequeCapacity)
	d.head = 0
	d.n = 0
}

// Reserve moves the elements into a fresh buffer of the given capacity,
// front element first at index 0.
// Panics if capacity does not exceed the current length.
func (d *Deque[T]) Reserve(capacity int) {
	if capacity <= d.n {
		panic("rwstore: reserve capacity must exceed deque length")
	}
	buf := make([]T, capacity)
	if d.n > 0 {
		// at most two contiguous runs: head..end and 0..tail
		first := copy(buf, d.buf[d.head:min(d.head+d.n, len(d.buf))])
		copy(buf[first:], d.buf[:d.n-first])
	}
	d.buf = buf
	d.head = 0
}

func (d *Deque[T]) growIfFull() {
	if d.buf == nil {
		d.buf = make([]T, defaultDequeCapacity)
		return
	}
	if d.n < len(d.buf) {
		return
	}
	c := len(d.buf) * 3 / 2
	if c <= len(d.buf) {
		c = len(d.buf) + 1
	}
	d.Reserve(c)
}

func (d *Deque[T]) wrap(i int) int {
	if i >= len(d.buf) {
		return i - len(d.buf)
	}
	return i
}

func (d *Deque[T]) dec(i int) int {
	if i == 0 {
		return len(d.buf) - 1
	}
	return i - 1
}
