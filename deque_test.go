package rwstore

import (
	"testing"

	"github.com/valyala/fastrand"
)

// FIFO: push at the back, pop at the front.
func TestDequePushBackPopFront(t *testing.T) {
	var d Deque[int]
	for i := 1; i <= 20; i++ {
		d.PushBack(i)
	}
	if d.Len() != 20 {
		t.Fatalf("expected len 20, got %d", d.Len())
	}
	for i := 1; i <= 20; i++ {
		v, ok := d.PopFront()
		if !ok {
			t.Fatalf("pop failed at %d (deque unexpectedly empty)", i)
		}
		if v != i {
			t.Fatalf("expected %d, got %d (FIFO violated)", i, v)
		}
	}
	if v, ok := d.PopFront(); ok {
		t.Fatalf("expected empty deque at the end, got value=%v", v)
	}
}

// LIFO: push at the front, pop at the front.
func TestDequePushFrontPopFront(t *testing.T) {
	var d Deque[int]
	for i := 1; i <= 20; i++ {
		d.PushFront(i)
	}
	for i := 20; i >= 1; i-- {
		v, ok := d.PopFront()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
	if !d.Empty() {
		t.Fatalf("expected empty deque, len=%d", d.Len())
	}
}

func TestDequePopBack(t *testing.T) {
	d := NewDeque[int](4)
	for i := 1; i <= 10; i++ {
		d.PushBack(i)
	}
	for i := 10; i >= 1; i-- {
		v, ok := d.PopBack()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (ok=%v)", i, v, ok)
		}
	}
	if _, ok := d.PopBack(); ok {
		t.Fatalf("expected pop on drained deque to fail")
	}
}

func TestDequeGrowthPreservesOrder(t *testing.T) {
	d := NewDeque[int](4)

	// wrap the ring before it has to grow
	d.PushBack(1)
	d.PushBack(2)
	if v, _ := d.PopFront(); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	d.PushBack(3)
	d.PushBack(4)
	d.PushBack(5)
	if d.Cap() != 4 {
		t.Fatalf("expected cap 4 before growth, got %d", d.Cap())
	}

	d.PushFront(0)
	if d.Cap() != 6 {
		t.Fatalf("expected cap 6 after growth, got %d", d.Cap())
	}

	want := []int{0, 2, 3, 4, 5}
	if d.Len() != len(want) {
		t.Fatalf("expected len %d, got %d", len(want), d.Len())
	}
	for i, w := range want {
		if got := d.At(i); got != w {
			t.Fatalf("At(%d): expected %d, got %d", i, w, got)
		}
	}
}

func TestDequeGrowthFactor(t *testing.T) {
	d := NewDeque[int](4)
	for i := 0; i < 10; i++ {
		d.PushBack(i)
	}
	// 4 -> 6 -> 9 -> 13
	if d.Cap() != 13 {
		t.Fatalf("expected cap 13, got %d", d.Cap())
	}
	for i := 0; i < 10; i++ {
		if v, _ := d.PopFront(); v != i {
			t.Fatalf("expected %d, got %d", i, v)
		}
	}
}

// Random interleavings must match a plain slice used as a deque.
func TestDequeMatchesReference(t *testing.T) {
	const N = 50_000

	d := NewDeque[int](2)
	var ref []int

	for i := 0; i < N; i++ {
		switch fastrand.Uint32n(4) {
		case 0:
			d.PushFront(i)
			ref = append([]int{i}, ref...)
		case 1:
			d.PushBack(i)
			ref = append(ref, i)
		case 2:
			v, ok := d.PopFront()
			if ok != (len(ref) > 0) {
				t.Fatalf("step %d: PopFront ok=%v with reference len %d", i, ok, len(ref))
			}
			if ok {
				if v != ref[0] {
					t.Fatalf("step %d: PopFront expected %d, got %d", i, ref[0], v)
				}
				ref = ref[1:]
			}
		case 3:
			v, ok := d.PopBack()
			if ok != (len(ref) > 0) {
				t.Fatalf("step %d: PopBack ok=%v with reference len %d", i, ok, len(ref))
			}
			if ok {
				if v != ref[len(ref)-1] {
					t.Fatalf("step %d: PopBack expected %d, got %d", i, ref[len(ref)-1], v)
				}
				ref = ref[:len(ref)-1]
			}
		}
		if d.Len() != len(ref) {
			t.Fatalf("step %d: expected len %d, got %d", i, len(ref), d.Len())
		}
	}

	for i, w := range ref {
		if got := d.At(i); got != w {
			t.Fatalf("At(%d): expected %d, got %d", i, w, got)
		}
	}
}

func TestDequeEmpty(t *testing.T) {
	check := func(stage string, d *Deque[string]) {
		t.Helper()
		if !d.Empty() || d.Len() != 0 {
			t.Fatalf("%s: expected empty deque, len=%d", stage, d.Len())
		}
		if v, ok := d.Front(); ok || v != "" {
			t.Fatalf("%s: Front returned %q, %v", stage, v, ok)
		}
		if v, ok := d.Back(); ok || v != "" {
			t.Fatalf("%s: Back returned %q, %v", stage, v, ok)
		}
		if _, ok := d.PopFront(); ok {
			t.Fatalf("%s: PopFront succeeded", stage)
		}
		if _, ok := d.PopBack(); ok {
			t.Fatalf("%s: PopBack succeeded", stage)
		}
	}

	var d Deque[string]
	check("zero value", &d)

	d.PushFront("a")
	d.PopFront()
	d.PushFront("b")
	d.PopBack()
	check("drained", &d)

	for i := 0; i < 20; i++ {
		d.PushBack("x")
	}
	d.Clear()
	check("cleared", &d)

	check("constructed", NewDeque[string](8))
}

func TestDequeFrontBack(t *testing.T) {
	var d Deque[int]
	d.PushFront(2)
	d.PushBack(3)
	d.PushFront(1)

	if v, ok := d.Front(); !ok || v != 1 {
		t.Fatalf("expected front 1, got %d (ok=%v)", v, ok)
	}
	if v, ok := d.Back(); !ok || v != 3 {
		t.Fatalf("expected back 3, got %d (ok=%v)", v, ok)
	}
}

func TestDequeReserve(t *testing.T) {
	d := NewDeque[int](4)
	for i := 0; i < 3; i++ {
		d.PushFront(i)
	}
	d.Reserve(32)
	if d.Cap() != 32 {
		t.Fatalf("expected cap 32, got %d", d.Cap())
	}
	for i, w := range []int{2, 1, 0} {
		if got := d.At(i); got != w {
			t.Fatalf("At(%d): expected %d, got %d", i, w, got)
		}
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic reserving capacity <= len")
		}
	}()
	d.Reserve(3)
}

func TestDequePopZeroesCell(t *testing.T) {
	d := NewDeque[*int](4)
	v := new(int)
	d.PushBack(v)
	d.PopFront()
	for i := 0; i < d.Cap(); i++ {
		if d.buf[i] != nil {
			t.Fatalf("cell %d still references a popped element", i)
		}
	}
}

func BenchmarkDequePushPop(b *testing.B) {
	var d Deque[uint32]
	for i := 0; i < b.N; i++ {
		d.PushBack(uint32(i))
		d.PushFront(uint32(i))
		d.PopFront()
		d.PopBack()
	}
}
