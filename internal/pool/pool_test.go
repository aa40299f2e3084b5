package pool

import "testing"

type widget struct {
	n int
}

func TestPoolResetsOnPut(t *testing.T) {
	p := New(func() *widget { return &widget{} }, func(w *widget) { w.n = 0 })

	w := p.Get()
	w.n = 42
	p.Put(w)

	got := p.Get()
	if got.n != 0 {
		t.Fatalf("expected reset value, got n=%d", got.n)
	}
}

func TestPoolCreatesFreshValueWhenEmpty(t *testing.T) {
	calls := 0
	p := New(func() *widget { calls++; return &widget{} }, nil)
	p.Get()
	if calls != 1 {
		t.Fatalf("new func called %d times, want 1", calls)
	}
}
