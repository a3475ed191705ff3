package kvcache

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lingoforge/qwen2mt/ml"
)

func seq(start, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(start + i)
	}
	return s
}

func TestCausalUpdate(t *testing.T) {
	c := NewCausalCache()
	if c.Offset() != 0 {
		t.Fatalf("Offset() = %d, erwartet 0", c.Offset())
	}

	// two heads, head size 2, three positions
	k1 := ml.FromFloats(seq(0, 12), 1, 2, 3, 2)
	keys, values := c.Update(k1, ml.FromFloats(seq(100, 12), 1, 2, 3, 2))
	if c.Offset() != 3 {
		t.Errorf("Offset() = %d, erwartet 3", c.Offset())
	}
	if diff := cmp.Diff(k1.Floats(), keys.Floats()); diff != "" {
		t.Errorf("Keys (-erwartet +erhalten):\n%s", diff)
	}
	if diff := cmp.Diff(seq(100, 12), values.Floats()); diff != "" {
		t.Errorf("Values (-erwartet +erhalten):\n%s", diff)
	}

	keys, _ = c.Update(ml.FromFloats([]float32{50, 51, 60, 61}, 1, 2, 1, 2), ml.Zeros(1, 2, 1, 2))
	if diff := cmp.Diff([]int{1, 2, 4, 2}, keys.Shape()); diff != "" {
		t.Errorf("Form (-erwartet +erhalten):\n%s", diff)
	}
	want := []float32{0, 1, 2, 3, 4, 5, 50, 51, 6, 7, 8, 9, 10, 11, 60, 61}
	if diff := cmp.Diff(want, keys.Floats()); diff != "" {
		t.Errorf("Keys (-erwartet +erhalten):\n%s", diff)
	}
}

func TestCausalGrowKeepsHistory(t *testing.T) {
	c := NewCausalCache()
	var all []float32
	for i := range growStep + 10 {
		k := ml.FromFloats([]float32{float32(i)}, 1, 1, 1, 1)
		all = append(all, float32(i))
		keys, _ := c.Update(k, k)
		if keys.Dim(2) != i+1 {
			t.Fatalf("Schritt %d: Laenge %d", i, keys.Dim(2))
		}
	}

	keys, _ := c.Update(ml.FromFloats([]float32{-1}, 1, 1, 1, 1), ml.Zeros(1, 1, 1, 1))
	if diff := cmp.Diff(append(all, -1), keys.Floats()); diff != "" {
		t.Errorf("Historie nach Wachstum (-erwartet +erhalten):\n%s", diff)
	}
}

func TestCausalShapeMismatchPanics(t *testing.T) {
	c := NewCausalCache()
	c.Update(ml.Zeros(1, 2, 1, 4), ml.Zeros(1, 2, 1, 4))

	defer func() {
		if recover() == nil {
			t.Error("erwartet panic bei geaenderter Kopfanzahl")
		}
	}()
	c.Update(ml.Zeros(1, 3, 1, 4), ml.Zeros(1, 3, 1, 4))
}

func TestCausalUpdateDoesNotCopyHistory(t *testing.T) {
	const heads, dim = 2, 64
	c := NewCausalCache()
	c.Update(ml.Zeros(1, heads, 200, dim), ml.Zeros(1, heads, 200, dim))

	k, v := ml.Zeros(1, heads, 1, dim), ml.Zeros(1, heads, 1, dim)
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	for range 50 {
		c.Update(k, v)
	}
	runtime.ReadMemStats(&after)

	// copying the history would allocate about 11 MB here
	if n := after.TotalAlloc - before.TotalAlloc; n > 1<<20 {
		t.Errorf("50 Schritte allokieren %d Bytes, erwartet weniger als 1 MiB", n)
	}
}

func TestCausalViewsSeeOnlyStoredPositions(t *testing.T) {
	c := NewCausalCache()
	keys, values := c.Update(ml.FromFloats(seq(0, 4), 1, 2, 1, 2), ml.FromFloats(seq(10, 4), 1, 2, 1, 2))
	c.Update(ml.FromFloats(seq(20, 4), 1, 2, 1, 2), ml.Zeros(1, 2, 1, 2))

	if diff := cmp.Diff([]float32{0, 1, 2, 3}, keys.Floats()); diff != "" {
		t.Errorf("Keys nach weiterem Update (-erwartet +erhalten):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{10, 11, 12, 13}, values.Floats()); diff != "" {
		t.Errorf("Values nach weiterem Update (-erwartet +erhalten):\n%s", diff)
	}
}
