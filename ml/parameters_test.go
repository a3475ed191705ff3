package ml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParametersOrder(t *testing.T) {
	p := NewParameters()
	p.Set("b", Zeros(2))
	p.Set("a", Zeros(3, 2))
	p.Set("c", Zeros(1))
	p.Set("b", Zeros(4))

	if diff := cmp.Diff([]string{"b", "a", "c"}, p.Names()); diff != "" {
		t.Errorf("Reihenfolge (-erwartet +erhalten):\n%s", diff)
	}
	if p.Len() != 3 || p.Count() != 11 {
		t.Errorf("Len() = %d, Count() = %d, erwartet 3 und 11", p.Len(), p.Count())
	}
	if _, ok := p.Get("missing"); ok {
		t.Error("erwartet keinen Eintrag fuer unbekannten Namen")
	}
}

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(42).Normal(1, 8).Floats()
	b := NewRNG(42).Normal(1, 8).Floats()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("gleicher Seed liefert verschiedene Werte:\n%s", diff)
	}

	logits := []float32{-1e9, 0, -1e9}
	rng := NewRNG(1)
	for range 20 {
		if got := rng.Categorical(logits); got != 1 {
			t.Fatalf("Categorical() = %d, erwartet 1", got)
		}
	}
	if got := Argmax([]float32{0.1, 3, 3, -2}); got != 1 {
		t.Errorf("Argmax() = %d, erwartet 1", got)
	}
}
