// random.go - Zufallszahlen fuer Initialisierung, Mischen und Sampling
// Dieses Modul enthaelt den deterministisch seedbaren Generator RNG.
package ml

import (
	"math"
	"math/rand/v2"
)

// RNG is a seeded generator. It is not safe for concurrent use.
type RNG struct {
	r *rand.Rand
}

// NewRNG returns a generator whose sequence depends only on seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Uniform returns a float tensor with values drawn from [low, high).
func (g *RNG) Uniform(low, high float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = low + (high-low)*g.r.Float32()
	}
	return t
}

// Normal returns a float tensor with values drawn from N(0, std^2).
func (g *RNG) Normal(std float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = float32(g.r.NormFloat64()) * std
	}
	return t
}

// Shuffle permutes n elements through swap.
func (g *RNG) Shuffle(n int, swap func(i, j int)) { g.r.Shuffle(n, swap) }

// Categorical draws an index with probability softmax(logits).
func (g *RNG) Categorical(logits []float32) int {
	if len(logits) == 0 {
		return -1
	}
	m := math.Inf(-1)
	for _, v := range logits {
		m = max(m, float64(v))
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v) - m)
	}

	u := g.r.Float64() * sum
	for i, v := range logits {
		u -= math.Exp(float64(v) - m)
		if u < 0 {
			return i
		}
	}
	return len(logits) - 1
}

// Argmax returns the index of the largest value, the first one on ties.
func Argmax(s []float32) int {
	best := -1
	for i, v := range s {
		if best < 0 || v > s[best] {
			best = i
		}
	}
	return best
}
