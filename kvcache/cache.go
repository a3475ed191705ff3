// Package kvcache - Key/Value-Cache fuer inkrementelle Dekodierung
//
// Dieses Modul enthaelt:
// - Cache: Schnittstelle eines Schicht-Caches
// - Causal: wachsender Cache, der alle bisherigen Positionen haelt
package kvcache

import (
	"fmt"

	"github.com/lingoforge/qwen2mt/ml"
)

// Cache stores the keys and values one attention layer has seen so far.
type Cache interface {
	// Update appends k and v ([B, KVH, L, D]) and returns every stored
	// position as [B, KVH, Offset, D]. The results may be block views over
	// the cache's storage; stored positions are never overwritten.
	Update(k, v *ml.Tensor) (*ml.Tensor, *ml.Tensor)

	// Offset is the number of positions stored.
	Offset() int
}

// growStep is the smallest capacity a Causal cache allocates.
const growStep = 256

// Causal keeps every position in a [B, KVH, capacity, D] buffer whose capacity
// doubles when it runs out. Stored values are detached from any gradient and
// Update hands out block views of the buffer instead of copies.
type Causal struct {
	keys, values []float32

	batch, heads, dim int
	capacity, offset  int
}

func NewCausalCache() *Causal {
	return &Causal{}
}

func (c *Causal) Offset() int { return c.offset }

func (c *Causal) grow(need int) {
	if need <= c.capacity {
		return
	}
	capacity := max(need, 2*c.capacity, growStep)
	keys := make([]float32, c.batch*c.heads*capacity*c.dim)
	values := make([]float32, len(keys))
	for bh := range c.batch * c.heads {
		n := c.offset * c.dim
		copy(keys[bh*capacity*c.dim:], c.keys[bh*c.capacity*c.dim:bh*c.capacity*c.dim+n])
		copy(values[bh*capacity*c.dim:], c.values[bh*c.capacity*c.dim:bh*c.capacity*c.dim+n])
	}
	c.keys, c.values, c.capacity = keys, values, capacity
}

func (c *Causal) Update(k, v *ml.Tensor) (*ml.Tensor, *ml.Tensor) {
	if k.Rank() != 4 || v.Rank() != 4 {
		panic(fmt.Sprintf("kvcache: expected rank 4 keys and values, got %v and %v", k.Shape(), v.Shape()))
	}
	b, h, l, d := k.Dim(0), k.Dim(1), k.Dim(2), k.Dim(3)
	if v.Dim(0) != b || v.Dim(1) != h || v.Dim(2) != l || v.Dim(3) != d {
		panic(fmt.Sprintf("kvcache: keys %v and values %v differ", k.Shape(), v.Shape()))
	}

	if c.capacity == 0 {
		c.batch, c.heads, c.dim = b, h, d
	} else if b != c.batch || h != c.heads || d != c.dim {
		panic(fmt.Sprintf("kvcache: cache holds [%d %d _ %d], got %v", c.batch, c.heads, c.dim, k.Shape()))
	}

	c.grow(c.offset + l)

	kd, vd := k.Data(), v.Data()
	for bh := range b * h {
		dst := (bh*c.capacity + c.offset) * d
		copy(c.keys[dst:dst+l*d], kd[bh*l*d:(bh+1)*l*d])
		copy(c.values[dst:dst+l*d], vd[bh*l*d:(bh+1)*l*d])
	}
	c.offset += l

	stride := c.capacity * d
	return ml.BlockView(c.keys, stride, b, h, c.offset, d), ml.BlockView(c.values, stride, b, h, c.offset, d)
}
