// ops_shape.go - Formoperationen
// Dieses Modul enthaelt Reshape und Transpose (allgemeine Permutation).
package ml

import (
	"fmt"
	"slices"
)

// Reshape returns a view with a new shape over the same elements. One
// dimension may be -1 and is inferred.
func (t *Tensor) Reshape(ctx *Context, shape ...int) *Tensor {
	shape = slices.Clone(shape)
	infer, known := -1, 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				panic(fmt.Sprintf("ml: Reshape %v has more than one -1", shape))
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known == 0 || t.Len()%known != 0 {
			panic(fmt.Sprintf("ml: cannot reshape %v to %v", t.shape, shape))
		}
		shape[infer] = t.Len() / known
	}
	checkShape(t.Len(), shape)
	t.mustDense("Reshape")

	if t.dtype == DTypeI32 {
		return FromInts(t.ints, shape...)
	}

	out := FromFloats(t.data, shape...)
	return ctx.track(out, func() {
		g := t.gradBuf()
		for i, v := range out.grad {
			g[i] += v
		}
	}, t)
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// permuteIndex maps every linear index of the permuted tensor to the linear
// index of the element it was taken from.
func permuteIndex(shape, perm []int) []int {
	src := strides(shape)
	outShape := make([]int, len(perm))
	step := make([]int, len(perm))
	for i, p := range perm {
		outShape[i] = shape[p]
		step[i] = src[p]
	}

	index := make([]int, mul(outShape...))
	pos := make([]int, len(outShape))
	off := 0
	for o := range index {
		index[o] = off
		for d := len(pos) - 1; d >= 0; d-- {
			pos[d]++
			off += step[d]
			if pos[d] < outShape[d] {
				break
			}
			off -= step[d] * pos[d]
			pos[d] = 0
		}
	}
	return index
}

// Transpose permutes the axes of t: axis i of the result is axis perm[i] of t.
func (t *Tensor) Transpose(ctx *Context, perm ...int) *Tensor {
	t.mustFloat("Transpose")
	if len(perm) != t.Rank() {
		panic(fmt.Sprintf("ml: Transpose permutation %v for shape %v", perm, t.shape))
	}
	seen := make([]bool, len(perm))
	shape := make([]int, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			panic(fmt.Sprintf("ml: invalid permutation %v", perm))
		}
		seen[p] = true
		shape[i] = t.shape[p]
	}

	index := permuteIndex(t.shape, perm)
	out := Zeros(shape...)
	for o, i := range index {
		out.data[o] = t.data[i]
	}

	return ctx.track(out, func() {
		g := t.gradBuf()
		for o, i := range index {
			g[i] += out.grad[o]
		}
	}, t)
}
