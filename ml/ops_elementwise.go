// ops_elementwise.go - Elementweise Operationen mit Broadcasting
// Dieses Modul enthaelt Add, Sub, Mul, Scale und SiLU samt Ableitungen.
package ml

import (
	"fmt"
	"math"
	"slices"
)

// broadcastShape returns the output shape of a binary op. The smaller operand
// must match the trailing dimensions of the larger one.
func broadcastShape(a, b *Tensor) []int {
	if slices.Equal(a.shape, b.shape) {
		return a.shape
	}
	if len(b.shape) <= len(a.shape) && slices.Equal(a.shape[len(a.shape)-len(b.shape):], b.shape) {
		return a.shape
	}
	if len(a.shape) < len(b.shape) && slices.Equal(b.shape[len(b.shape)-len(a.shape):], a.shape) {
		return b.shape
	}
	panic(fmt.Sprintf("ml: cannot broadcast %v with %v", a.shape, b.shape))
}

// Add returns t + o.
func (t *Tensor) Add(ctx *Context, o *Tensor) *Tensor {
	t.mustFloat("Add")
	o.mustFloat("Add")
	shape := broadcastShape(t, o)
	na, nb := len(t.data), len(o.data)
	out := Zeros(shape...)
	for i := range out.data {
		out.data[i] = t.data[i%na] + o.data[i%nb]
	}

	return ctx.track(out, func() {
		if t.requiresGrad {
			g := t.gradBuf()
			for i, v := range out.grad {
				g[i%na] += v
			}
		}
		if o.requiresGrad {
			g := o.gradBuf()
			for i, v := range out.grad {
				g[i%nb] += v
			}
		}
	}, t, o)
}

// Sub returns t - o.
func (t *Tensor) Sub(ctx *Context, o *Tensor) *Tensor {
	t.mustFloat("Sub")
	o.mustFloat("Sub")
	shape := broadcastShape(t, o)
	na, nb := len(t.data), len(o.data)
	out := Zeros(shape...)
	for i := range out.data {
		out.data[i] = t.data[i%na] - o.data[i%nb]
	}

	return ctx.track(out, func() {
		if t.requiresGrad {
			g := t.gradBuf()
			for i, v := range out.grad {
				g[i%na] += v
			}
		}
		if o.requiresGrad {
			g := o.gradBuf()
			for i, v := range out.grad {
				g[i%nb] -= v
			}
		}
	}, t, o)
}

// Mul returns the elementwise product t * o.
func (t *Tensor) Mul(ctx *Context, o *Tensor) *Tensor {
	t.mustFloat("Mul")
	o.mustFloat("Mul")
	shape := broadcastShape(t, o)
	na, nb := len(t.data), len(o.data)
	out := Zeros(shape...)
	for i := range out.data {
		out.data[i] = t.data[i%na] * o.data[i%nb]
	}

	return ctx.track(out, func() {
		if t.requiresGrad {
			g := t.gradBuf()
			for i, v := range out.grad {
				g[i%na] += v * o.data[i%nb]
			}
		}
		if o.requiresGrad {
			g := o.gradBuf()
			for i, v := range out.grad {
				g[i%nb] += v * t.data[i%na]
			}
		}
	}, t, o)
}

// Scale returns t * s.
func (t *Tensor) Scale(ctx *Context, s float32) *Tensor {
	t.mustFloat("Scale")
	out := Zeros(t.shape...)
	for i, v := range t.data {
		out.data[i] = v * s
	}

	return ctx.track(out, func() {
		g := t.gradBuf()
		for i, v := range out.grad {
			g[i] += v * s
		}
	}, t)
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// SiLU returns x * sigmoid(x).
func (t *Tensor) SiLU(ctx *Context) *Tensor {
	t.mustFloat("SiLU")
	out := Zeros(t.shape...)
	for i, x := range t.data {
		out.data[i] = x * sigmoid(x)
	}

	return ctx.track(out, func() {
		g := t.gradBuf()
		for i, v := range out.grad {
			x := t.data[i]
			s := sigmoid(x)
			g[i] += v * s * (1 + x*(1-s))
		}
	}, t)
}
