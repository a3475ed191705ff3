// ops_norm.go - Normalisierung und Rotary Position Embedding
// Dieses Modul enthaelt:
// - RMSNorm: Root-Mean-Square-Normalisierung ueber die letzte Achse
// - RoPE: Rotation der ersten dims Kanaele abhaengig von der Position
package ml

import (
	"fmt"
	"math"
)

// RMSNorm normalizes the last axis to unit root mean square and scales it by w.
func (t *Tensor) RMSNorm(ctx *Context, w *Tensor, eps float32) *Tensor {
	t.mustFloat("RMSNorm")
	d := t.Dim(-1)
	if w.Rank() != 1 || w.Dim(0) != d {
		panic(fmt.Sprintf("ml: RMSNorm weight %v for input %v", w.shape, t.shape))
	}

	rows := len(t.data) / d
	out := Zeros(t.shape...)
	inv := make([]float32, rows)
	for r := range rows {
		x := t.data[r*d : (r+1)*d]
		ss := dot(x, x)
		inv[r] = float32(1 / math.Sqrt(float64(ss/float32(d)+eps)))
		y := out.data[r*d : (r+1)*d]
		for i, v := range x {
			y[i] = v * inv[r] * w.data[i]
		}
	}

	return ctx.track(out, func() {
		var gx, gw []float32
		if t.requiresGrad {
			gx = t.gradBuf()
		}
		if w.requiresGrad {
			gw = w.gradBuf()
		}
		for r := range rows {
			x := t.data[r*d : (r+1)*d]
			dy := out.grad[r*d : (r+1)*d]
			if gw != nil {
				for i, v := range dy {
					gw[i] += v * x[i] * inv[r]
				}
			}
			if gx != nil {
				// dx = r * (dn - n * mean(dn * n)) with n = x * r, dn = dy * w
				var dot float64
				for i, v := range dy {
					dot += float64(v*w.data[i]) * float64(x[i]*inv[r])
				}
				mean := float32(dot / float64(d))
				g := gx[r*d : (r+1)*d]
				for i, v := range dy {
					g[i] += inv[r] * (v*w.data[i] - x[i]*inv[r]*mean)
				}
			}
		}
	}, t, w)
}

// RoPE rotates the first dims channels of the last axis. The second to last
// axis is the sequence; position l is rotated by (offset+l)*scale*base^(-2i/dims).
// With traditional set, pairs are adjacent channels, otherwise the two halves.
func (t *Tensor) RoPE(ctx *Context, dims int, traditional bool, base, scale float32, offset int) *Tensor {
	t.mustFloat("RoPE")
	if t.Rank() < 2 {
		panic(fmt.Sprintf("ml: RoPE needs a sequence axis, got %v", t.shape))
	}
	d, seq := t.Dim(-1), t.Dim(-2)
	if dims > d || dims%2 != 0 {
		panic(fmt.Sprintf("ml: RoPE dims %d for head size %d", dims, d))
	}

	half := dims / 2
	cos := make([]float32, seq*half)
	sin := make([]float32, seq*half)
	for l := range seq {
		pos := float64(offset+l) * float64(scale)
		for i := range half {
			freq := math.Pow(float64(base), -2*float64(i)/float64(dims))
			s, c := math.Sincos(pos * freq)
			cos[l*half+i], sin[l*half+i] = float32(c), float32(s)
		}
	}

	pair := func(i int) (int, int) {
		if traditional {
			return 2 * i, 2*i + 1
		}
		return i, i + half
	}

	out := FromFloats(append([]float32(nil), t.data...), t.shape...)
	rows := len(t.data) / d
	for r := range rows {
		l := r % seq
		x := t.data[r*d : (r+1)*d]
		y := out.data[r*d : (r+1)*d]
		for i := range half {
			a, b := pair(i)
			c, s := cos[l*half+i], sin[l*half+i]
			y[a] = x[a]*c - x[b]*s
			y[b] = x[a]*s + x[b]*c
		}
	}

	return ctx.track(out, func() {
		g := t.gradBuf()
		for r := range rows {
			l := r % seq
			dy := out.grad[r*d : (r+1)*d]
			dx := g[r*d : (r+1)*d]
			for i := dims; i < d; i++ {
				dx[i] += dy[i]
			}
			for i := range half {
				a, b := pair(i)
				c, s := cos[l*half+i], sin[l*half+i]
				dx[a] += dy[a]*c + dy[b]*s
				dx[b] += -dy[a]*s + dy[b]*c
			}
		}
	}, t)
}
