// Package nn - Schichten fuer Transformer-Modelle
//
// Dieses Modul enthaelt:
// - Linear: affine Abbildung mit optionalem Bias
// - Embedding: Token-Tabelle, auch als Ausgabeschicht nutzbar
// - RMSNorm und RoPE als Module mit festen Parametern
package nn

import (
	"math"

	"github.com/lingoforge/qwen2mt/ml"
)

// Linear computes x Wt + b. Weight is [out, in]; Bias is nil when disabled.
type Linear struct {
	Weight *ml.Tensor
	Bias   *ml.Tensor
}

// NewLinear initializes weight and bias uniformly in +-1/sqrt(in). A nil rng
// leaves them zero, for layers whose weights are loaded afterwards.
func NewLinear(rng *ml.RNG, in, out int, bias bool) *Linear {
	scale := float32(math.Sqrt(1 / float64(in)))
	l := &Linear{Weight: trainable(uniform(rng, scale, out, in))}
	if bias {
		l.Bias = trainable(uniform(rng, scale, out))
	}
	return l
}

func (l *Linear) Forward(ctx *ml.Context, x *ml.Tensor) *ml.Tensor {
	y := x.MatmulT(ctx, l.Weight)
	if l.Bias != nil {
		y = y.Add(ctx, l.Bias)
	}
	return y
}

// Collect registers the layer's tensors under prefix.
func (l *Linear) Collect(p *ml.Parameters, prefix string) {
	p.Set(prefix+".weight", l.Weight)
	if l.Bias != nil {
		p.Set(prefix+".bias", l.Bias)
	}
}

func uniform(rng *ml.RNG, scale float32, shape ...int) *ml.Tensor {
	if rng == nil {
		return ml.Zeros(shape...)
	}
	return rng.Uniform(-scale, scale, shape...)
}

func trainable(t *ml.Tensor) *ml.Tensor {
	t.SetRequiresGrad(true)
	return t
}
