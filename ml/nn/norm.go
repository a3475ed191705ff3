package nn

import "github.com/lingoforge/qwen2mt/ml"

// RMSNorm scales the normalized last axis by Weight.
type RMSNorm struct {
	Weight *ml.Tensor
	Eps    float32
}

func NewRMSNorm(dims int, eps float32) *RMSNorm {
	return &RMSNorm{Weight: trainable(ml.Full(1, dims)), Eps: eps}
}

func (n *RMSNorm) Collect(p *ml.Parameters, prefix string) {
	p.Set(prefix+".weight", n.Weight)
}

func (n *RMSNorm) Forward(ctx *ml.Context, x *ml.Tensor) *ml.Tensor {
	return x.RMSNorm(ctx, n.Weight, n.Eps)
}

// RoPE holds the rotary embedding settings of an attention layer.
type RoPE struct {
	Dims        int
	Traditional bool
	Base        float32
	Scale       float32
}

// Forward rotates x ([..., L, D]) as positions offset..offset+L-1.
func (r RoPE) Forward(ctx *ml.Context, x *ml.Tensor, offset int) *ml.Tensor {
	return x.RoPE(ctx, r.Dims, r.Traditional, r.Base, r.Scale, offset)
}
