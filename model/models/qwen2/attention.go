// Modul: attention.go
// Beschreibung: Grouped-Query-Attention mit Rotary Embeddings und KV-Cache.
// Enthält: Attention-Struct, newAttention, Forward, Collect.

package qwen2

import (
	"math"

	"github.com/lingoforge/qwen2mt/kvcache"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/ml/nn"
)

// Attention implements Qwen2 self attention. Query, key and value
// projections carry a bias, the output projection does not.
type Attention struct {
	QProj *nn.Linear
	KProj *nn.Linear
	VProj *nn.Linear
	OProj *nn.Linear
	RoPE  nn.RoPE

	NumHeads   int
	NumKVHeads int
	HeadDim    int
	Scale      float32
}

func newAttention(c *Config, rng *ml.RNG) *Attention {
	headDim := c.HeadDim()
	return &Attention{
		QProj: nn.NewLinear(rng, c.HiddenSize, c.NumAttentionHeads*headDim, true),
		KProj: nn.NewLinear(rng, c.HiddenSize, c.NumKeyValueHeads*headDim, true),
		VProj: nn.NewLinear(rng, c.HiddenSize, c.NumKeyValueHeads*headDim, true),
		OProj: nn.NewLinear(rng, c.NumAttentionHeads*headDim, c.HiddenSize, false),
		RoPE: nn.RoPE{
			Dims:        headDim,
			Traditional: c.RopeTraditional,
			Base:        c.RopeTheta,
			Scale:       c.RopeScale(),
		},
		NumHeads:   c.NumAttentionHeads,
		NumKVHeads: c.NumKeyValueHeads,
		HeadDim:    headDim,
		Scale:      float32(1 / math.Sqrt(float64(headDim))),
	}
}

// Forward attends x ([B, L, hidden]) to itself and, with a cache, to all
// earlier positions stored in it.
func (a *Attention) Forward(ctx *ml.Context, x, mask *ml.Tensor, cache kvcache.Cache) *ml.Tensor {
	B, L := x.Dim(0), x.Dim(1)

	q := a.QProj.Forward(ctx, x).Reshape(ctx, B, L, a.NumHeads, a.HeadDim).Transpose(ctx, 0, 2, 1, 3)
	k := a.KProj.Forward(ctx, x).Reshape(ctx, B, L, a.NumKVHeads, a.HeadDim).Transpose(ctx, 0, 2, 1, 3)
	v := a.VProj.Forward(ctx, x).Reshape(ctx, B, L, a.NumKVHeads, a.HeadDim).Transpose(ctx, 0, 2, 1, 3)

	offset := 0
	if cache != nil {
		offset = cache.Offset()
	}
	q = a.RoPE.Forward(ctx, q, offset)
	k = a.RoPE.Forward(ctx, k, offset)

	if cache != nil {
		k, v = cache.Update(k, v)
	}

	out := ml.ScaledDotProductAttention(ctx, q, k, v, a.Scale, mask)
	out = out.Transpose(ctx, 0, 2, 1, 3).Reshape(ctx, B, L, a.NumHeads*a.HeadDim)
	return a.OProj.Forward(ctx, out)
}

func (a *Attention) Collect(p *ml.Parameters, prefix string) {
	a.QProj.Collect(p, prefix+".q_proj")
	a.KProj.Collect(p, prefix+".k_proj")
	a.VProj.Collect(p, prefix+".v_proj")
	a.OProj.Collect(p, prefix+".o_proj")
}
