// Modul: block.go
// Beschreibung: Transformer-Block mit Pre-Norm-Residualverbindungen.

package qwen2

import (
	"github.com/lingoforge/qwen2mt/kvcache"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/ml/nn"
)

// Block computes h = x + attn(norm(x)) and h + mlp(norm(h)).
type Block struct {
	SelfAttn               *Attention
	MLP                    *MLP
	InputLayernorm         *nn.RMSNorm
	PostAttentionLayernorm *nn.RMSNorm
}

func newBlock(c *Config, rng *ml.RNG) *Block {
	return &Block{
		SelfAttn:               newAttention(c, rng),
		MLP:                    newMLP(c, rng),
		InputLayernorm:         nn.NewRMSNorm(c.HiddenSize, c.RMSNormEps),
		PostAttentionLayernorm: nn.NewRMSNorm(c.HiddenSize, c.RMSNormEps),
	}
}

func (b *Block) Forward(ctx *ml.Context, x, mask *ml.Tensor, cache kvcache.Cache) *ml.Tensor {
	h := x.Add(ctx, b.SelfAttn.Forward(ctx, b.InputLayernorm.Forward(ctx, x), mask, cache))
	return h.Add(ctx, b.MLP.Forward(ctx, b.PostAttentionLayernorm.Forward(ctx, h)))
}

func (b *Block) Collect(p *ml.Parameters, prefix string) {
	b.SelfAttn.Collect(p, prefix+".self_attn")
	b.MLP.Collect(p, prefix+".mlp")
	b.InputLayernorm.Collect(p, prefix+".input_layernorm")
	b.PostAttentionLayernorm.Collect(p, prefix+".post_attention_layernorm")
}
