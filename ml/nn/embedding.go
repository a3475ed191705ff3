package nn

import (
	"math"

	"github.com/lingoforge/qwen2mt/ml"
)

// Embedding maps token ids to rows of Weight ([vocab, dims]).
type Embedding struct {
	Weight *ml.Tensor
}

// NewEmbedding draws the table from N(0, 1/dims); a nil rng leaves it zero.
func NewEmbedding(rng *ml.RNG, vocab, dims int) *Embedding {
	if rng == nil {
		return &Embedding{Weight: trainable(ml.Zeros(vocab, dims))}
	}
	return &Embedding{Weight: trainable(rng.Normal(float32(math.Sqrt(1/float64(dims))), vocab, dims))}
}

func (e *Embedding) Collect(p *ml.Parameters, prefix string) {
	p.Set(prefix+".weight", e.Weight)
}

func (e *Embedding) Forward(ctx *ml.Context, ids *ml.Tensor) *ml.Tensor {
	return e.Weight.Rows(ctx, ids)
}

// AsLinear projects hidden states back onto the vocabulary with the shared table.
func (e *Embedding) AsLinear(ctx *ml.Context, x *ml.Tensor) *ml.Tensor {
	return x.MatmulT(ctx, e.Weight)
}
