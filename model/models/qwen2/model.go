// Modul: model.go
// Beschreibung: Qwen2-Sprachmodell mit Einbettung, Bloecken und Ausgabeschicht.
// Enthält: Model-Struct, New, Hidden, Forward, Parameters, NewCaches, Validate, Registrierung.

package qwen2

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lingoforge/qwen2mt/kvcache"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/ml/nn"
	"github.com/lingoforge/qwen2mt/model"
)

// Model is the Qwen2 causal language model. LMHead is nil when the output
// projection is tied to the token embedding.
type Model struct {
	Config *Config

	EmbedTokens *nn.Embedding
	Layers      []*Block
	Norm        *nn.RMSNorm
	LMHead      *nn.Linear
}

// New builds the model from c. With a nil rng every weight starts at zero
// (norms at one) and is expected to be loaded.
func New(c *Config, rng *ml.RNG) *Model {
	m := &Model{
		Config:      c,
		EmbedTokens: nn.NewEmbedding(rng, c.VocabSize, c.HiddenSize),
		Layers:      make([]*Block, c.NumHiddenLayers),
		Norm:        nn.NewRMSNorm(c.HiddenSize, c.RMSNormEps),
	}
	for i := range m.Layers {
		m.Layers[i] = newBlock(c, rng)
	}
	if !c.TieWordEmbeddings {
		m.LMHead = nn.NewLinear(rng, c.HiddenSize, c.VocabSize, false)
	}
	return m
}

// Hidden returns the final normalized hidden states [B, L, hidden].
func (m *Model) Hidden(ctx *ml.Context, inputs *ml.Tensor, caches []kvcache.Cache) *ml.Tensor {
	if caches != nil && len(caches) != len(m.Layers) {
		panic(fmt.Sprintf("qwen2: %d caches for %d layers", len(caches), len(m.Layers)))
	}

	h := m.EmbedTokens.Forward(ctx, inputs)
	mask := maskFor(inputs.Dim(1), caches)
	for i, layer := range m.Layers {
		var cache kvcache.Cache
		if caches != nil {
			cache = caches[i]
		}
		h = layer.Forward(ctx, h, mask, cache)
	}
	return m.Norm.Forward(ctx, h)
}

// Forward returns logits [B, L, vocab] for token ids [B, L].
func (m *Model) Forward(ctx *ml.Context, inputs *ml.Tensor, caches []kvcache.Cache) *ml.Tensor {
	h := m.Hidden(ctx, inputs, caches)
	if m.LMHead == nil {
		return m.EmbedTokens.AsLinear(ctx, h)
	}
	return m.LMHead.Forward(ctx, h)
}

// Parameters lists the weights under their Hugging Face checkpoint names.
func (m *Model) Parameters() *ml.Parameters {
	p := ml.NewParameters()
	m.EmbedTokens.Collect(p, "model.embed_tokens")
	for i, layer := range m.Layers {
		layer.Collect(p, "model.layers."+strconv.Itoa(i))
	}
	m.Norm.Collect(p, "model.norm")
	if m.LMHead != nil {
		m.LMHead.Collect(p, "lm_head")
	}
	return p
}

// NewCaches returns one empty cache per layer for a generation session.
func (m *Model) NewCaches() []kvcache.Cache {
	caches := make([]kvcache.Cache, len(m.Layers))
	for i := range caches {
		caches[i] = kvcache.NewCausalCache()
	}
	return caches
}

func (m *Model) ModelType() string { return m.Config.ModelType }

// Validate checks the config and rejects loaded weights holding NaN or Inf.
func (m *Model) Validate() error {
	if err := m.Config.Validate(); err != nil {
		return err
	}
	for name, t := range m.Parameters().All() {
		for i, v := range t.Data() {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("%w: %s[%d] = %v", model.ErrNonFinite, name, i, v)
			}
		}
	}
	return nil
}

func init() {
	model.Register("qwen2", func(config []byte, rng *ml.RNG) (model.Model, error) {
		c, err := ParseConfig(config)
		if err != nil {
			return nil, err
		}
		return New(c, rng), nil
	})
}
