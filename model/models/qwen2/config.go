// Modul: config.go
// Beschreibung: Konfiguration fuer das Qwen2-Sprachmodell.
// Enthält: Config-Struct, ParseConfig mit Defaults, Validierung, RoPE-Skalierung.

package qwen2

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrConfig reports inconsistent model dimensions.
	ErrConfig = errors.New("qwen2: invalid config")

	// ErrRopeScaling reports a rope_scaling object that is not {factor, type: linear}.
	ErrRopeScaling = errors.New("qwen2: invalid rope_scaling")
)

// Config holds the fields of config.json that shape the network.
type Config struct {
	ModelType         string         `json:"model_type"`
	HiddenSize        int            `json:"hidden_size"`
	NumAttentionHeads int            `json:"num_attention_heads"`
	NumKeyValueHeads  int            `json:"num_key_value_heads"`
	NumHiddenLayers   int            `json:"num_hidden_layers"`
	IntermediateSize  int            `json:"intermediate_size"`
	VocabSize         int            `json:"vocab_size"`
	RMSNormEps        float32        `json:"rms_norm_eps"`
	RopeTheta         float32        `json:"rope_theta"`
	RopeTraditional   bool           `json:"rope_traditional"`
	RopeScaling       map[string]any `json:"rope_scaling,omitempty"`
	TieWordEmbeddings bool           `json:"tie_word_embeddings"`
}

// ParseConfig decodes config.json, applies defaults and validates the result.
func ParseConfig(b []byte) (*Config, error) {
	c := Config{
		ModelType:         "qwen2",
		RopeTheta:         1_000_000,
		TieWordEmbeddings: true,
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if c.NumKeyValueHeads == 0 {
		c.NumKeyValueHeads = c.NumAttentionHeads
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the dimensions and the rope_scaling object.
func (c *Config) Validate() error {
	switch {
	case c.HiddenSize <= 0, c.NumAttentionHeads <= 0, c.NumHiddenLayers <= 0,
		c.IntermediateSize <= 0, c.VocabSize <= 0:
		return fmt.Errorf("%w: sizes must be positive (hidden %d, heads %d, layers %d, intermediate %d, vocab %d)",
			ErrConfig, c.HiddenSize, c.NumAttentionHeads, c.NumHiddenLayers, c.IntermediateSize, c.VocabSize)
	case c.HiddenSize%c.NumAttentionHeads != 0:
		return fmt.Errorf("%w: hidden_size %d is not divisible by %d heads", ErrConfig, c.HiddenSize, c.NumAttentionHeads)
	case c.HeadDim()%2 != 0:
		return fmt.Errorf("%w: head size %d must be even for rotary embeddings", ErrConfig, c.HeadDim())
	case c.NumKeyValueHeads <= 0 || c.NumKeyValueHeads > c.NumAttentionHeads || c.NumAttentionHeads%c.NumKeyValueHeads != 0:
		return fmt.Errorf("%w: %d attention heads cannot share %d key/value heads", ErrConfig, c.NumAttentionHeads, c.NumKeyValueHeads)
	case c.RMSNormEps < 0:
		return fmt.Errorf("%w: negative rms_norm_eps %g", ErrConfig, c.RMSNormEps)
	}

	if c.RopeScaling == nil {
		return nil
	}
	if keys := slices.Sorted(maps.Keys(c.RopeScaling)); !slices.Equal(keys, []string{"factor", "type"}) {
		return fmt.Errorf("%w: must contain exactly the keys factor and type, got %v", ErrRopeScaling, keys)
	}
	if t, _ := c.RopeScaling["type"].(string); t != "linear" {
		return fmt.Errorf("%w: type %v is not supported, only linear", ErrRopeScaling, c.RopeScaling["type"])
	}
	if f, ok := c.RopeScaling["factor"].(float64); !ok || f <= 0 {
		return fmt.Errorf("%w: factor %v must be a positive number", ErrRopeScaling, c.RopeScaling["factor"])
	}
	return nil
}

// HeadDim is the size of one attention head.
func (c *Config) HeadDim() int {
	return c.HiddenSize / c.NumAttentionHeads
}

// RopeScale is the position multiplier, 1/factor for linear scaling.
func (c *Config) RopeScale() float32 {
	if f, ok := c.RopeScaling["factor"].(float64); ok && f > 0 {
		return float32(1 / f)
	}
	return 1
}
