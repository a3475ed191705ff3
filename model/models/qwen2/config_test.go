package qwen2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	c, err := ParseConfig([]byte(`{"model_type":"qwen2","hidden_size":16,"num_attention_heads":4,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":100,"rms_norm_eps":1e-5}`))
	require.NoError(t, err)

	assert.Equal(t, 4, c.NumKeyValueHeads)
	assert.Equal(t, float32(1_000_000), c.RopeTheta)
	assert.False(t, c.RopeTraditional)
	assert.True(t, c.TieWordEmbeddings)
	assert.Equal(t, 4, c.HeadDim())
	assert.Equal(t, float32(1), c.RopeScale())
}

func TestParseConfigOverrides(t *testing.T) {
	c, err := ParseConfig([]byte(`{"hidden_size":16,"num_attention_heads":4,"num_key_value_heads":2,"num_hidden_layers":2,
		"intermediate_size":32,"vocab_size":10,"rms_norm_eps":1e-6,"rope_theta":10000,"rope_traditional":true,
		"tie_word_embeddings":false,"rope_scaling":{"type":"linear","factor":4}}`))
	require.NoError(t, err)

	assert.Equal(t, 2, c.NumKeyValueHeads)
	assert.Equal(t, float32(10000), c.RopeTheta)
	assert.True(t, c.RopeTraditional)
	assert.False(t, c.TieWordEmbeddings)
	assert.Equal(t, float32(0.25), c.RopeScale())
}

func TestParseConfigErrors(t *testing.T) {
	const base = `"hidden_size":16,"num_attention_heads":4,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":100`
	cases := []struct {
		name string
		json string
		want error
	}{
		{"extra scaling key", `{` + base + `,"rope_scaling":{"type":"linear","factor":2,"original_max_position_embeddings":4096}}`, ErrRopeScaling},
		{"missing scaling type", `{` + base + `,"rope_scaling":{"factor":2}}`, ErrRopeScaling},
		{"unsupported scaling type", `{` + base + `,"rope_scaling":{"type":"dynamic","factor":2}}`, ErrRopeScaling},
		{"zero scaling factor", `{` + base + `,"rope_scaling":{"type":"linear","factor":0}}`, ErrRopeScaling},
		{"indivisible heads", `{"hidden_size":18,"num_attention_heads":4,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":100}`, ErrConfig},
		{"odd head size", `{"hidden_size":12,"num_attention_heads":4,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":100}`, ErrConfig},
		{"kv heads do not divide", `{` + base + `,"num_key_value_heads":3}`, ErrConfig},
		{"more kv than query heads", `{` + base + `,"num_key_value_heads":8}`, ErrConfig},
		{"missing vocab", `{"hidden_size":16,"num_attention_heads":4,"num_hidden_layers":1,"intermediate_size":32}`, ErrConfig},
		{"malformed json", `{` + base, ErrConfig},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("erwartet %v, erhalten %v", tt.want, err)
			}
		})
	}
}
