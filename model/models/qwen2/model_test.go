package qwen2

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/model"
)

const smallConfig = `{"model_type":"qwen2","hidden_size":16,"num_attention_heads":4,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":100,"rms_norm_eps":1e-5}`

func newTestModel(t *testing.T, config string, seed uint64) *Model {
	t.Helper()
	c, err := ParseConfig([]byte(config))
	require.NoError(t, err)
	return New(c, ml.NewRNG(seed))
}

func tokens(ids ...int32) *ml.Tensor {
	return ml.FromInts(ids, 1, len(ids))
}

func TestForwardLogitsShape(t *testing.T) {
	m := newTestModel(t, smallConfig, 1)
	logits := m.Forward(nil, tokens(1, 2, 3), nil)
	assert.Equal(t, []int{1, 3, 100}, logits.Shape())
}

func TestTiedHead(t *testing.T) {
	m := newTestModel(t, smallConfig, 2)
	require.Nil(t, m.LMHead)

	for _, name := range m.Parameters().Names() {
		assert.False(t, strings.HasPrefix(name, "lm_head"), "unerwarteter Parameter %s", name)
	}

	in := tokens(5, 6, 7, 8)
	logits := m.Forward(nil, in, nil).Floats()
	want := m.Hidden(nil, in, nil).MatmulT(nil, m.EmbedTokens.Weight).Floats()
	if diff := cmp.Diff(want, logits, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("Logits (-h*E^T +Forward):\n%s", diff)
	}
}

func TestUntiedHead(t *testing.T) {
	m := newTestModel(t, strings.Replace(smallConfig, "}", `,"tie_word_embeddings":false}`, 1), 3)
	require.NotNil(t, m.LMHead)

	p := m.Parameters()
	_, ok := p.Get("lm_head.weight")
	assert.True(t, ok)
	_, ok = p.Get("lm_head.bias")
	assert.False(t, ok)
	assert.Equal(t, []int{1, 2, 100}, m.Forward(nil, tokens(1, 2), nil).Shape())
}

func TestParameterNames(t *testing.T) {
	m := newTestModel(t, smallConfig, 4)
	want := []string{
		"model.embed_tokens.weight",
		"model.layers.0.self_attn.q_proj.weight",
		"model.layers.0.self_attn.q_proj.bias",
		"model.layers.0.self_attn.k_proj.weight",
		"model.layers.0.self_attn.k_proj.bias",
		"model.layers.0.self_attn.v_proj.weight",
		"model.layers.0.self_attn.v_proj.bias",
		"model.layers.0.self_attn.o_proj.weight",
		"model.layers.0.mlp.gate_proj.weight",
		"model.layers.0.mlp.up_proj.weight",
		"model.layers.0.mlp.down_proj.weight",
		"model.layers.0.input_layernorm.weight",
		"model.layers.0.post_attention_layernorm.weight",
		"model.norm.weight",
	}
	p := m.Parameters()
	if diff := cmp.Diff(want, p.Names()); diff != "" {
		t.Errorf("Namen (-erwartet +erhalten):\n%s", diff)
	}
	assert.Equal(t, 4256, p.Count())
}

func TestSingleTokenEmptyCache(t *testing.T) {
	m := newTestModel(t, smallConfig, 5)
	caches := m.NewCaches()
	require.Len(t, caches, 1)

	logits := m.Forward(nil, tokens(42), caches)
	assert.Equal(t, []int{1, 1, 100}, logits.Shape())
	for i, c := range caches {
		assert.Equal(t, 1, c.Offset(), "Cache %d", i)
	}
}

func TestIncrementalDecodingMatchesFullSequence(t *testing.T) {
	config := `{"hidden_size":16,"num_attention_heads":4,"num_key_value_heads":2,"num_hidden_layers":2,"intermediate_size":24,"vocab_size":50,"rms_norm_eps":1e-6,"rope_theta":10000}`
	m := newTestModel(t, config, 6)

	full := m.Forward(nil, tokens(3, 1, 4, 1, 5), nil).Floats()

	caches := m.NewCaches()
	prefill := m.Forward(nil, tokens(3, 1, 4), caches).Floats()
	step1 := m.Forward(nil, tokens(1), caches).Floats()
	step2 := m.Forward(nil, tokens(5), caches).Floats()

	const v = 50
	opt := cmpopts.EquateApprox(0, 1e-4)
	if diff := cmp.Diff(full[:3*v], prefill, opt); diff != "" {
		t.Errorf("Prefill (-voll +inkrementell):\n%s", diff)
	}
	if diff := cmp.Diff(full[3*v:4*v], step1, opt); diff != "" {
		t.Errorf("Schritt 1 (-voll +inkrementell):\n%s", diff)
	}
	if diff := cmp.Diff(full[4*v:], step2, opt); diff != "" {
		t.Errorf("Schritt 2 (-voll +inkrementell):\n%s", diff)
	}
	assert.Equal(t, 5, caches[1].Offset())
}

func TestGroupedQueryAttentionShape(t *testing.T) {
	config := `{"hidden_size":16,"num_attention_heads":4,"num_key_value_heads":1,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":100,"rms_norm_eps":1e-5}`
	m := newTestModel(t, config, 7)

	attn := m.Layers[0].SelfAttn
	assert.Equal(t, []int{4, 16}, attn.KProj.Weight.Shape())

	x := ml.NewRNG(8).Normal(1, 2, 3, 16)
	out := attn.Forward(nil, x, CausalMask(3, 0), nil)
	assert.Equal(t, []int{2, 3, 16}, out.Shape())
}

func TestBackwardReachesEveryParameter(t *testing.T) {
	m := newTestModel(t, smallConfig, 9)

	ctx := ml.NewContext(ml.WithGrad())
	defer ctx.Close()
	logits := m.Forward(ctx, ml.FromInts([]int32{1, 2, 3, 4, 5, 6}, 2, 3), nil)
	loss := logits.CrossEntropy(ctx, ml.FromInts([]int32{2, 3, 4, 5, 6, 7}, 2, 3))
	require.NoError(t, ctx.Backward(loss))

	for name, p := range m.Parameters().All() {
		assert.NotNil(t, p.Grad(), "kein Gradient fuer %s", name)
	}
}

func TestSaveReloadBitIdentical(t *testing.T) {
	config := strings.Replace(smallConfig, "}", `,"tie_word_embeddings":false}`, 1)
	m := newTestModel(t, config, 10)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644))
	require.NoError(t, model.SaveWeights(m, filepath.Join(dir, "model.safetensors"), ml.DTypeF32))

	loaded, err := model.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "qwen2", loaded.ModelType())

	in := tokens(9, 8, 7, 6)
	want := m.Forward(nil, in, nil).Floats()
	got := loaded.Forward(nil, in, nil).Floats()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Logits nach Neuladen (-vorher +nachher):\n%s", diff)
	}
}

func TestLoadMissingWeight(t *testing.T) {
	m := newTestModel(t, smallConfig, 11)
	dir := t.TempDir()
	require.NoError(t, model.SaveWeights(m, filepath.Join(dir, "model.safetensors"), ml.DTypeF32))

	untied := strings.Replace(smallConfig, "}", `,"tie_word_embeddings":false}`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(untied), 0o644))

	_, err := model.Load(dir)
	require.ErrorIs(t, err, model.ErrMissingWeight)
}

func TestValidate(t *testing.T) {
	m := newTestModel(t, smallConfig, 12)
	require.NoError(t, m.Validate())

	var _ model.Validator = m

	w, ok := m.Parameters().Get("model.norm.weight")
	require.True(t, ok)
	w.Data()[3] = float32(math.NaN())
	err := m.Validate()
	require.ErrorIs(t, err, model.ErrNonFinite)
	assert.Contains(t, err.Error(), "model.norm.weight[3]")

	m = newTestModel(t, smallConfig, 12)
	m.Config.NumAttentionHeads = 3
	require.ErrorIs(t, m.Validate(), ErrConfig)
}

func TestLoadRejectsInfWeight(t *testing.T) {
	m := newTestModel(t, smallConfig, 13)
	w, ok := m.Parameters().Get("model.layers.0.mlp.down_proj.weight")
	require.True(t, ok)
	w.Data()[0] = float32(math.Inf(1))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(smallConfig), 0o644))
	require.NoError(t, model.SaveWeights(m, filepath.Join(dir, "model.safetensors"), ml.DTypeF32))

	_, err := model.Load(dir)
	require.ErrorIs(t, err, model.ErrNonFinite)
}
