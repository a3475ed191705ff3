package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoforge/qwen2mt/fs/safetensors"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/model"
)

const tinyConfig = `{"model_type":"qwen2","hidden_size":16,"num_attention_heads":4,"num_key_value_heads":2,"num_hidden_layers":1,"intermediate_size":32,"vocab_size":32,"rms_norm_eps":1e-5}`

func writeModelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(tinyConfig), 0o644))
	m, err := model.New([]byte(tinyConfig), ml.NewRNG(1))
	require.NoError(t, err)
	require.NoError(t, model.SaveWeights(m, filepath.Join(dir, "model.safetensors"), ml.DTypeF32))

	tok := map[string]any{
		"model": map[string]any{
			"type": "BPE",
			"vocab": map[string]int32{
				"h": 0, "e": 1, "l": 2, "o": 3, "Ġ": 4, "w": 5, "r": 6, "d": 7,
				"he": 8, "ll": 9, "hell": 10, "hello": 11, "Ġw": 12, "or": 13, "Ġwor": 14,
			},
			"merges": []string{"h e", "l l", "he ll", "hell o", "Ġ w", "o r", "Ġw or"},
		},
		"added_tokens": []any{
			map[string]any{"id": 15, "content": "<|endoftext|>", "special": true},
			map[string]any{"id": 16, "content": "<|im_start|>", "special": true},
			map[string]any{"id": 17, "content": "<|im_end|>", "special": true},
		},
	}
	b, err := json.Marshal(tok)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer.json"), b, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer_config.json"), []byte(`{"eos_token": "<|endoftext|>"}`), 0o644))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewCLI()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func TestMissingArgsPrintUsage(t *testing.T) {
	for _, args := range [][]string{{"train"}, {"train", "model"}, {"translate"}, {"show"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out, err := run(t, "", args...)
			require.NoError(t, err)
			assert.Contains(t, out, "Usage:")
			assert.Contains(t, out, "Environment Variables:")
		})
	}
}

func TestShow(t *testing.T) {
	dir := writeModelDir(t)

	out, err := run(t, "", "show", dir, "--verbose")
	require.NoError(t, err)

	for _, want := range []string{"architecture", "qwen2", "parameters", "rms_norm_eps", "vocabulary", "<|endoftext|>", "model.layers.0.self_attn.q_proj.bias"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "lm_head")
}

func TestTranslate(t *testing.T) {
	dir := writeModelDir(t)

	out, err := run(t, "hello world", "translate", dir, "--temperature", "0", "--max-tokens", "4")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\n"), "Ausgabe endet nicht mit Zeilenumbruch: %q", out)
}

func TestTrain(t *testing.T) {
	dir := writeModelDir(t)

	type pair struct {
		En string `parquet:"en"`
		Zh string `parquet:"zh"`
	}
	data := filepath.Join(t.TempDir(), "train.parquet")
	require.NoError(t, parquet.WriteFile(data, []pair{{"hello", "world"}, {"world", "hello"}, {"hello world", "hello"}}))

	output := filepath.Join(t.TempDir(), "out.safetensors")
	out, err := run(t, "", "train", dir, data, "--batch-size", "1", "--context-size", "48", "--seed", "3", "-o", output, "--save-dtype", "f16")
	require.NoError(t, err)
	assert.Contains(t, out, "Total rows of data to train: 3")

	f, err := safetensors.Open(output)
	require.NoError(t, err)
	defer f.Close()
	info, ok := f.Info("model.norm.weight")
	require.True(t, ok)
	assert.Equal(t, "F16", info.DType)
}

func TestTrainRejectsBadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"--batch-size", "0"},
		{"--context-size", "-1"},
		{"--save-dtype", "int4"},
	} {
		_, err := run(t, "", append([]string{"train", "model", "data.parquet"}, args...)...)
		require.Error(t, err, "Flags %v", args)
	}
}

func TestCompletePrefix(t *testing.T) {
	cases := []struct {
		in   []byte
		want int
	}{
		{nil, 0},
		{[]byte("abc"), 3},
		{[]byte("a\xe4\xbd"), 1},
		{[]byte("a\xe4\xbd\xa0"), 4},
		{[]byte("\xc3"), 0},
		{[]byte("ok\xff"), 3},
	}

	for _, tt := range cases {
		if got := completePrefix(tt.in); got != tt.want {
			t.Errorf("completePrefix(%q) = %d, erwartet %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatParams(t *testing.T) {
	cases := map[int]string{12: "12", 2_560: "2.6K", 494_032_768: "494.0M", 7_615_616_512: "7.6B"}
	for n, want := range cases {
		if got := formatParams(n); got != want {
			t.Errorf("formatParams(%d) = %q, erwartet %q", n, got, want)
		}
	}
}
