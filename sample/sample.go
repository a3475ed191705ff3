// sample.go - Autoregressive Generierung mit KV-Cache
//
// Enthält:
// - Options: Temperatur, Token-Limit, Stop-Token, Zufallsgenerator
// - Stream: Lazy Token-Folge als iter.Seq[int32]
// - Next: Waehlt ein Token aus den Logits der letzten Position

package sample

import (
	"iter"
	"slices"

	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/logutil"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/model"
)

type Options struct {
	// Temperature divides the logits. Zero picks the most likely token.
	Temperature float32
	// MaxTokens caps the number of generated tokens.
	MaxTokens int
	// Stop ends generation; stop tokens are not yielded.
	Stop []int32
	RNG  *ml.RNG
}

// DefaultOptions reads temperature, token limit and seed from the environment.
func DefaultOptions(stop ...int32) Options {
	return Options{
		Temperature: envconfig.Temperature(),
		MaxTokens:   int(envconfig.MaxTokens()),
		Stop:        stop,
		RNG:         ml.NewRNG(envconfig.Seed()),
	}
}

// Next picks a token from one row of logits.
func Next(logits []float32, temperature float32, rng *ml.RNG) int32 {
	if temperature <= 0 || rng == nil {
		return int32(ml.Argmax(logits))
	}

	scaled := make([]float32, len(logits))
	for i, v := range logits {
		scaled[i] = v / temperature
	}
	return int32(rng.Categorical(scaled))
}

// Stream generates tokens after prompt. The prompt is run through the caches
// once, after which every step feeds only the newest token. The sequence ends
// at a stop token or after MaxTokens tokens, and can be iterated only once.
func Stream(m model.Model, prompt []int32, opts Options) iter.Seq[int32] {
	used := false
	return func(yield func(int32) bool) {
		if used || len(prompt) == 0 {
			return
		}
		used = true

		caches := m.NewCaches()
		input := slices.Clone(prompt)
		for range opts.MaxTokens {
			ctx := ml.NewContext()
			logits := m.Forward(ctx, ml.FromInts(input, 1, len(input)), caches)
			vocab := logits.Dim(-1)
			last := logits.Data()[(len(input)-1)*vocab:]
			token := Next(last, opts.Temperature, opts.RNG)
			logutil.Trace("sampled token", "token", token, "logits", logits)
			ctx.Close()

			if slices.Contains(opts.Stop, token) || !yield(token) {
				return
			}
			input = []int32{token}
		}
	}
}
