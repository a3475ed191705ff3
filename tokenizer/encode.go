// encode.go - Text zu Token-IDs encodieren
//
// Enthält:
// - Encode: Text zu Token-IDs (parallel für große Inputs)
// - splitBySpecialTokens: Trennt Special Tokens
// - pretokenize: Zerlegt Text mit der Pretokenizer-Regex
//
// Siehe auch: bpe.go für den Merge-Algorithmus, decode.go für Decoding

package tokenizer

import (
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Konstante für parallele Verarbeitung (4KB Schwellwert)
const parallelThreshold = 4096

type chunk struct {
	text      string
	isSpecial bool
}

// splitBySpecialTokens splits text into parts, keeping special tokens as separate elements
func (t *Tokenizer) splitBySpecialTokens(s string) []chunk {
	if len(t.specialOrder) == 0 {
		return []chunk{{text: s}}
	}

	var result []chunk
	remaining := s

	for len(remaining) > 0 {
		found := false
		for _, tok := range t.specialOrder {
			if strings.HasPrefix(remaining, tok) {
				result = append(result, chunk{tok, true})
				remaining = remaining[len(tok):]
				found = true
				break
			}
		}
		if found {
			continue
		}

		next := len(remaining)
		for _, tok := range t.specialOrder {
			if idx := strings.Index(remaining, tok); idx != -1 && idx < next {
				next = idx
			}
		}
		result = append(result, chunk{text: remaining[:next]})
		remaining = remaining[next:]
	}

	return result
}

// pretokenize splits part at the pretokenizer matches. Text between matches is kept
// as its own piece.
func (t *Tokenizer) pretokenize(part string, out []chunk) []chunk {
	runes := []rune(part)
	prev := 0

	m, err := t.pretokenizer.FindRunesMatch(runes)
	for ; m != nil && err == nil; m, err = t.pretokenizer.FindNextMatch(m) {
		if m.Index > prev {
			out = append(out, chunk{text: string(runes[prev:m.Index])})
		}
		if m.Length > 0 {
			out = append(out, chunk{text: string(runes[m.Index : m.Index+m.Length])})
		}
		prev = m.Index + m.Length
	}
	if err != nil {
		slog.Warn("pretokenizer failed, encoding remainder as one piece", "error", err)
	}
	if prev < len(runes) {
		out = append(out, chunk{text: string(runes[prev:])})
	}
	return out
}

// Encode tokenizes text to token IDs. Parallelizes for large inputs (>4KB).
func (t *Tokenizer) Encode(s string, addBOS bool) []int32 {
	var chunks []chunk
	for _, part := range t.splitBySpecialTokens(s) {
		if part.isSpecial {
			chunks = append(chunks, part)
			continue
		}

		text := part.text
		if t.normalizer != nil {
			text = t.normalizer.String(text)
		}
		chunks = t.pretokenize(text, chunks)
	}

	ids := t.encodeChunks(chunks, len(s) >= parallelThreshold)
	if addBOS && t.vocab.BOS >= 0 {
		ids = append([]int32{t.vocab.BOS}, ids...)
	}
	return ids
}

func (t *Tokenizer) encodeChunks(chunks []chunk, parallel bool) []int32 {
	encode := func(chunks []chunk, ids []int32) []int32 {
		for _, c := range chunks {
			if c.isSpecial {
				ids = append(ids, t.specialTokens[c.text])
			} else {
				ids = t.encodeChunkInto(c.text, ids)
			}
		}
		return ids
	}

	numWorkers := min(runtime.GOMAXPROCS(0), len(chunks))
	if !parallel || numWorkers < 2 {
		return encode(chunks, nil)
	}

	chunksPer := (len(chunks) + numWorkers - 1) / numWorkers
	results := make([][]int32, numWorkers)

	var g errgroup.Group
	for i := range numWorkers {
		start := i * chunksPer
		end := min(start+chunksPer, len(chunks))
		if start >= end {
			continue
		}
		g.Go(func() error {
			results[i] = encode(chunks[start:end], nil)
			return nil
		})
	}
	_ = g.Wait()

	var ids []int32
	for _, r := range results {
		ids = append(ids, r...)
	}
	return ids
}
