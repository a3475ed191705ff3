// tokenizer.go - Byte-Level BPE Tokenizer (GPT-2/Qwen2 Format)
//
// Enthält:
// - Tokenizer, Vocabulary: Typen des Tokenizers
// - byteToRune/runeToByte: GPT-2 Byte-zu-Unicode Tabellen
// - Token, ID, VocabSize, EOS, EOSToken: Zugriff auf das Vokabular
// - Sentinels: Prüft, dass Marker-Token zu genau einem ID encodieren
//
// Siehe auch: loader.go, encode.go, bpe.go, decode.go

package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// ErrSentinel is returned when a marker token does not map to a single id.
var ErrSentinel = errors.New("tokenizer: sentinel does not encode to a single token")

// Vocabulary holds the token strings and BPE merge ranks.
type Vocabulary struct {
	Values  []string
	Reverse map[string]int32
	Merges  map[string]int

	BOS int32
	EOS []int32
	PAD int32
}

// Tokenizer encodes text to token ids and back.
type Tokenizer struct {
	vocab        *Vocabulary
	pretokenizer *regexp2.Regexp
	normalizer   *norm.Form

	specialTokens map[string]int32
	// longest first, for greedy splitting
	specialOrder []string
	eosToken     string
}

var (
	byteToRune [256]rune
	runeToByte = make(map[rune]byte, 256)
)

func init() {
	n := 0
	for b := range 256 {
		r := rune(b)
		if !(b >= '!' && b <= '~') && !(b >= 0xa1 && b <= 0xac) && !(b >= 0xae && b <= 0xff) {
			r = rune(0x100 + n)
			n++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
	}
}

// VocabSize returns the number of token ids, including added tokens.
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab.Values)
}

// Token returns the raw vocabulary string of id.
func (t *Tokenizer) Token(id int32) string {
	if id < 0 || int(id) >= len(t.vocab.Values) {
		return ""
	}
	return t.vocab.Values[id]
}

// ID returns the id of a vocabulary or added token.
func (t *Tokenizer) ID(token string) (int32, bool) {
	if id, ok := t.specialTokens[token]; ok {
		return id, true
	}
	id, ok := t.vocab.Reverse[token]
	return id, ok
}

// EOS returns the end-of-sequence ids.
func (t *Tokenizer) EOS() []int32 {
	return t.vocab.EOS
}

// EOSToken returns the end-of-sequence token string, or "" if none is configured.
func (t *Tokenizer) EOSToken() string {
	if t.eosToken != "" {
		return t.eosToken
	}
	if len(t.vocab.EOS) > 0 {
		return t.Token(t.vocab.EOS[0])
	}
	return ""
}

// Sentinels encodes the concatenation of tokens and returns one id per token.
// It fails with ErrSentinel unless the encoding yields exactly len(tokens) ids.
func (t *Tokenizer) Sentinels(tokens ...string) ([]int32, error) {
	ids := t.Encode(strings.Join(tokens, ""), false)
	if len(ids) != len(tokens) {
		return nil, fmt.Errorf("%w: %q gave %d ids, want %d", ErrSentinel, tokens, len(ids), len(tokens))
	}
	return ids, nil
}
