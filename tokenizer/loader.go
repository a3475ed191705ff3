// loader.go - Tokenizer Laden und Parsen (tokenizer.json Format)
//
// Enthält:
// - Load: Lädt aus Datei oder Verzeichnis
// - LoadFromBytes: Laden aus einem Byte-Slice
// - loadFromTokenizerJSON: Parst tokenizer.json Format
// - extractPretokenizer, extractNormalizer

package tokenizer

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// defaultPattern is the GPT-2 pretokenizer used when tokenizer.json names none.
const defaultPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// LoadFromBytes loads a tokenizer from tokenizer.json bytes without companion files.
func LoadFromBytes(data []byte) (*Tokenizer, error) {
	return loadFromTokenizerJSON(data, "")
}

// Load loads a tokenizer from a tokenizer.json file or from a directory containing one.
// Special token configuration is read from companion files next to it.
func Load(path string) (*Tokenizer, error) {
	dir := filepath.Dir(path)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		dir = path
		path = filepath.Join(path, "tokenizer.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer: %w", err)
	}
	return loadFromTokenizerJSON(data, dir)
}

func loadFromTokenizerJSON(data []byte, dir string) (*Tokenizer, error) {
	var raw struct {
		Model struct {
			Type   string           `json:"type"`
			Vocab  map[string]int32 `json:"vocab"`
			Merges json.RawMessage  `json:"merges"`
		} `json:"model"`
		Normalizer   json.RawMessage `json:"normalizer"`
		PreTokenizer json.RawMessage `json:"pre_tokenizer"`
		AddedTokens  []struct {
			ID      int32  `json:"id"`
			Content string `json:"content"`
			Special bool   `json:"special"`
		} `json:"added_tokens"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer: %w", err)
	}
	if raw.Model.Type != "" && raw.Model.Type != "BPE" {
		return nil, fmt.Errorf("unsupported tokenizer model %q", raw.Model.Type)
	}

	// merges are either "a b" strings or ["a", "b"] pairs
	var merges []string
	if len(raw.Model.Merges) > 0 && string(raw.Model.Merges) != "null" {
		if err := json.Unmarshal(raw.Model.Merges, &merges); err != nil {
			var pairs [][]string
			if err := json.Unmarshal(raw.Model.Merges, &pairs); err != nil {
				return nil, fmt.Errorf("failed to parse merges: %w", err)
			}
			merges = make([]string, len(pairs))
			for i, pair := range pairs {
				if len(pair) != 2 {
					return nil, fmt.Errorf("failed to parse merges: entry %d has %d parts", i, len(pair))
				}
				merges[i] = pair[0] + " " + pair[1]
			}
		}
	}

	t := &Tokenizer{
		vocab: &Vocabulary{
			Reverse: raw.Model.Vocab,
			Merges:  make(map[string]int, len(merges)),
			BOS:     -1,
			PAD:     -1,
		},
		specialTokens: make(map[string]int32, len(raw.AddedTokens)),
	}
	if t.vocab.Reverse == nil {
		t.vocab.Reverse = make(map[string]int32)
	}

	size := 0
	for _, id := range raw.Model.Vocab {
		size = max(size, int(id)+1)
	}
	for _, tok := range raw.AddedTokens {
		size = max(size, int(tok.ID)+1)
	}
	t.vocab.Values = make([]string, size)

	for token, id := range raw.Model.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("negative id %d for token %q", id, token)
		}
		t.vocab.Values[id] = token
	}
	for i, merge := range merges {
		if _, ok := t.vocab.Merges[merge]; !ok {
			t.vocab.Merges[merge] = i
		}
	}

	for _, tok := range raw.AddedTokens {
		if tok.ID < 0 || tok.Content == "" {
			continue
		}
		t.vocab.Values[tok.ID] = tok.Content
		t.specialTokens[tok.Content] = tok.ID
		t.specialOrder = append(t.specialOrder, tok.Content)
	}
	slices.SortStableFunc(t.specialOrder, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	loadSpecialTokenConfig(dir, t)

	form, err := extractNormalizer(raw.Normalizer)
	if err != nil {
		return nil, err
	}
	t.normalizer = form

	pattern := extractPretokenizer(raw.PreTokenizer)
	if pattern == "" {
		pattern = defaultPattern
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pretokenizer regex %q: %w", pattern, err)
	}
	t.pretokenizer = re

	return t, nil
}

// extractNormalizer maps a Unicode normalizer config to its form.
// A Sequence uses its first Unicode normalizer; other normalizer types are ignored.
func extractNormalizer(data json.RawMessage) (*norm.Form, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var n struct {
		Type        string            `json:"type"`
		Normalizers []json.RawMessage `json:"normalizers"`
	}
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse normalizer: %w", err)
	}

	var form norm.Form
	switch n.Type {
	case "NFC":
		form = norm.NFC
	case "NFD":
		form = norm.NFD
	case "NFKC":
		form = norm.NFKC
	case "NFKD":
		form = norm.NFKD
	case "Sequence":
		for _, sub := range n.Normalizers {
			if f, err := extractNormalizer(sub); err != nil || f != nil {
				return f, err
			}
		}
		return nil, nil
	default:
		return nil, nil
	}
	return &form, nil
}

// extractPretokenizer extracts the regex pattern from the pre_tokenizer config
func extractPretokenizer(data json.RawMessage) string {
	if data == nil {
		return ""
	}

	type split struct {
		Type    string `json:"type"`
		Pattern struct {
			Regex string `json:"Regex"`
		} `json:"pattern"`
	}

	var single split
	if err := json.Unmarshal(data, &single); err == nil && single.Pattern.Regex != "" {
		return single.Pattern.Regex
	}

	// Sequence: first Split pattern wins
	var seq struct {
		Type          string  `json:"type"`
		Pretokenizers []split `json:"pretokenizers"`
	}
	if err := json.Unmarshal(data, &seq); err == nil && seq.Type == "Sequence" {
		for _, pt := range seq.Pretokenizers {
			if pt.Type == "Split" && pt.Pattern.Regex != "" {
				return pt.Pattern.Regex
			}
		}
	}

	return ""
}
