// config.go - Laden von Special Token Konfiguration
//
// Enthält:
// - loadSpecialTokenConfig: Lädt aus Dateien (generation_config.json, config.json, etc.)
// - parseTokenIDs: eos_token_id als int oder []int
// - extractTokenString: Extrahiert Token-Strings aus verschiedenen JSON-Formaten

package tokenizer

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

// loadSpecialTokenConfig loads special token configuration from HuggingFace companion files.
//
// Loading priority for EOS ids:
//  1. generation_config.json - eos_token_id
//  2. config.json - eos_token_id
//  3. tokenizer_config.json - eos_token string
//  4. special_tokens_map.json - final fallback
//
// The EOS token string always comes from tokenizer_config.json or special_tokens_map.json
// when one of them names it.
func loadSpecialTokenConfig(dir string, t *Tokenizer) {
	if dir == "" {
		return
	}

	for _, name := range []string{"generation_config.json", "config.json"} {
		if len(t.vocab.EOS) > 0 && t.vocab.BOS >= 0 {
			break
		}

		var config struct {
			EOSTokenID any `json:"eos_token_id"`
			BOSTokenID any `json:"bos_token_id"`
		}
		if !readJSON(filepath.Join(dir, name), &config) {
			continue
		}
		if len(t.vocab.EOS) == 0 {
			t.vocab.EOS = parseTokenIDs(config.EOSTokenID)
		}
		if ids := parseTokenIDs(config.BOSTokenID); t.vocab.BOS < 0 && len(ids) > 0 {
			t.vocab.BOS = ids[0]
		}
	}

	for _, name := range []string{"tokenizer_config.json", "special_tokens_map.json"} {
		var config struct {
			BOSToken any `json:"bos_token"`
			EOSToken any `json:"eos_token"`
			PADToken any `json:"pad_token"`
		}
		if !readJSON(filepath.Join(dir, name), &config) {
			continue
		}

		if s := extractTokenString(config.EOSToken); s != "" {
			if t.eosToken == "" {
				t.eosToken = s
			}
			if id, ok := t.specialTokens[s]; ok && len(t.vocab.EOS) == 0 {
				t.vocab.EOS = []int32{id}
			}
		}
		if id, ok := t.specialTokens[extractTokenString(config.BOSToken)]; ok && t.vocab.BOS < 0 {
			t.vocab.BOS = id
		}
		if id, ok := t.specialTokens[extractTokenString(config.PADToken)]; ok && t.vocab.PAD < 0 {
			t.vocab.PAD = id
		}
	}
}

func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("ignoring malformed tokenizer config", "path", path, "error", err)
		return false
	}
	return true
}

func parseTokenIDs(v any) []int32 {
	switch val := v.(type) {
	case float64:
		return []int32{int32(val)}
	case []any:
		ids := make([]int32, 0, len(val))
		for _, id := range val {
			if f, ok := id.(float64); ok {
				ids = append(ids, int32(f))
			}
		}
		return ids
	}
	return nil
}

// extractTokenString extracts the token string from various formats used in HuggingFace configs.
// Tokens can be represented as:
//   - string: "token"
//   - object: {"content": "token", ...}
func extractTokenString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if content, ok := val["content"].(string); ok {
			return content
		}
	}
	return ""
}
