// decode.go - Token-IDs zu Text dekodieren
//
// Enthält:
// - Decode: Konvertiert Token-IDs zurück zu Text
// - DecodeBytes: Roh-Bytes, für Streaming über UTF-8 Grenzen hinweg

package tokenizer

import "unicode/utf8"

// DecodeBytes converts token ids back to raw bytes. A multi-byte character split
// across tokens yields an incomplete UTF-8 sequence until its last token is decoded.
func (t *Tokenizer) DecodeBytes(ids []int32) []byte {
	var b []byte
	for _, id := range ids {
		if id < 0 || int(id) >= len(t.vocab.Values) {
			continue
		}

		token := t.vocab.Values[id]
		if _, ok := t.specialTokens[token]; ok {
			b = append(b, token...)
			continue
		}

		for _, r := range token {
			if c, ok := runeToByte[r]; ok {
				b = append(b, c)
			} else {
				b = utf8.AppendRune(b, r)
			}
		}
	}
	return b
}

// Decode converts token IDs back to text
func (t *Tokenizer) Decode(ids []int32) string {
	return string(t.DecodeBytes(ids))
}
