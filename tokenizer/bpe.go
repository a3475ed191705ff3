// bpe.go - BPE Encoding-Algorithmus
//
// Enthält:
// - encodeChunkInto: Byte-Level Transformation eines Pretokenizer-Stücks
// - encodeBPEMerge: BPE Merge-Algorithmus (GPT-2)

package tokenizer

import "strings"

// encodeChunkInto maps the bytes of one pretokenized piece to their printable
// runes and appends the piece's token ids to ids.
func (t *Tokenizer) encodeChunkInto(s string, ids []int32) []int32 {
	if s == "" {
		return ids
	}

	var sb strings.Builder
	sb.Grow(len(s) * 2)
	for _, b := range []byte(s) {
		sb.WriteRune(byteToRune[b])
	}
	encoded := sb.String()

	if id, ok := t.vocab.Reverse[encoded]; ok {
		return append(ids, id)
	}

	return t.encodeBPEMerge(encoded, ids)
}

// noMerge marks adjacent parts that have no merge rule.
const noMerge = int(^uint(0) >> 1)

// encodeBPEMerge splits encoded into runes and merges the adjacent pair with the
// lowest rank until no rule applies. ranks[i] caches the rank of parts[i]+parts[i+1]
// so only the neighbours of a merge are looked up again.
func (t *Tokenizer) encodeBPEMerge(encoded string, ids []int32) []int32 {
	parts := make([]string, 0, len(encoded))
	for _, r := range encoded {
		parts = append(parts, string(r))
	}

	rank := func(i int) int {
		if r, ok := t.vocab.Merges[parts[i]+" "+parts[i+1]]; ok {
			return r
		}
		return noMerge
	}

	ranks := make([]int, max(len(parts)-1, 0))
	for i := range ranks {
		ranks[i] = rank(i)
	}

	for len(ranks) > 0 {
		best := 0
		for i, r := range ranks {
			if r < ranks[best] {
				best = i
			}
		}
		if ranks[best] == noMerge {
			break
		}

		parts[best] += parts[best+1]
		parts = append(parts[:best+1], parts[best+2:]...)
		ranks = append(ranks[:best], ranks[best+1:]...)
		if best < len(ranks) {
			ranks[best] = rank(best)
		}
		if best > 0 {
			ranks[best-1] = rank(best - 1)
		}
	}

	for _, part := range parts {
		if id, ok := t.vocab.Reverse[part]; ok {
			ids = append(ids, id)
			continue
		}

		// fall back to single byte tokens; bytes missing from the vocabulary are dropped
		for _, r := range part {
			if id, ok := t.vocab.Reverse[string(r)]; ok {
				ids = append(ids, id)
			}
		}
	}

	return ids
}
