// Modul: mask.go
// Beschreibung: Additive kausale Maske fuer die Attention.
// Enthält: MaskValue, CausalMask, maskFor.

package qwen2

import (
	"github.com/lingoforge/qwen2mt/kvcache"
	"github.com/lingoforge/qwen2mt/ml"
)

// MaskValue is added to scores of positions a query must not see. It is
// large and finite so fully masked rows never produce NaN.
const MaskValue = -1e9

// CausalMask returns the [n, offset+n] additive mask for n new positions
// following offset cached ones: query i may attend to keys 0..offset+i.
func CausalMask(n, offset int) *ml.Tensor {
	s := offset + n
	m := ml.Zeros(n, s)
	data := m.Data()
	for i := range n {
		for j := offset + i + 1; j < s; j++ {
			data[i*s+j] = MaskValue
		}
	}
	return m
}

// maskFor returns nil for a single new position, which may attend to everything.
func maskFor(n int, caches []kvcache.Cache) *ml.Tensor {
	if n <= 1 {
		return nil
	}
	offset := 0
	if len(caches) > 0 && caches[0] != nil {
		offset = caches[0].Offset()
	}
	return CausalMask(n, offset)
}
