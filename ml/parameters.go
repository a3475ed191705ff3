// parameters.go - Geordnete Sammlung benannter Parameter
// Dieses Modul enthaelt Parameters, eine Map von Gewichtsnamen auf Tensoren,
// die die Einfuegereihenfolge beibehaelt.
package ml

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Parameters maps weight names to tensors in insertion order.
type Parameters struct {
	m *orderedmap.OrderedMap[string, *Tensor]
}

func NewParameters() *Parameters {
	return &Parameters{m: orderedmap.New[string, *Tensor]()}
}

// Set stores t under name, replacing any previous tensor.
func (p *Parameters) Set(name string, t *Tensor) {
	p.m.Set(name, t)
}

func (p *Parameters) Get(name string) (*Tensor, bool) {
	return p.m.Get(name)
}

// Len returns the number of named tensors.
func (p *Parameters) Len() int { return p.m.Len() }

// All iterates name and tensor pairs in insertion order.
func (p *Parameters) All() iter.Seq2[string, *Tensor] {
	return func(yield func(string, *Tensor) bool) {
		for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Names returns the names in insertion order.
func (p *Parameters) Names() []string {
	names := make([]string, 0, p.m.Len())
	for name := range p.All() {
		names = append(names, name)
	}
	return names
}

// Count returns the total number of scalar values.
func (p *Parameters) Count() int {
	n := 0
	for _, t := range p.All() {
		n += t.Len()
	}
	return n
}

// ZeroGrad drops the gradients of every tensor.
func (p *Parameters) ZeroGrad() {
	for _, t := range p.All() {
		t.ZeroGrad()
	}
}
