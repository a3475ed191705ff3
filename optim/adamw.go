// adamw.go - AdamW Optimierer mit entkoppeltem Gewichtszerfall
//
// Enthält:
// - AdamW: Optimierer-Zustand (erstes und zweites Moment je Parameter)
// - Update: Ein Schritt über alle Parameter, danach Gradienten zurücksetzen

package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/lingoforge/qwen2mt/ml"
)

const (
	Beta1 = 0.9
	Beta2 = 0.999
	Eps   = 1e-8
)

type moments struct {
	m, v []float32
}

// AdamW applies decoupled weight decay followed by an Adam step without bias correction:
//
//	p = p * (1 - lr*wd)
//	m = b1*m + (1-b1)*g
//	v = b2*v + (1-b2)*g^2
//	p = p - lr * m / (sqrt(v) + eps)
type AdamW struct {
	LearningRate float32
	WeightDecay  float32
	Beta1, Beta2 float32
	Eps          float32

	steps int
	state map[string]*moments
}

func NewAdamW(lr, weightDecay float32) *AdamW {
	return &AdamW{
		LearningRate: lr,
		WeightDecay:  weightDecay,
		Beta1:        Beta1,
		Beta2:        Beta2,
		Eps:          Eps,
		state:        make(map[string]*moments),
	}
}

// Steps returns the number of completed updates.
func (o *AdamW) Steps() int { return o.steps }

// Update moves every parameter that has a gradient and clears all gradients.
// Parameters without a gradient keep their value and moments.
func (o *AdamW) Update(params *ml.Parameters) error {
	lr, wd := o.LearningRate, o.WeightDecay
	b1, b2, eps := o.Beta1, o.Beta2, o.Eps

	for name, p := range params.All() {
		g := p.Grad()
		if g == nil {
			continue
		}

		w := p.Data()
		if len(g) != len(w) {
			return fmt.Errorf("gradient of %s has %d values, want %d", name, len(g), len(w))
		}

		s, ok := o.state[name]
		if !ok {
			s = &moments{m: make([]float32, len(w)), v: make([]float32, len(w))}
			o.state[name] = s
		}

		if wd != 0 {
			blas32.Scal(1-lr*wd, blas32.Vector{N: len(w), Inc: 1, Data: w})
		}
		for i, gi := range g {
			s.m[i] = b1*s.m[i] + (1-b1)*gi
			s.v[i] = b2*s.v[i] + (1-b2)*gi*gi
			w[i] -= lr * s.m[i] / (float32(math.Sqrt(float64(s.v[i]))) + eps)
		}
	}

	params.ZeroGrad()
	o.steps++
	return nil
}
