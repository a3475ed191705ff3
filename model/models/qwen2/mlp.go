// Modul: mlp.go
// Beschreibung: Gated Feed-Forward-Netz (SwiGLU) ohne Bias.

package qwen2

import (
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/ml/nn"
)

// MLP computes down(silu(gate(x)) * up(x)).
type MLP struct {
	GateProj *nn.Linear
	UpProj   *nn.Linear
	DownProj *nn.Linear
}

func newMLP(c *Config, rng *ml.RNG) *MLP {
	return &MLP{
		GateProj: nn.NewLinear(rng, c.HiddenSize, c.IntermediateSize, false),
		UpProj:   nn.NewLinear(rng, c.HiddenSize, c.IntermediateSize, false),
		DownProj: nn.NewLinear(rng, c.IntermediateSize, c.HiddenSize, false),
	}
}

func (m *MLP) Forward(ctx *ml.Context, x *ml.Tensor) *ml.Tensor {
	gate := m.GateProj.Forward(ctx, x).SiLU(ctx)
	return m.DownProj.Forward(ctx, gate.Mul(ctx, m.UpProj.Forward(ctx, x)))
}

func (m *MLP) Collect(p *ml.Parameters, prefix string) {
	m.GateProj.Collect(p, prefix+".gate_proj")
	m.UpProj.Collect(p, prefix+".up_proj")
	m.DownProj.Collect(p, prefix+".down_proj")
}
