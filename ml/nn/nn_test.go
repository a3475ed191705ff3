package nn

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/lingoforge/qwen2mt/ml"
)

func TestLinear(t *testing.T) {
	rng := ml.NewRNG(1)
	cases := []struct {
		name string
		bias bool
	}{
		{"with_bias", true},
		{"without_bias", false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLinear(rng, 4, 3, tt.bias)
			if (l.Bias != nil) != tt.bias {
				t.Fatalf("Bias vorhanden = %v, erwartet %v", l.Bias != nil, tt.bias)
			}
			bound := float32(math.Sqrt(1.0 / 4))
			for _, v := range l.Weight.Data() {
				if v < -bound || v > bound {
					t.Fatalf("Gewicht %v ausserhalb +-%v", v, bound)
				}
			}

			y := l.Forward(nil, ml.Zeros(2, 5, 4))
			if diff := cmp.Diff([]int{2, 5, 3}, y.Shape()); diff != "" {
				t.Errorf("Form (-erwartet +erhalten):\n%s", diff)
			}
			want := make([]float32, 3)
			if tt.bias {
				want = l.Bias.Floats()
			}
			if diff := cmp.Diff(want, y.Floats()[:3]); diff != "" {
				t.Errorf("Nulleingabe ergibt Bias (-erwartet +erhalten):\n%s", diff)
			}
		})
	}
}

func TestEmbeddingTied(t *testing.T) {
	e := &Embedding{Weight: ml.FromFloats([]float32{1, 0, 0, 1, 1, 1}, 3, 2)}
	h := e.Forward(nil, ml.FromInts([]int32{2, 0}, 1, 2))
	if diff := cmp.Diff([]float32{1, 1, 1, 0}, h.Floats()); diff != "" {
		t.Errorf("Forward (-erwartet +erhalten):\n%s", diff)
	}

	logits := e.AsLinear(nil, h)
	if diff := cmp.Diff([]float32{1, 1, 2, 1, 0, 1}, logits.Floats()); diff != "" {
		t.Errorf("AsLinear (-erwartet +erhalten):\n%s", diff)
	}
}

func TestRMSNormUnitScale(t *testing.T) {
	n := NewRMSNorm(4, 0)
	y := n.Forward(nil, ml.FromFloats([]float32{2, -2, 2, -2}, 1, 4))
	if diff := cmp.Diff([]float32{1, -1, 1, -1}, y.Floats(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("RMSNorm (-erwartet +erhalten):\n%s", diff)
	}
}

func TestCollect(t *testing.T) {
	p := ml.NewParameters()
	NewLinear(nil, 2, 3, true).Collect(p, "proj")
	NewLinear(nil, 3, 2, false).Collect(p, "out")
	NewRMSNorm(2, 1e-6).Collect(p, "norm")
	NewEmbedding(nil, 5, 2).Collect(p, "embed")

	want := []string{"proj.weight", "proj.bias", "out.weight", "norm.weight", "embed.weight"}
	if diff := cmp.Diff(want, p.Names()); diff != "" {
		t.Errorf("Namen (-erwartet +erhalten):\n%s", diff)
	}
	for name, tensor := range p.All() {
		if !tensor.RequiresGrad() {
			t.Errorf("%s ist nicht trainierbar", name)
		}
	}
}
