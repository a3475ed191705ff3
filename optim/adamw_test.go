package optim

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/lingoforge/qwen2mt/ml"
)

func TestAdamWSingleStep(t *testing.T) {
	p := ml.NewParameter([]float32{1, -2}, 2)
	frozen := ml.NewParameter([]float32{5}, 1)

	params := ml.NewParameters()
	params.Set("p", p)
	params.Set("frozen", frozen)

	ctx := ml.NewContext(ml.WithGrad())
	// d/dp sum(p * [0.5, 0.5]) / 2 = 0.25 each
	loss := p.Mul(ctx, ml.FromFloats([]float32{0.5, 0.5}, 2)).Mean(ctx)
	require.NoError(t, ctx.Backward(loss))
	ctx.Close()

	opt := NewAdamW(0.1, 0.01)
	require.NoError(t, opt.Update(params))

	want := make([]float32, 2)
	for i, w := range []float64{1, -2} {
		g := 0.25
		m := (1 - Beta1) * g
		v := (1 - Beta2) * g * g
		want[i] = float32(w*(1-0.1*0.01) - 0.1*m/(math.Sqrt(v)+Eps))
	}

	if diff := cmp.Diff(want, p.Floats(), cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("Parameter nach einem Schritt (-erwartet +erhalten):\n%s", diff)
	}
	if got := frozen.Floats()[0]; got != 5 {
		t.Errorf("Parameter ohne Gradient = %v, erwartet 5", got)
	}
	if p.Grad() != nil {
		t.Error("Gradienten wurden nicht zurückgesetzt")
	}
	if opt.Steps() != 1 {
		t.Errorf("Steps() = %d, erwartet 1", opt.Steps())
	}
}

func TestAdamWMinimizesQuadratic(t *testing.T) {
	x := ml.NewParameter([]float32{0}, 1)
	params := ml.NewParameters()
	params.Set("x", x)

	opt := NewAdamW(0.05, 0)
	for range 400 {
		ctx := ml.NewContext(ml.WithGrad())
		d := x.Sub(ctx, ml.Full(3, 1))
		require.NoError(t, ctx.Backward(d.Mul(ctx, d).Mean(ctx)))
		ctx.Close()
		require.NoError(t, opt.Update(params))
	}

	if got := x.Floats()[0]; math.Abs(float64(got)-3) > 0.1 {
		t.Errorf("x = %v, erwartet etwa 3", got)
	}
}

func TestAdamWWeightDecayWithoutGradientSignal(t *testing.T) {
	p := ml.NewParameter([]float32{2}, 1)
	params := ml.NewParameters()
	params.Set("p", p)

	// zero gradient: only the decay moves the weight
	ctx := ml.NewContext(ml.WithGrad())
	require.NoError(t, ctx.Backward(p.Mul(ctx, ml.Zeros(1)).Mean(ctx)))
	ctx.Close()

	opt := NewAdamW(0.5, 0.1)
	require.NoError(t, opt.Update(params))

	if got := p.Floats()[0]; math.Abs(float64(got)-1.9) > 1e-6 {
		t.Errorf("p = %v, erwartet 1.9", got)
	}
}
