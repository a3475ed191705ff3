// ops_matmul.go - Matrixmultiplikation ueber gonum BLAS
// Dieses Modul enthaelt MatmulT (x mal transponierte Gewichte) und den gemm-Helfer.
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

func vector(s []float32) blas32.Vector {
	return blas32.Vector{N: len(s), Inc: 1, Data: s}
}

// dot returns the inner product of two equally long slices.
func dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return blas32.Dot(vector(a), vector(b))
}

func general(rows, cols int, data []float32) blas32.General {
	return blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: data}
}

// gemm computes c = alpha * op(a) * op(b) + beta * c where a is stored as
// ar x ac and b as br x bc.
func gemm(tA, tB blas.Transpose, alpha float32, ar, ac int, a []float32, br, bc int, b []float32, beta float32, c []float32) {
	if ar == 0 || ac == 0 || br == 0 || bc == 0 {
		return
	}
	m, n := ar, bc
	if tA == blas.Trans {
		m = ac
	}
	if tB == blas.Trans {
		n = br
	}
	blas32.Gemm(tA, tB, alpha, general(ar, ac, a), general(br, bc, b), beta, general(m, n, c))
}

// MatmulT multiplies the last axis of t ([..., K]) with the rows of w ([N, K])
// and returns [..., N]. This is the layout of linear layer weights.
func (t *Tensor) MatmulT(ctx *Context, w *Tensor) *Tensor {
	t.mustFloat("MatmulT")
	w.mustFloat("MatmulT")
	if w.Rank() != 2 || t.Rank() < 1 || t.Dim(-1) != w.Dim(1) {
		panic(fmt.Sprintf("ml: MatmulT shape mismatch %v x %vT", t.shape, w.shape))
	}

	k, n := w.Dim(1), w.Dim(0)
	m := len(t.data) / k
	shape := append(t.Shape()[:t.Rank()-1], n)
	out := Zeros(shape...)
	gemm(blas.NoTrans, blas.Trans, 1, m, k, t.data, n, k, w.data, 0, out.data)

	return ctx.track(out, func() {
		if t.requiresGrad {
			gemm(blas.NoTrans, blas.NoTrans, 1, m, n, out.grad, n, k, w.data, 1, t.gradBuf())
		}
		if w.requiresGrad {
			gemm(blas.Trans, blas.NoTrans, 1, m, n, out.grad, m, k, t.data, 1, w.gradBuf())
		}
	}, t, w)
}
