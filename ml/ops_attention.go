// ops_attention.go - Skalierte Skalarprodukt-Attention
// Dieses Modul enthaelt die fusionierte Attention mit Grouped-Query-Unterstuetzung.
// Die Arbeit wird pro KV-Gruppe parallel verteilt.
package ml

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
)

func softmaxRow(row []float32) {
	m := float32(math.Inf(-1))
	for _, v := range row {
		m = max(m, v)
	}
	var sum float64
	for i, v := range row {
		e := math.Exp(float64(v - m))
		row[i] = float32(e)
		sum += e
	}
	for i := range row {
		row[i] = float32(float64(row[i]) / sum)
	}
}

// forEachGroup runs fn for every (batch, kv head) pair on a bounded pool.
func forEachGroup(batch, groups int, fn func(b, g int)) {
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for b := range batch {
		for g := range groups {
			eg.Go(func() error {
				fn(b, g)
				return nil
			})
		}
	}
	_ = eg.Wait()
}

// ScaledDotProductAttention computes softmax(scale * q kT + mask) v.
// q is [B, H, L, D], k and v are [B, KVH, S, D] with H a multiple of KVH;
// query head h reads kv head h / (H/KVH). mask is [L, S] or nil.
// k and v may be block views (see BlockView).
func ScaledDotProductAttention(ctx *Context, q, k, v *Tensor, scale float32, mask *Tensor) *Tensor {
	q.mustFloat("ScaledDotProductAttention")
	if q.Rank() != 4 || k.Rank() != 4 || v.Rank() != 4 {
		panic(fmt.Sprintf("ml: attention expects rank 4, got q %v k %v v %v", q.shape, k.shape, v.shape))
	}
	B, H, L, D := q.shape[0], q.shape[1], q.shape[2], q.shape[3]
	KVH, S := k.shape[1], k.shape[2]
	if k.shape[0] != B || v.shape[0] != B || k.shape[3] != D || v.shape[3] != D || v.shape[1] != KVH || v.shape[2] != S {
		panic(fmt.Sprintf("ml: attention shape mismatch q %v k %v v %v", q.shape, k.shape, v.shape))
	}
	if KVH == 0 || H%KVH != 0 {
		panic(fmt.Sprintf("ml: %d query heads cannot share %d kv heads", H, KVH))
	}
	if mask != nil && (mask.Rank() != 2 || mask.shape[0] != L || mask.shape[1] != S) {
		panic(fmt.Sprintf("ml: attention mask %v for %dx%d scores", mask.shape, L, S))
	}
	rep := H / KVH

	qOff := func(b, h int) int { return (b*H + h) * L * D }
	kOff := func(b, g int) int { return (b*KVH + g) * S * D }
	pOff := func(b, h int) int { return (b*H + h) * L * S }

	probs := make([]float32, B*H*L*S)
	out := Zeros(B, H, L, D)
	forEachGroup(B, KVH, func(b, g int) {
		kk, vv := k.block(b*KVH+g), v.block(b*KVH+g)
		for h := g * rep; h < (g+1)*rep; h++ {
			p := probs[pOff(b, h) : pOff(b, h)+L*S]
			gemm(blas.NoTrans, blas.Trans, scale, L, D, q.data[qOff(b, h):qOff(b, h)+L*D], S, D, kk, 0, p)
			for l := range L {
				row := p[l*S : (l+1)*S]
				if mask != nil {
					for s, m := range mask.data[l*S : (l+1)*S] {
						row[s] += m
					}
				}
				softmaxRow(row)
			}
			gemm(blas.NoTrans, blas.NoTrans, 1, L, S, p, S, D, vv, 0, out.data[qOff(b, h):qOff(b, h)+L*D])
		}
	})

	return ctx.track(out, func() {
		var gq, gk, gv []float32
		if q.requiresGrad {
			gq = q.gradBuf()
		}
		if k.requiresGrad {
			gk = k.gradBuf()
		}
		if v.requiresGrad {
			gv = v.gradBuf()
		}

		forEachGroup(B, KVH, func(b, g int) {
			kk, vv := k.block(b*KVH+g), v.block(b*KVH+g)
			ds := make([]float32, L*S)
			for h := g * rep; h < (g+1)*rep; h++ {
				p := probs[pOff(b, h) : pOff(b, h)+L*S]
				do := out.grad[qOff(b, h) : qOff(b, h)+L*D]
				if gv != nil {
					gemm(blas.Trans, blas.NoTrans, 1, L, S, p, L, D, do, 1, gv[kOff(b, g):kOff(b, g)+S*D])
				}
				if gq == nil && gk == nil {
					continue
				}

				// dS = P * (dP - rowsum(P * dP)) with dP = dO vT
				gemm(blas.NoTrans, blas.Trans, 1, L, D, do, S, D, vv, 0, ds)
				for l := range L {
					pr, dr := p[l*S:(l+1)*S], ds[l*S:(l+1)*S]
					sum := dot(pr, dr)
					for s := range pr {
						dr[s] = pr[s] * (dr[s] - sum)
					}
				}
				if gq != nil {
					gemm(blas.NoTrans, blas.NoTrans, scale, L, S, ds, S, D, kk, 1, gq[qOff(b, h):qOff(b, h)+L*D])
				}
				if gk != nil {
					gemm(blas.Trans, blas.NoTrans, scale, L, S, ds, L, D, q.data[qOff(b, h):qOff(b, h)+L*D], 1, gk[kOff(b, g):kOff(b, g)+S*D])
				}
			}
		})
	}, q, k, v)
}
