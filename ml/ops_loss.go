// ops_loss.go - Einbettung, Kreuzentropie und Reduktionen
// Dieses Modul enthaelt:
// - Rows: Zeilen einer Tabelle per Token-ID auswaehlen
// - CrossEntropy: mittlere Kreuzentropie ueber alle Positionen
// - Mean: Mittelwert aller Elemente
package ml

import (
	"fmt"
	"math"
)

// Rows gathers rows of the table t ([V, D]) for every id and returns [ids..., D].
func (t *Tensor) Rows(ctx *Context, ids *Tensor) *Tensor {
	t.mustFloat("Rows")
	if ids.dtype != DTypeI32 {
		panic(fmt.Sprintf("ml: Rows expects integer ids, got %s", ids))
	}
	if t.Rank() != 2 {
		panic(fmt.Sprintf("ml: Rows expects a table, got %v", t.shape))
	}
	vocab, d := t.shape[0], t.shape[1]
	for _, id := range ids.ints {
		if id < 0 || int(id) >= vocab {
			panic(fmt.Sprintf("ml: id %d outside table of %d rows", id, vocab))
		}
	}

	out := Zeros(append(ids.Shape(), d)...)
	for i, id := range ids.ints {
		copy(out.data[i*d:(i+1)*d], t.data[int(id)*d:(int(id)+1)*d])
	}

	return ctx.track(out, func() {
		g := t.gradBuf()
		for i, id := range ids.ints {
			row := g[int(id)*d : (int(id)+1)*d]
			for j, v := range out.grad[i*d : (i+1)*d] {
				row[j] += v
			}
		}
	}, t)
}

// CrossEntropy returns the mean negative log likelihood of targets under the
// logits t ([..., V]). targets holds one class id per row of t.
func (t *Tensor) CrossEntropy(ctx *Context, targets *Tensor) *Tensor {
	t.mustFloat("CrossEntropy")
	if targets.dtype != DTypeI32 {
		panic(fmt.Sprintf("ml: CrossEntropy expects integer targets, got %s", targets))
	}
	v := t.Dim(-1)
	rows := len(t.data) / v
	if targets.Len() != rows {
		panic(fmt.Sprintf("ml: %d targets for %d rows of logits", targets.Len(), rows))
	}

	lse := make([]float64, rows)
	var total float64
	for r := range rows {
		x := t.data[r*v : (r+1)*v]
		m := math.Inf(-1)
		for _, e := range x {
			m = max(m, float64(e))
		}
		var sum float64
		for _, e := range x {
			sum += math.Exp(float64(e) - m)
		}
		lse[r] = m + math.Log(sum)

		target := int(targets.ints[r])
		if target < 0 || target >= v {
			panic(fmt.Sprintf("ml: target %d outside %d classes", target, v))
		}
		total += lse[r] - float64(x[target])
	}

	out := FromFloats([]float32{float32(total / float64(rows))})
	return ctx.track(out, func() {
		g := t.gradBuf()
		scale := float64(out.grad[0]) / float64(rows)
		for r := range rows {
			x := t.data[r*v : (r+1)*v]
			gr := g[r*v : (r+1)*v]
			for j, e := range x {
				gr[j] += float32(math.Exp(float64(e)-lse[r]) * scale)
			}
			gr[targets.ints[r]] -= float32(scale)
		}
	}, t)
}

// Mean returns the mean of all elements as a scalar.
func (t *Tensor) Mean(ctx *Context) *Tensor {
	t.mustFloat("Mean")
	var sum float64
	for _, v := range t.data {
		sum += float64(v)
	}
	n := len(t.data)
	out := FromFloats([]float32{float32(sum / float64(max(n, 1)))})

	return ctx.track(out, func() {
		g := t.gradBuf()
		d := out.grad[0] / float32(n)
		for i := range g {
			g[i] += d
		}
	}, t)
}
