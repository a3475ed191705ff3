// batch.go - Trainingsbeispiele und Batches
//
// Enthält:
// - Example: Verschiebt Token zu Eingabe/Ziel und fuellt mit EOS auf
// - Batches: Liest Zeilen, tokenisiert und buendelt sie zu Batches
// - Epochs: Wiederholt die Zeilen eines Datasets

package train

import (
	"context"
	"iter"
	"log/slog"

	"github.com/lingoforge/qwen2mt/dataset"
	"github.com/lingoforge/qwen2mt/logutil"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/prompt"
)

// Encoder turns text into token ids.
type Encoder interface {
	Encode(s string, addBOS bool) []int32
}

// Batch holds inputs and targets of shape [batch, context].
type Batch struct {
	// Row counts every row read so far, skipped ones included.
	Row     int64
	Inputs  *ml.Tensor
	Targets *ml.Tensor
}

// Example shifts tokens into inputs and next-token targets, both right-padded
// with eos to contextSize. Sequences with more than contextSize predictions
// are rejected rather than truncated.
func Example(tokens []int32, contextSize int, eos int32) (inputs, targets []int32, ok bool) {
	n := len(tokens) - 1
	if n < 0 || n > contextSize {
		return nil, nil, false
	}

	inputs = make([]int32, contextSize)
	targets = make([]int32, contextSize)
	copy(inputs, tokens[:n])
	copy(targets, tokens[1:])
	for i := n; i < contextSize; i++ {
		inputs[i] = eos
		targets[i] = eos
	}
	return inputs, targets, true
}

// Batches encodes every row as a training prompt and yields a batch each time
// batchSize examples have accumulated. A trailing partial batch is dropped.
func Batches(rows iter.Seq2[dataset.Row, error], enc Encoder, eos int32, contextSize, batchSize int) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		var (
			row     int64
			xs, ys  []int32
			pending int
		)

		for r, err := range rows {
			if err != nil {
				yield(Batch{}, err)
				return
			}
			row++

			tokens := enc.Encode(prompt.Training(r.Source, r.Target), false)
			x, y, ok := Example(tokens, contextSize, eos)
			if !ok {
				logutil.Trace("skipping long example", "row", row, "tokens", len(tokens), "context", contextSize)
				continue
			}
			xs = append(xs, x...)
			ys = append(ys, y...)
			pending++

			if pending < batchSize {
				continue
			}

			b := Batch{
				Row:     row,
				Inputs:  ml.FromInts(xs, batchSize, contextSize),
				Targets: ml.FromInts(ys, batchSize, contextSize),
			}
			// tensors keep the old backing arrays
			xs, ys, pending = nil, nil, 0
			if !yield(b, nil) {
				return
			}
		}
		if pending > 0 {
			slog.Debug("dropping partial batch", "examples", pending)
		}
	}
}

// Epochs repeats the rows of d n times. Every pass reshuffles.
func Epochs(ctx context.Context, d *dataset.Dataset, n int) iter.Seq2[dataset.Row, error] {
	return func(yield func(dataset.Row, error) bool) {
		for epoch := range n {
			slog.Debug("starting epoch", "epoch", epoch+1, "of", n)
			for r, err := range d.Rows(ctx) {
				if !yield(r, err) || err != nil {
					return
				}
			}
		}
	}
}
