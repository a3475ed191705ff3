// train.go - Trainingsschleife
//
// Enthält:
// - Options: Hyperparameter eines Trainingslaufs
// - Trainer: Modell, Optimierer und Berichtswesen
// - Step: Loss, Gradienten und ein Optimiererschritt fuer einen Batch
// - Run: Schleife ueber alle Batches mit periodischen Berichten

package train

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/logutil"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/model"
	"github.com/lingoforge/qwen2mt/optim"
)

// Options are the hyperparameters of a training run.
type Options struct {
	BatchSize    int
	ContextSize  int
	LearningRate float32
	WeightDecay  float32
	Epochs       int
	// MaxRows stops training once more rows were reported. Zero means all rows.
	MaxRows   int64
	ChunkSize int
	Seed      uint64
}

// DefaultOptions reads the hyperparameters from the environment.
func DefaultOptions() Options {
	return Options{
		BatchSize:    int(envconfig.BatchSize()),
		ContextSize:  int(envconfig.ContextSize()),
		LearningRate: envconfig.LearningRate(),
		WeightDecay:  envconfig.WeightDecay(),
		Epochs:       int(envconfig.Epochs()),
		MaxRows:      int64(envconfig.MaxRows()),
		ChunkSize:    int(envconfig.ChunkSize()),
		Seed:         envconfig.Seed(),
	}
}

// Trainer updates a model batch by batch.
type Trainer struct {
	Model     model.Model
	Optimizer *optim.AdamW
	Options   Options

	Logger *slog.Logger
	// OnReport is called with every report after it is logged.
	OnReport func(Report)

	params *ml.Parameters
}

func NewTrainer(m model.Model, opts Options) *Trainer {
	return &Trainer{
		Model:     m,
		Optimizer: optim.NewAdamW(opts.LearningRate, opts.WeightDecay),
		Options:   opts,
		Logger:    slog.Default(),
		params:    m.Parameters(),
	}
}

// Step runs forward and backward passes on b and applies one optimizer update.
// Every intermediate tensor is released before Step returns.
func (t *Trainer) Step(b Batch) (float32, error) {
	ctx := ml.NewContext(ml.WithGrad())
	defer ctx.Close()

	logits := t.Model.Forward(ctx, b.Inputs, nil)
	loss := logits.CrossEntropy(ctx, b.Targets)
	if err := ctx.Backward(loss); err != nil {
		return 0, err
	}
	if err := t.Optimizer.Update(t.params); err != nil {
		return 0, err
	}
	return loss.Item(), nil
}

// Run trains on every batch. total is the expected number of rows and only
// feeds the ETA. Run returns ctx.Err() when canceled between steps.
func (t *Trainer) Run(ctx context.Context, batches iter.Seq2[Batch, error], total int64) error {
	interval := ReportInterval(t.Options.BatchSize)

	var (
		n       int
		losses  []float32
		lastRow int64
		start   = time.Now()
	)

	for b, err := range batches {
		if err != nil {
			return err
		}

		loss, err := t.Step(b)
		if err != nil {
			return err
		}
		losses = append(losses, loss)
		n++
		logutil.TraceContext(ctx, "training step", "iter", n, "row", b.Row, "loss", loss)

		if n%interval == 0 {
			now := time.Now()
			r := newReport(n, b.Row, lastRow, total, losses, now.Sub(start))
			t.Logger.Info("training progress", "report", r)
			if t.OnReport != nil {
				t.OnReport(r)
			}
			start, losses, lastRow = now, losses[:0], b.Row
		}

		if t.Options.MaxRows > 0 && lastRow > t.Options.MaxRows {
			t.Logger.Debug("row limit reached", "rows", lastRow, "limit", t.Options.MaxRows)
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
