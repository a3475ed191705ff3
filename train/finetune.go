// finetune.go - Kompletter Feinabstimmungs-Lauf
//
// Enthält:
// - FineTune: Modell und Tokenizer laden, Dataset oeffnen, trainieren, speichern
// - eosID: EOS-Token fuer das Auffuellen der Beispiele

package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lingoforge/qwen2mt/dataset"
	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/model"
	"github.com/lingoforge/qwen2mt/prompt"
	"github.com/lingoforge/qwen2mt/tokenizer"
)

var ErrNoEOS = errors.New("tokenizer has no end-of-sequence token")

// Output is where and how the trained weights are written.
type Output struct {
	Path  string
	DType ml.DType
}

// DefaultOutput reads the output settings from the environment.
func DefaultOutput() Output {
	return Output{Path: envconfig.Output(), DType: ml.ParseDType(envconfig.SaveDType())}
}

// FineTune trains the model in modelDir on the parquet files matched by globs
// and saves the weights to out. Progress lines go to w. An interrupted run
// still saves the weights reached so far.
func FineTune(ctx context.Context, modelDir string, globs []string, opts Options, out Output, w io.Writer) error {
	logger := slog.Default().With("run", uuid.NewString())

	m, err := model.Load(modelDir)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	tok, err := tokenizer.Load(modelDir)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	if _, err := prompt.ResolveMarkers(tok); err != nil {
		return err
	}
	eos, err := eosID(tok)
	if err != nil {
		return err
	}

	params := m.Parameters()
	fmt.Fprintf(w, "Fine tuning %s with %.1fM parameters.\n", m.ModelType(), float64(params.Count())/(1024*1024))

	ds, err := dataset.Open(ctx, dataset.Options{ChunkSize: opts.ChunkSize, RNG: ml.NewRNG(opts.Seed)}, globs...)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer ds.Close()

	epochs := max(opts.Epochs, 1)
	total := ds.NumRows() * int64(epochs)
	if opts.MaxRows > 0 {
		total = min(total, opts.MaxRows)
	}
	fmt.Fprintln(w, "Total rows of data to train:", total)
	logger.Info("starting training", "model", m.ModelType(), "params", params.Count(), "rows", total,
		"batch", opts.BatchSize, "context", opts.ContextSize, "lr", opts.LearningRate, "epochs", epochs)

	tr := NewTrainer(m, opts)
	tr.Logger = logger
	tr.OnReport = func(r Report) { fmt.Fprintln(w, r) }

	batches := Batches(Epochs(ctx, ds, epochs), tok, eos, opts.ContextSize, opts.BatchSize)
	if err := tr.Run(ctx, batches, total); errors.Is(err, context.Canceled) {
		logger.Warn("training interrupted", "steps", tr.Optimizer.Steps())
	} else if err != nil {
		return err
	}

	fmt.Fprintf(w, "Save weights to %s.\n", out.Path)
	return model.SaveWeights(m, out.Path, out.DType)
}

// eosID looks up the configured EOS token, falling back to <|endoftext|>.
func eosID(tok *tokenizer.Tokenizer) (int32, error) {
	s := tok.EOSToken()
	if s == "" {
		s = prompt.EndOfText
	}
	if id, ok := tok.ID(s); ok {
		return id, nil
	}
	ids := tok.Encode(s, false)
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoEOS, s)
	}
	return ids[0], nil
}
