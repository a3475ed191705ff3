// cmd_train.go - Train Command
// Hauptfunktionen: TrainHandler, trainOptions
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/train"
)

// TrainHandler - Fuehrt die Feinabstimmung aus
func TrainHandler(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		cmd.Print(cmd.UsageString())
		return nil
	}

	opts, out, err := trainOptions(cmd)
	if err != nil {
		return err
	}

	return train.FineTune(cmd.Context(), args[0], args[1:], opts, out, cmd.OutOrStdout())
}

// trainOptions - Liest die Flags; nicht gesetzte Flags tragen die Werte aus der Umgebung
func trainOptions(cmd *cobra.Command) (train.Options, train.Output, error) {
	flags := cmd.Flags()

	batchSize, errBatch := flags.GetInt("batch-size")
	contextSize, errContext := flags.GetInt("context-size")
	lr, errLR := flags.GetFloat32("learning-rate")
	wd, errWD := flags.GetFloat32("weight-decay")
	epochs, errEpochs := flags.GetInt("epochs")
	maxRows, errRows := flags.GetInt64("max-rows")
	chunkSize, errChunk := flags.GetInt("chunk-size")
	seed, errSeed := flags.GetUint64("seed")
	output, errOutput := flags.GetString("output")
	dtype, errDType := flags.GetString("save-dtype")

	if err := errors.Join(errBatch, errContext, errLR, errWD, errEpochs, errRows, errChunk, errSeed, errOutput, errDType); err != nil {
		return train.Options{}, train.Output{}, fmt.Errorf("error retrieving flags: %w", err)
	}

	switch {
	case batchSize <= 0:
		return train.Options{}, train.Output{}, fmt.Errorf("batch size must be positive, got %d", batchSize)
	case contextSize <= 0:
		return train.Options{}, train.Output{}, fmt.Errorf("context size must be positive, got %d", contextSize)
	}

	if seed == 0 {
		seed = envconfig.Seed()
	}

	d := ml.ParseDType(dtype)
	switch d {
	case ml.DTypeF32, ml.DTypeF16, ml.DTypeBF16:
	default:
		return train.Options{}, train.Output{}, fmt.Errorf("unsupported save dtype %q", dtype)
	}

	opts := train.Options{
		BatchSize:    batchSize,
		ContextSize:  contextSize,
		LearningRate: lr,
		WeightDecay:  wd,
		Epochs:       epochs,
		MaxRows:      maxRows,
		ChunkSize:    chunkSize,
		Seed:         seed,
	}
	return opts, train.Output{Path: output, DType: d}, nil
}
