// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newTrainCmd, newTranslateCmd, newShowCmd
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/train"
)

// newTrainCmd - Erstellt den train Command
func newTrainCmd() *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train MODEL_DIR DATASET_GLOB...",
		Short: "Fine-tune a model on parquet translation pairs",
		RunE:  TrainHandler,
	}

	opts := train.DefaultOptions()
	out := train.DefaultOutput()

	trainCmd.Flags().Int("batch-size", opts.BatchSize, "Examples per optimizer step")
	trainCmd.Flags().Int("context-size", opts.ContextSize, "Fixed context length of an example")
	trainCmd.Flags().Float32("learning-rate", opts.LearningRate, "AdamW learning rate")
	trainCmd.Flags().Float32("weight-decay", opts.WeightDecay, "AdamW weight decay")
	trainCmd.Flags().Int("epochs", opts.Epochs, "Passes over the dataset")
	trainCmd.Flags().Int64("max-rows", opts.MaxRows, "Stop after this many rows (0 = all)")
	trainCmd.Flags().Int("chunk-size", opts.ChunkSize, "Rows read and shuffled together")
	trainCmd.Flags().Uint64("seed", 0, "Shuffle seed (0 = QWEN2MT_SEED or time based)")
	trainCmd.Flags().StringP("output", "o", out.Path, "Path of the fine-tuned weights")
	trainCmd.Flags().String("save-dtype", envconfig.SaveDType(), "Data type of saved weights (f32, f16, bf16)")

	return trainCmd
}

// newTranslateCmd - Erstellt den translate Command
func newTranslateCmd() *cobra.Command {
	translateCmd := &cobra.Command{
		Use:   "translate MODEL_DIR",
		Short: "Translate text read from stdin into English",
		RunE:  TranslateHandler,
	}

	translateCmd.Flags().Float32("temperature", envconfig.Temperature(), "Sampling temperature (0 = greedy)")
	translateCmd.Flags().Int("max-tokens", int(envconfig.MaxTokens()), "Maximum number of generated tokens")
	translateCmd.Flags().Uint64("seed", 0, "Sampling seed (0 = QWEN2MT_SEED or time based)")

	return translateCmd
}

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show MODEL_DIR",
		Short: "Show model configuration and parameters",
		RunE:  ShowHandler,
	}

	showCmd.Flags().BoolP("verbose", "v", false, "List every tensor")

	return showCmd
}
