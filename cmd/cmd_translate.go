// cmd_translate.go - Translate Command
// Hauptfunktionen: TranslateHandler, completePrefix
package cmd

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/ml"
	"github.com/lingoforge/qwen2mt/model"
	"github.com/lingoforge/qwen2mt/prompt"
	"github.com/lingoforge/qwen2mt/sample"
	"github.com/lingoforge/qwen2mt/tokenizer"
)

// TranslateHandler - Liest stdin bis EOF und schreibt die Uebersetzung token-weise
func TranslateHandler(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		cmd.Print(cmd.UsageString())
		return nil
	}

	temperature, errTemp := cmd.Flags().GetFloat32("temperature")
	maxTokens, errMax := cmd.Flags().GetInt("max-tokens")
	seed, errSeed := cmd.Flags().GetUint64("seed")
	if err := errors.Join(errTemp, errMax, errSeed); err != nil {
		return fmt.Errorf("error retrieving flags: %w", err)
	}
	if seed == 0 {
		seed = envconfig.Seed()
	}

	m, err := model.Load(args[0])
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	tok, err := tokenizer.Load(args[0])
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	markers, err := prompt.ResolveMarkers(tok)
	if err != nil {
		return err
	}

	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ids := tok.Encode(prompt.Translate(string(input)), false)
	opts := sample.Options{
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stop:        append([]int32{markers.ImEnd, markers.EndOfText}, tok.EOS()...),
		RNG:         ml.NewRNG(seed),
	}

	w := cmd.OutOrStdout()
	var pending []byte
	for id := range sample.Stream(m, ids, opts) {
		pending = append(pending, tok.DecodeBytes([]int32{id})...)
		n := completePrefix(pending)
		if _, err := w.Write(pending[:n]); err != nil {
			return err
		}
		pending = append(pending[:0], pending[n:]...)
	}
	if _, err := w.Write(pending); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// completePrefix returns the length of b without a trailing incomplete UTF-8 sequence.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return i
			}
			break
		}
	}
	return len(b)
}
