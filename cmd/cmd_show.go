// cmd_show.go - Show Command und Modell-Info Anzeige
// Hauptfunktionen: ShowHandler, showInfo
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lingoforge/qwen2mt/model"
	"github.com/lingoforge/qwen2mt/tokenizer"
)

// ShowHandler - Zeigt Modell-Informationen an
func ShowHandler(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		cmd.Print(cmd.UsageString())
		return nil
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("error retrieving flags: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(args[0], "config.json"))
	if err != nil {
		return err
	}
	var config map[string]any
	if err := json.Unmarshal(raw, &config); err != nil {
		return fmt.Errorf("config.json: %w", err)
	}

	m, err := model.Load(args[0])
	if err != nil {
		return err
	}

	// the tokenizer is optional for show
	tok, _ := tokenizer.Load(args[0])

	return showInfo(cmd.OutOrStdout(), m, config, tok, verbose)
}

// showInfo - Gibt detaillierte Modell-Informationen aus
func showInfo(w io.Writer, m model.Model, config map[string]any, tok *tokenizer.Tokenizer, verbose bool) error {
	tableRender := func(header string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	params := m.Parameters()

	tableRender("Model", func() (rows [][]string) {
		rows = append(rows, []string{"", "architecture", m.ModelType()})
		rows = append(rows, []string{"", "parameters", formatParams(params.Count())})
		for _, k := range []string{"hidden_size", "num_hidden_layers", "num_attention_heads", "num_key_value_heads", "intermediate_size", "vocab_size"} {
			if v, ok := config[k]; ok {
				rows = append(rows, []string{"", strings.ReplaceAll(k, "_", " "), fmt.Sprint(v)})
			}
		}
		return rows
	})

	tableRender("Parameters", func() (rows [][]string) {
		for _, k := range slices.Sorted(maps.Keys(config)) {
			switch v := config[k].(type) {
			case string, float64, bool:
				rows = append(rows, []string{"", k, fmt.Sprint(v)})
			}
		}
		return rows
	})

	if tok != nil {
		tableRender("Tokenizer", func() (rows [][]string) {
			rows = append(rows, []string{"", "vocabulary", strconv.Itoa(tok.VocabSize())})
			if eos := tok.EOSToken(); eos != "" {
				rows = append(rows, []string{"", "eos token", eos})
			}
			return rows
		})
	}

	if verbose {
		tableRender("Tensors", func() (rows [][]string) {
			for name, t := range params.All() {
				rows = append(rows, []string{"", name, fmt.Sprint(t.Shape()), strconv.Itoa(t.Len())})
			}
			return rows
		})
	}

	return nil
}

// formatParams - Kompakte Darstellung einer Parameteranzahl (z.B. 494.0M)
func formatParams(n int) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return strconv.Itoa(n)
	}
}
