// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lingoforge/qwen2mt/envconfig"
	"github.com/lingoforge/qwen2mt/logutil"
	_ "github.com/lingoforge/qwen2mt/model/models"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "qwen2mt",
		Short:         "Fine-tune Qwen2 models for translation and run them",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	// Commands erstellen
	trainCmd := newTrainCmd()
	translateCmd := newTranslateCmd()
	showCmd := newShowCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{trainCmd, translateCmd, showCmd} {
		switch cmd {
		case trainCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["QWEN2MT_DEBUG"],
				envVars["QWEN2MT_BATCH_SIZE"],
				envVars["QWEN2MT_CONTEXT_SIZE"],
				envVars["QWEN2MT_LEARNING_RATE"],
				envVars["QWEN2MT_WEIGHT_DECAY"],
				envVars["QWEN2MT_EPOCHS"],
				envVars["QWEN2MT_MAX_ROWS"],
				envVars["QWEN2MT_CHUNK_SIZE"],
				envVars["QWEN2MT_SEED"],
				envVars["QWEN2MT_OUTPUT"],
				envVars["QWEN2MT_SAVE_DTYPE"],
			})
		case translateCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["QWEN2MT_DEBUG"],
				envVars["QWEN2MT_TEMPERATURE"],
				envVars["QWEN2MT_MAX_TOKENS"],
				envVars["QWEN2MT_SEED"],
			})
		default:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["QWEN2MT_DEBUG"]})
		}
	}

	rootCmd.AddCommand(trainCmd, translateCmd, showCmd)

	return rootCmd
}
