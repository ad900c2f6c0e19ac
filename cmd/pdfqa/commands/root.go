// Package commands defines all Cobra CLI commands for the pdfqa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/audit"
	"github.com/54b3r/pdfqa-go/internal/config"
	"github.com/54b3r/pdfqa-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pdfqa",
		Short: "Ask questions about a PDF",
		Long: `pdfqa extracts the text of a PDF, indexes it in a local vector index, and
answers questions about it with a language model, citing the source document.

The chat backend is selected with MODEL_PROVIDER (openai, azure, ollama,
gemini, ark) and the index backend with INDEX_BACKEND (sqlite, qdrant, redis).
Settings come from the environment, a .env file in the working directory, or
a YAML config file (~/.pdfqa/config.yaml). Environment variables win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load YAML config (env vars always override YAML values), then
			// build the logger so LOG_LEVEL from the file applies.
			path, err := config.Load(configPath, logging.New())
			if err != nil {
				return err
			}
			log := logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(cmd.Context(), log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.pdfqa/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewChatCmd(),
		NewServeCmd(),
		NewResetCmd(),
		NewVersionCmd(),
	)

	return root
}
