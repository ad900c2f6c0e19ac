package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/tracing"
)

// NewAskCmd constructs the `pdfqa ask` command, which indexes a PDF and
// answers a single question about it.
func NewAskCmd() *cobra.Command {
	var flags pdfFlags

	cmd := &cobra.Command{
		Use:   "ask --pdf FILE [question]",
		Short: "Answer one question about a PDF",
		Long: `Index a PDF and answer one natural-language question about it.

The answer is printed to stdout followed by the list of source documents the
retrieved passages came from. Progress goes to stderr.

Examples:
  pdfqa ask --pdf sample.pdf "What is the capital of France?"
  pdfqa ask --pdf report.pdf --reset "Summarise the main findings"
  MODEL_PROVIDER=ollama pdfqa ask --pdf notes.pdf "Who is the author?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			settings, err := loadSettings(ctx)
			if err != nil {
				return err
			}
			flush := tracing.Install(settings.Tracing)
			defer flush()

			p, closeIndex, err := buildFromFlags(ctx, settings, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeIndex()

			ans, err := p.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), ans)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.path, "pdf", "", "PDF file to index (required)")
	cmd.Flags().BoolVar(&flags.reset, "reset", false, "Clear the index before indexing the PDF")
	_ = cmd.MarkFlagRequired("pdf")

	return cmd
}
