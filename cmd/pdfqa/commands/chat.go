package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/qa"
	"github.com/54b3r/pdfqa-go/internal/tracing"
)

// NewChatCmd constructs the `pdfqa chat` command, which indexes a PDF once
// and then answers every question read from stdin.
func NewChatCmd() *cobra.Command {
	var flags pdfFlags

	cmd := &cobra.Command{
		Use:   "chat --pdf FILE",
		Short: "Ask questions about a PDF interactively",
		Long: `Index a PDF, then answer each line read from stdin until EOF or "exit".

Every question is answered independently; earlier questions and answers are
not sent to the model. A failed question is reported and the session goes on.

Examples:
  pdfqa chat --pdf handbook.pdf
  printf 'Who wrote it?\nWhen?\n' | pdfqa chat --pdf handbook.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			return chatLoop(ctx, p, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&flags.path, "pdf", "", "PDF file to index (required)")
	cmd.Flags().BoolVar(&flags.reset, "reset", false, "Clear the index before indexing the PDF")
	_ = cmd.MarkFlagRequired("pdf")

	return cmd
}

// asker is the part of *qa.Pipeline the chat loop needs.
type asker interface {
	Ask(ctx context.Context, question string) (qa.Answer, error)
}

// chatLoop answers each non-blank line of in until EOF, "exit" or "quit".
// Failed questions are reported on errOut and the loop continues.
func chatLoop(ctx context.Context, p asker, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(question) {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			return nil
		}

		ans, err := p.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(errOut, "error:", UserMessage(err))
		} else {
			printAnswer(out, ans)
		}
		fmt.Fprint(out, "\n> ")

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
