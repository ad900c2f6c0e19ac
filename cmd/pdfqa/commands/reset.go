package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/config"
)

// NewResetCmd constructs the `pdfqa reset` command, which deletes every
// chunk from the configured index.
func NewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove every indexed chunk",
		Long: `Remove every chunk from the configured index.

The index persists across runs, so answers can draw on PDFs indexed earlier.
Run reset (or pass --reset to ask/chat) to start from an empty index. No model
credentials are needed.

Examples:
  pdfqa reset
  INDEX_BACKEND=qdrant pdfqa reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := config.FromEnv()
			if err != nil {
				return err
			}
			st, err := openIndex(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			n, err := st.Count(ctx)
			if err != nil {
				return fmt.Errorf("reset: count chunks: %w", err)
			}
			if err := st.Reset(ctx); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d chunks from the %s index\n", n, st.Name())
			return nil
		},
	}
}
