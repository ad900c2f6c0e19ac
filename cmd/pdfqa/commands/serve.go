package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfqa-go/internal/config"
	"github.com/54b3r/pdfqa-go/internal/embedder"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/qa"
	"github.com/54b3r/pdfqa-go/internal/server"
	"github.com/54b3r/pdfqa-go/internal/store"
	"github.com/54b3r/pdfqa-go/internal/tracing"
)

// NewServeCmd constructs the `pdfqa serve` command, which exposes upload and
// question endpoints over HTTP.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pdfqa HTTP server",
		Long: `Start the pdfqa HTTP server.

POST a PDF to /api/documents as the multipart field "file", then POST
{"question": "..."} to /api/ask. Each upload replaces the document questions
are answered from. DELETE /api/index clears the index. /api/health,
/api/ready and /metrics serve liveness, readiness and Prometheus metrics.

Examples:
  pdfqa serve
  pdfqa serve --port 9090
  MODEL_PROVIDER=ollama INDEX_BACKEND=qdrant pdfqa serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			settings, err := loadSettings(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}

			flush := tracing.Install(settings.Tracing)
			defer flush()

			st, err := openIndex(ctx, settings)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = st.Close() }()
			if n, err := st.Count(ctx); err == nil {
				log.Info("index opened", slog.String("backend", st.Name()), slog.Int("chunks", n))
			}

			factory := func(ctx context.Context) (server.Pipeline, error) {
				p, err := qa.NewFromConfig(ctx, settings, st, nil)
				if err != nil {
					return nil, err
				}
				return p, nil
			}

			srv, err := server.New(factory, st, &server.Config{
				Host:    settings.Host,
				Port:    settings.Port,
				Logger:  log,
				Pingers: buildPingers(ctx, settings, st),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Host address to bind to (overrides HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "TCP port to listen on (overrides PORT)")

	return cmd
}

// buildPingers assembles the readiness probes: the index, the chat backend
// when it has a health endpoint, and the embedder when it can be pinged.
func buildPingers(ctx context.Context, s *config.Settings, st store.Store) []server.Pinger {
	log := logging.FromContext(ctx)
	pingers := []server.Pinger{st}

	if llm := server.NewLLMPinger(&s.Provider); llm != nil {
		pingers = append(pingers, llm)
	}

	emb, err := embedder.New(ctx, &s.Embedder)
	if err != nil {
		log.Warn("readiness: embedder probe unavailable", slog.Any("error", err))
		return pingers
	}
	if p, ok := emb.(server.Pinger); ok {
		pingers = append(pingers, p)
	}
	return pingers
}
