package cli

import (
	"context"

	"github.com/spf13/cobra"

	"docindex/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the retrieval API until interrupted:

  GET  /          banner
  GET  /health    liveness and index counts
  POST /embed     {"document_text", "chunk_size", "chunk_overlap"}
  POST /search    {"document_id", "query", "top_k", "neighbor_window"}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		GetConfig().Server.Addr = serveAddr
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return server.New(a.Engine, a.Config, a.Logger).Run(cmd.Context())
}
