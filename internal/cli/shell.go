package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docindex/internal/tui"
)

var (
	shellTopK     int
	shellWindow   int
	shellDocument string
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Search the index interactively",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().IntVarP(&shellTopK, "top-k", "k", 0, "number of results (default from config)")
	shellCmd.Flags().IntVarP(&shellWindow, "window", "w", 0, "neighbor chunks on each side of a hit (default from config)")
	shellCmd.Flags().StringVar(&shellDocument, "document", "", "restrict the search to one document id")
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	opts := tui.Options{
		TopK:           cfg.Retrieve.TopK,
		NeighborWindow: cfg.Retrieve.NeighborWindow,
		DocumentID:     shellDocument,
		Timeout:        cfg.Server.RequestTimeout(),
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK = shellTopK
	}
	if cmd.Flags().Changed("window") {
		opts.NeighborWindow = shellWindow
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	stats, err := a.Engine.Stats(cmd.Context())
	if err != nil {
		return err
	}
	opts.Summary = fmt.Sprintf("%d documents, %d chunks in %s", stats.Documents, stats.Chunks, cfg.StorePath(GetRootDir()))

	return tui.Run(a.Engine, opts)
}
