package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index counts and the embedding profile",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	stats, err := a.Engine.Stats(cmd.Context())
	if err != nil {
		return err
	}
	profile := a.Engine.Profile(a.Config.Store.Distance)

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"store":   a.StorePath,
			"driver":  a.Config.Store.Driver,
			"profile": profile,
			"counts":  stats,
		})
	}

	fmt.Fprintf(out, "Index:      %s (%s)\n", a.StorePath, a.Config.Store.Driver)
	fmt.Fprintf(out, "Model:      %s (dimension %d, %s distance)\n", profile.Model, profile.Dimension, profile.Distance)
	fmt.Fprintf(out, "Documents:  %d\n", stats.Documents)
	fmt.Fprintf(out, "Chunks:     %d\n", stats.Chunks)
	fmt.Fprintf(out, "Embeddings: %d\n", stats.Embeddings)
	return nil
}
