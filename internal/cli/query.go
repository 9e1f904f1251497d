package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docindex/internal/domain"
)

var (
	queryText     string
	queryTopK     int
	queryWindow   int
	queryDocument string
	queryRequire  bool
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the index",
	Long: `Embed the query and return the closest chunks by ascending distance.
With --window N every hit is widened to the N chunks on each side of it.

Examples:
  docindex query "what does a king eat for breakfast" -k 2
  docindex query -q "sky" --document 1b9d... --window 1 --json`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (or pass it as arguments)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().IntVarP(&queryWindow, "window", "w", 0, "neighbor chunks on each side of a hit (default from config)")
	queryCmd.Flags().StringVar(&queryDocument, "document", "", "restrict the search to one document id")
	queryCmd.Flags().BoolVar(&queryRequire, "require-document", false, "fail when --document does not exist")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	text := queryText
	if text == "" {
		text = strings.Join(args, " ")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("a query is required: pass it as arguments or with -q")
	}

	topK := cfg.Retrieve.TopK
	if cmd.Flags().Changed("top-k") {
		topK = queryTopK
	}
	window := cfg.Retrieve.NeighborWindow
	if cmd.Flags().Changed("window") {
		window = queryWindow
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	results, err := a.Engine.Query(cmd.Context(), domain.QueryRequest{
		Query:           text,
		TopK:            topK,
		DocumentID:      queryDocument,
		NeighborWindow:  window,
		RequireDocument: queryRequire,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		var body any = results
		if window > 0 {
			body = domain.Texts(results)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(results), text)
	for i, r := range results {
		fmt.Fprintf(out, "--- [%d] %s#%d (distance: %.4f) ---\n", i+1, r.DocumentID, r.Index, r.Distance)
		fmt.Fprintln(out, truncate(r.Text, 500))
		fmt.Fprintln(out)
	}
	return nil
}

// truncate shortens s to at most n runes for display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
