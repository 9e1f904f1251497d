package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"docindex/config"
	"docindex/internal/app"
	"docindex/internal/domain"
)

func main() {
	indexPath := flag.String("index", ".", "Path to indexed project directory")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	runs := flag.Int("runs", 20, "Times to repeat the query for latency figures")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index ./tmp -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index profile (model, dimension, distance) and counts")
		fmt.Println("  2. Distance-rated top matches for the query")
		fmt.Println("  3. Query latency over repeated runs")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, *indexPath, "benchmark", io.Discard)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	stats, err := a.Engine.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading index: %v\n", err)
		os.Exit(1)
	}
	if stats.Embeddings == 0 {
		fmt.Fprintln(os.Stderr, "No embeddings - run 'docindex ingest' first")
		os.Exit(1)
	}

	profile := a.Engine.Profile(cfg.Store.Distance)
	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents: %d  Chunks: %d  Embeddings: %d\n", stats.Documents, stats.Chunks, stats.Embeddings)
	fmt.Printf("Model: %s (%s)\n", profile.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d  Distance: %s\n", profile.Dimension, profile.Distance)
	fmt.Println()

	fmt.Printf("Query: %q\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	req := domain.QueryRequest{Query: *query, TopK: *topK}
	results, err := a.Engine.Query(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))
	total := 0.0
	for i, r := range results {
		total += r.Distance
		preview := strings.ReplaceAll(r.Text, "\n", " ")
		if runes := []rune(preview); len(runes) > 150 {
			preview = string(runes[:150]) + "..."
		}
		fmt.Printf("%d. [%s %.3f] %s#%d\n", i+1, rate(r.Distance, profile.Distance), r.Distance, shortID(r.DocumentID), r.Index)
		fmt.Printf("   %s\n\n", preview)
	}

	latencies := make([]time.Duration, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		if _, err := a.Engine.Query(ctx, req); err != nil {
			fmt.Fprintf(os.Stderr, "Search error on run %d: %v\n", i+1, err)
			os.Exit(1)
		}
		latencies = append(latencies, time.Since(start))
	}
	slices.Sort(latencies)

	avg := total / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Average distance: %.3f\n", avg)
	fmt.Printf("  Top-1 distance:   %.3f\n", results[0].Distance)
	fmt.Printf("  Status: %s\n", rate(avg, profile.Distance))
	if len(latencies) > 0 {
		fmt.Printf("LATENCY (%d runs):\n", len(latencies))
		fmt.Printf("  p50: %s\n", latencies[len(latencies)/2])
		fmt.Printf("  p95: %s\n", latencies[len(latencies)*95/100])
		fmt.Printf("  max: %s\n", latencies[len(latencies)-1])
	}
}

// rate buckets a cosine distance. L2 distances have no fixed scale and are
// not rated.
func rate(distance float64, metric string) string {
	if metric != "cosine" {
		return "-"
	}
	switch {
	case distance < 0.3:
		return "HIGH"
	case distance < 0.5:
		return "GOOD"
	case distance < 0.7:
		return "OK"
	}
	return "LOW"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
