package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lighteternal/dendrite/internal/textutil"
	"github.com/lighteternal/dendrite/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Resolve multiple queries from a file in parallel",
	Long: `Batch resolves many queries concurrently:
- Read queries from input file (one per line, # comments skipped)
- Resolve queries in parallel with configurable worker count
- Write one bundle JSON per query

Example:
  dendrite batch queries.txt --catalog entities.yaml
  dendrite batch queries.txt --catalog entities.yaml --concurrency 10 --output-dir ./bundles
  dendrite batch queries.txt --catalog entities.yaml --llm`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML entity catalog path (required)")
	_ = batchCmd.MarkFlagRequired("catalog")

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./dendrite-bundles", "output directory for bundles")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the bundle result cache")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model-assisted disambiguation")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "model name")
	batchCmd.Flags().StringVar(&llmBaseURL, "llm-base-url", "", "OpenAI-compatible endpoint override")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	resolver, err := buildResolver()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Input file: %s\n", file)
	fmt.Fprintf(os.Stderr, "Workers:    %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "Output dir: %s\n\n", outputDir)

	processor := worker.NewBatchProcessor(resolver, concurrency)
	results, err := processor.ResolveFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Query, result.Err)
			continue
		}
		successCount++

		path := filepath.Join(outputDir, querySlug(result.Query)+".json")
		if err := writeBundleJSON(result.Bundle, path); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Query, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s\n", result.Query)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d\n", len(results), successCount, failureCount)
	return nil
}

// querySlug derives a filesystem-safe name from a query
func querySlug(query string) string {
	slug := strings.ReplaceAll(textutil.Normalize(query), " ", "-")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		slug = "query"
	}
	return slug
}
