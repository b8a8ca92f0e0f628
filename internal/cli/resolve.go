package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lighteternal/dendrite/internal/llm"
	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/resolve"
	"github.com/lighteternal/dendrite/internal/search"
)

var (
	catalogPath    string
	outJSON        string
	resolveTimeout time.Duration
	noCache        bool
	llmEnabled     bool
	llmModel       string
	llmBaseURL     string
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a single query into an entity bundle",
	Long: `Resolve turns one free-text biomedical question into a structured
entity bundle: a query plan with disease/target/drug anchors, the ranked
disease candidates, and the selected primary disease.

Entity candidates come from a YAML catalog file; production deployments
substitute live search backends.

Example:
  dendrite resolve "what is the connection between imatinib and cml" --catalog entities.yaml
  dendrite resolve "asthma treatments" --catalog entities.yaml --llm --llm-model gpt-4o-mini
  dendrite resolve "is als hereditary" --catalog entities.yaml --json bundle.json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML entity catalog path (required)")
	_ = resolveCmd.MarkFlagRequired("catalog")

	// Output flags
	resolveCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
	resolveCmd.Flags().DurationVar(&resolveTimeout, "timeout", 30*time.Second, "overall resolution timeout")
	resolveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the bundle result cache")

	// LLM flags
	resolveCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model-assisted disambiguation")
	resolveCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "model name")
	resolveCmd.Flags().StringVar(&llmBaseURL, "llm-base-url", "", "OpenAI-compatible endpoint override")
}

func runResolve(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	resolver, err := buildResolver()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Resolving: %s\n", query)
	}

	bundle, err := resolver.ResolveQueryEntitiesBundle(ctx, query)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d anchors, %d disease candidates, %d model calls\n",
			len(bundle.QueryPlan.Anchors), len(bundle.DiseaseCandidates), bundle.OpenAICalls)
		if bundle.SelectedDisease != nil {
			fmt.Fprintf(os.Stderr, "✓ Selected disease: %s (%s)\n", bundle.SelectedDisease.Name, bundle.SelectedDisease.ID)
		}
	}

	return writeBundleJSON(bundle, outJSON)
}

// buildResolver assembles a Resolver from flags and the catalog file
func buildResolver() (*resolve.Resolver, error) {
	catalog, err := search.LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose

	opts := resolve.Options{
		Sources: catalog.Sources(),
		Logger:  newLogger(),
		Config:  cfg,
	}

	if llmEnabled {
		cfg.LLM.Provider = "openai"
		cfg.LLM.Model = llmModel
		cfg.LLM.BaseURL = llmBaseURL
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		opts.Config = cfg

		completer, err := llm.NewOpenAIClient(cfg.LLM)
		if err != nil {
			return nil, err
		}
		opts.Completer = completer
	}

	return resolve.New(opts), nil
}

// writeBundleJSON renders a bundle to a file or stdout
func writeBundleJSON(bundle *model.QueryEntityBundle, path string) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	}
	return nil
}
