package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/lighteternal/dendrite/internal/model"
)

// BundleResolver defines the interface for resolving a single query
type BundleResolver interface {
	ResolveQueryEntitiesBundle(ctx context.Context, query string) (*model.QueryEntityBundle, error)
}

// BatchResult pairs a query with its resolution outcome
type BatchResult struct {
	Query  string
	Bundle *model.QueryEntityBundle
	Err    error
}

// BatchProcessor resolves multiple queries concurrently
type BatchProcessor struct {
	resolver    BundleResolver
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(resolver BundleResolver, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BatchProcessor{resolver: resolver, concurrency: concurrency}
}

// ResolveQueries resolves every query concurrently, bounded by the
// configured concurrency. Results preserve input order.
func (b *BatchProcessor) ResolveQueries(ctx context.Context, queries []string) []BatchResult {
	results := make([]BatchResult, len(queries))
	if len(queries) == 0 {
		return results
	}

	semaphore := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		go func(idx int, query string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = BatchResult{Query: query, Err: ctx.Err()}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			bundle, err := b.resolver.ResolveQueryEntitiesBundle(ctx, query)
			results[idx] = BatchResult{Query: query, Bundle: bundle, Err: err}
		}(i, q)
	}

	wg.Wait()
	return results
}

// ResolveFile reads one query per line from a file and resolves them all.
// Blank lines and lines starting with '#' are skipped.
func (b *BatchProcessor) ResolveFile(ctx context.Context, path string) ([]BatchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}

	return b.ResolveQueries(ctx, queries), nil
}
