package search

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/textutil"
)

// CatalogEntry is one entity in a file-backed catalog
type CatalogEntry struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Synonyms    []string `yaml:"synonyms,omitempty"`
}

// Catalog is a file-backed reference implementation of the search
// collaborator contracts, serving similarity-ranked lookups over a static
// entity list. It backs the CLI and tests; production integrators supply
// their own EntitySearcher implementations.
type Catalog struct {
	Diseases []CatalogEntry `yaml:"diseases"`
	Targets  []CatalogEntry `yaml:"targets"`
	Drugs    []CatalogEntry `yaml:"drugs"`
}

// LoadCatalog reads a YAML entity catalog from disk
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML entity catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// Sources exposes the catalog as the four collaborator lookups. The
// secondary drug source serves the same drug list.
func (c *Catalog) Sources() Sources {
	return Sources{
		Diseases:       catalogSearcher{entries: c.Diseases},
		Targets:        catalogSearcher{entries: c.Targets},
		Drugs:          catalogSearcher{entries: c.Drugs},
		DrugCandidates: catalogSearcher{entries: c.Drugs},
	}
}

// catalogSearcher ranks catalog entries by lexical similarity against the
// query text, matching names and synonyms.
type catalogSearcher struct {
	entries []CatalogEntry
}

func (s catalogSearcher) Search(ctx context.Context, text string, limit int) ([]model.EntityHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	type scoredHit struct {
		hit   model.EntityHit
		score float64
	}
	var scored []scoredHit
	for _, e := range s.entries {
		best := textutil.Similarity(text, e.Name)
		for _, syn := range e.Synonyms {
			if v := textutil.Similarity(text, syn); v > best {
				best = v
			}
		}
		if best <= 0 {
			continue
		}
		scored = append(scored, scoredHit{
			hit:   model.EntityHit{ID: e.ID, Name: e.Name, Description: e.Description},
			score: best,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	hits := make([]model.EntityHit, 0, limit)
	for _, sh := range scored {
		hits = append(hits, sh.hit)
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}
