package search

import (
	"context"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/textutil"
	"github.com/lighteternal/dendrite/internal/worker"
)

// Aggregator fans a mention (and its lexical variants) out to the external
// search collaborators and merges the results into a single deduplicated,
// score-filtered candidate list.
type Aggregator struct {
	sources Sources
	cfg     model.SearchConfig
	tuning  model.Tuning
	limiter *worker.SourceLimiter
	memo    *gocache.Cache
	log     logrus.FieldLogger
}

// NewAggregator creates a new candidate search aggregator
func NewAggregator(sources Sources, cfg model.SearchConfig, tuning model.Tuning, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{
		sources: sources,
		cfg:     cfg,
		tuning:  tuning,
		limiter: worker.NewSourceLimiter(cfg.RequestsPerSecond, cfg.Burst),
		memo:    gocache.New(cfg.MemoTTL, 2*cfg.MemoTTL),
		log:     log,
	}
}

// SearchMentionCandidates returns the merged candidate rows for one
// mention. It never fails: individual collaborator errors and timeouts
// degrade to empty contributions.
func (a *Aggregator) SearchMentionCandidates(ctx context.Context, mention string) []model.MentionCandidate {
	key := textutil.Normalize(mention)
	if key == "" {
		return []model.MentionCandidate{}
	}
	if cached, ok := a.memo.Get(key); ok {
		return cached.([]model.MentionCandidate)
	}

	variants := Variants(key, a.cfg.MaxVariants)
	mentionForms := append(append([]string{}, variants...), GeneHints(key)...)

	var tasks []worker.Task[[]model.MentionCandidate]
	for _, variant := range variants {
		for _, spec := range a.sources.specs() {
			if spec.searcher == nil {
				continue
			}
			variant, spec := variant, spec
			tasks = append(tasks, func(ctx context.Context) ([]model.MentionCandidate, error) {
				if err := a.limiter.Wait(ctx, spec.name); err != nil {
					return nil, err
				}
				hits, err := spec.searcher.Search(ctx, variant, a.cfg.Limit)
				if err != nil {
					a.log.WithError(err).WithFields(logrus.Fields{
						"source":  spec.name,
						"variant": variant,
					}).Debug("candidate source failed")
					return nil, err
				}
				rows := make([]model.MentionCandidate, 0, len(hits))
				for _, hit := range hits {
					rows = append(rows, model.MentionCandidate{
						Mention:     key,
						EntityType:  spec.entityType,
						ID:          hit.ID,
						Name:        hit.Name,
						Description: hit.Description,
						Score:       scoreRow(mentionForms, hit),
						Source:      spec.source,
					})
				}
				return rows, nil
			})
		}
	}

	batches := worker.GatherWithTimeout(ctx, a.cfg.SourceTimeout, tasks)

	merged := mergeRows(batches)
	merged = a.applyGeneHintBoost(key, merged)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	merged = a.FilterByCutoff(key, merged)

	a.memo.Set(key, merged, gocache.DefaultExpiration)
	return merged
}

// scoreRow computes the lexical score of a hit: the best similarity between
// any mention form and any lexical form of the candidate name.
func scoreRow(mentionForms []string, hit model.EntityHit) float64 {
	nameForms := Variants(hit.Name, 3)
	best := 0.0
	for _, mf := range mentionForms {
		for _, nf := range nameForms {
			if s := textutil.Similarity(mf, nf); s > best {
				best = s
			}
		}
	}
	return best
}

// mergeRows flattens per-task batches and dedupes by (entityType, id),
// keeping the highest-scored row for each entity.
func mergeRows(batches [][]model.MentionCandidate) []model.MentionCandidate {
	type rowKey struct {
		entityType model.EntityType
		id         string
	}
	best := make(map[rowKey]model.MentionCandidate)
	var order []rowKey
	for _, batch := range batches {
		for _, row := range batch {
			k := rowKey{row.EntityType, row.ID}
			existing, ok := best[k]
			if !ok {
				best[k] = row
				order = append(order, k)
				continue
			}
			if row.Score > existing.Score {
				best[k] = row
			}
		}
	}
	out := make([]model.MentionCandidate, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// applyGeneHintBoost boosts target rows whose name or description matches a
// gene-symbol hint derived from the mention.
func (a *Aggregator) applyGeneHintBoost(mention string, rows []model.MentionCandidate) []model.MentionCandidate {
	hints := GeneHints(mention)
	if len(hints) == 0 {
		return rows
	}
	for i, row := range rows {
		if row.EntityType != model.EntityTarget {
			continue
		}
		haystack := textutil.Normalize(row.Name + " " + row.Description)
		for _, hint := range hints {
			if strings.Contains(haystack, hint) {
				rows[i].Score += a.tuning.GeneHintBoost
				break
			}
		}
	}
	return rows
}

// FilterByCutoff applies the per-category, per-mention-shape score cutoff:
// single-token disease lookups are held to a stricter bar unless the
// mention reads as a gene symbol, and non-disease rows pay a penalty when
// the mention carries an explicit disease cue.
func (a *Aggregator) FilterByCutoff(mention string, rows []model.MentionCandidate) []model.MentionCandidate {
	t := a.tuning
	tokens := textutil.Tokens(mention)
	singleToken := len(tokens) == 1
	geneLike := textutil.IsGeneSymbolLike(mention)
	diseaseCue := textutil.HasDiseaseCue(mention)

	kept := make([]model.MentionCandidate, 0, len(rows))
	for _, row := range rows {
		cutoff := t.BaseCutoff
		if row.EntityType == model.EntityDisease && singleToken && !geneLike {
			cutoff += t.SingleTokenDiseaseExtra
		}
		if diseaseCue && row.EntityType != model.EntityDisease {
			cutoff += t.DiseaseCueNonDiseasePenalty
		}
		if row.Score >= cutoff {
			kept = append(kept, row)
		}
	}
	return kept
}
