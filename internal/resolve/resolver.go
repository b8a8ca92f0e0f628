// Package resolve orchestrates the full query-to-entity resolution pipeline:
// mention extraction, candidate search, disease ranking, optional
// model-assisted disambiguation, and plan assembly.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lighteternal/dendrite/internal/cache"
	"github.com/lighteternal/dendrite/internal/extract"
	"github.com/lighteternal/dendrite/internal/llm"
	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/plan"
	"github.com/lighteternal/dendrite/internal/rank"
	"github.com/lighteternal/dendrite/internal/search"
	"github.com/lighteternal/dendrite/internal/textutil"
	"github.com/lighteternal/dendrite/internal/worker"
)

// ErrEmptyQuery is returned for blank input. It is the only error
// ResolveQueryEntitiesBundle produces; every downstream failure degrades to
// a deterministic bundle instead.
var ErrEmptyQuery = errors.New("resolve: empty query")

// Planner supplies an externally produced semantic plan for a query.
// Implementations are optional collaborators; errors are tolerated.
type Planner interface {
	PlanQuery(ctx context.Context, query string) (*model.ResolvedQueryPlan, error)
}

// Options configures a Resolver. Sources is required; Completer and Planner
// are optional collaborators.
type Options struct {
	Sources   search.Sources
	Completer llm.Completer
	Planner   Planner
	Logger    logrus.FieldLogger
	Config    model.Config
}

// Resolver resolves free-text biomedical queries into entity bundles.
type Resolver struct {
	cfg        model.Config
	extractor  *extract.MentionExtractor
	aggregator *search.Aggregator
	ranker     *rank.Ranker
	completer  llm.Completer
	breaker    *llm.Breaker
	planner    Planner
	bundles    *cache.BundleCache
	log        logrus.FieldLogger
}

// New creates a Resolver from options. A zero Config is replaced with
// DefaultConfig.
func New(opts Options) *Resolver {
	cfg := opts.Config
	if cfg == (model.Config{}) {
		cfg = model.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := &Resolver{
		cfg:        cfg,
		extractor:  extract.NewMentionExtractor(cfg.Tuning),
		aggregator: search.NewAggregator(opts.Sources, cfg.Search, cfg.Tuning, log),
		ranker:     rank.NewRanker(cfg.Tuning),
		completer:  opts.Completer,
		planner:    opts.Planner,
		log:        log,
	}
	if opts.Completer != nil {
		r.breaker = llm.NewBreaker(cfg.LLM.BreakerCooldown)
	}
	if cfg.Cache.Enabled {
		r.bundles = cache.NewBundleCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}
	return r
}

// ResolveQueryEntitiesBundle resolves one query end to end. Collaborator
// failures never surface as errors: search degrades to fewer candidates and
// model failures fall back to deterministic resolution.
func (r *Resolver) ResolveQueryEntitiesBundle(ctx context.Context, query string) (*model.QueryEntityBundle, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}

	if r.bundles != nil {
		if bundle, ok := r.bundles.Get(trimmed); ok {
			return bundle, nil
		}
	}

	semanticPlan := r.planQuery(ctx, trimmed)
	mentions := r.extractor.MentionsFromQueryPlan(trimmed, semanticPlan)
	rowsByMention := r.searchMentions(ctx, mentions)
	ranked := r.ranker.CandidatesFromRows(trimmed, rowsByMention)

	openAICalls := 0
	var basePlan *model.ResolvedQueryPlan
	var selected *model.DiseaseCandidate
	var rationale string

	skip, reason := r.shouldSkipModel(trimmed, rowsByMention, ranked)
	if skip {
		basePlan, selected = r.deterministicResolution(trimmed, mentions, rowsByMention, ranked)
		rationale = reason
	} else {
		modelPlan, modelSelected, calls, err := r.modelResolution(ctx, trimmed, mentions, rowsByMention, ranked)
		openAICalls += calls
		if err != nil {
			r.log.WithError(err).Warn("model resolution failed, using deterministic fallback")
			basePlan, selected = r.deterministicResolution(trimmed, mentions, rowsByMention, ranked)
			rationale = fmt.Sprintf("deterministic fallback after model failure: %v", err)
		} else {
			basePlan, selected = modelPlan, modelSelected
			rationale = fmt.Sprintf("disambiguated by %s", r.completer.Name())
			if modelPlan.Rationale != "" {
				rationale = modelPlan.Rationale
			}
		}
	}

	merged := plan.Merge(basePlan, semanticPlan)
	merged.Query = trimmed

	bundle := &model.QueryEntityBundle{
		Query:             trimmed,
		QueryPlan:         *merged,
		SelectedDisease:   stripScore(selected),
		DiseaseCandidates: stripScores(ranked),
		Rationale:         rationale,
		OpenAICalls:       openAICalls,
	}

	if r.bundles != nil {
		r.bundles.Set(trimmed, bundle)
	}
	return bundle, nil
}

// planQuery asks the optional semantic planner for a plan. A nil planner or
// a planner error just means no semantic plan.
func (r *Resolver) planQuery(ctx context.Context, query string) *model.ResolvedQueryPlan {
	if r.planner == nil {
		return nil
	}
	p, err := r.planner.PlanQuery(ctx, query)
	if err != nil {
		r.log.WithError(err).Debug("semantic planner failed")
		return nil
	}
	return p
}

// searchMentions fans candidate search out across mentions, each bounded by
// the mention timeout. A mention whose search times out simply contributes
// no rows.
func (r *Resolver) searchMentions(ctx context.Context, mentions []string) map[string][]model.MentionCandidate {
	type mentionRows struct {
		mention string
		rows    []model.MentionCandidate
	}
	tasks := make([]worker.Task[mentionRows], 0, len(mentions))
	for _, mention := range mentions {
		mention := mention
		tasks = append(tasks, func(ctx context.Context) (mentionRows, error) {
			return mentionRows{mention: mention, rows: r.aggregator.SearchMentionCandidates(ctx, mention)}, nil
		})
	}

	results := worker.GatherWithTimeout(ctx, r.cfg.Search.MentionTimeout, tasks)
	rowsByMention := make(map[string][]model.MentionCandidate, len(results))
	for _, res := range results {
		if len(res.rows) > 0 {
			rowsByMention[res.mention] = res.rows
		}
	}
	return rowsByMention
}

// modelResolution runs the disambiguation call through the circuit breaker,
// validates the model's anchors against the candidate allowlist, and
// derives the primary disease. The returned call count covers attempts that
// actually reached the provider.
func (r *Resolver) modelResolution(ctx context.Context, query string, mentions []string, rowsByMention map[string][]model.MentionCandidate, ranked []model.DiseaseCandidate) (*model.ResolvedQueryPlan, *model.DiseaseCandidate, int, error) {
	calls := 0

	req := llm.BuildResolutionPrompt(query, rowsByMention, r.cfg.LLM.MaxCandidatesPerMention)
	req.MaxTokens = r.cfg.LLM.MaxTokens
	req.Timeout = r.cfg.LLM.Timeout

	var result *llm.ResolutionModelResult
	err := r.breaker.Do(func() error {
		calls++
		raw, err := r.completer.Complete(ctx, req)
		if err != nil {
			return err
		}
		result, err = llm.ParseResolutionResult(raw)
		return err
	})
	if err != nil {
		return nil, nil, calls, err
	}

	anchors, diseaseIDs := r.validateAnchors(result.Anchors, rowsByMention)

	p := &model.ResolvedQueryPlan{
		Query:     query,
		Intent:    result.Intent,
		Anchors:   anchors,
		Rationale: result.Rationale,
	}
	p.UnresolvedMentions = mentionsWithoutAnchor(mentions, anchors)

	selected := r.pickPrimaryDisease(result.PrimaryDiseaseID, diseaseIDs, ranked)

	if selected == nil && r.needsArbitration(ranked, result.PrimaryDiseaseID, anchors, diseaseIDs) {
		arbSelected, arbCalls, arbErr := r.arbitrate(ctx, query, ranked)
		calls += arbCalls
		if arbErr != nil {
			return nil, nil, calls, arbErr
		}
		selected = arbSelected
	}

	if selected == nil {
		selected = r.ranker.PickDeterministicSelection(query, ranked,
			len(diseaseIDs) > 0, hasNonDiseaseRows(rowsByMention))
	}

	// The weak-disease override applies to whatever the fallback chain
	// produced, including the deterministic pick.
	if selected != nil && r.overrideWeakDisease(anchors, diseaseIDs, ranked) {
		selected = nil
	}
	return p, selected, calls, nil
}

// validateAnchors keeps only anchors whose (entityType, id) exists in the
// candidate rows and whose disease assignments pass the similarity gates.
func (r *Resolver) validateAnchors(proposed []llm.ModelAnchor, rowsByMention map[string][]model.MentionCandidate) ([]model.QueryPlanAnchor, map[string]bool) {
	allow := make(map[string]model.MentionCandidate)
	for _, rows := range rowsByMention {
		for _, row := range rows {
			key := string(row.EntityType) + "/" + row.ID
			if existing, ok := allow[key]; !ok || row.Score > existing.Score {
				allow[key] = row
			}
		}
	}

	var anchors []model.QueryPlanAnchor
	diseaseIDs := make(map[string]bool)
	for _, a := range proposed {
		row, ok := allow[string(a.EntityType)+"/"+a.ID]
		if !ok {
			r.log.WithFields(logrus.Fields{"id": a.ID, "mention": a.Mention}).
				Debug("dropping anchor outside candidate allowlist")
			continue
		}

		confidence := model.ClampConfidence(a.Confidence)
		if a.EntityType == model.EntityDisease && !r.diseaseAnchorAcceptable(a.Mention, row.Name, confidence) {
			continue
		}

		anchors = append(anchors, model.QueryPlanAnchor{
			Mention:       a.Mention,
			EntityType:    a.EntityType,
			RequestedType: requestedTypeFor(a.Mention),
			ID:            a.ID,
			Name:          row.Name,
			Description:   row.Description,
			Confidence:    confidence,
			Source:        row.Source,
		})
		if a.EntityType == model.EntityDisease {
			diseaseIDs[a.ID] = true
		}
	}
	return anchors, diseaseIDs
}

// diseaseAnchorAcceptable gates disease anchors on lexical similarity
// between the mention and the entity name, with a higher bar for
// low-confidence assignments. Short gene-like mentions bypass the gate
// since their disease names rarely share surface text.
func (r *Resolver) diseaseAnchorAcceptable(mention, name string, confidence float64) bool {
	t := r.cfg.Tuning
	norm := textutil.Normalize(mention)
	if len(norm) <= 6 && textutil.IsGeneSymbolLike(norm) {
		return true
	}
	sim := textutil.Similarity(mention, name)
	if confidence < t.LowConfidenceThreshold {
		return sim >= t.DiseaseAnchorLowConfSimilarity
	}
	return sim >= t.DiseaseAnchorMinSimilarity
}

// pickPrimaryDisease maps the model's primary disease id onto a ranked
// candidate, falling back to the first anchored disease.
func (r *Resolver) pickPrimaryDisease(primaryID string, diseaseIDs map[string]bool, ranked []model.DiseaseCandidate) *model.DiseaseCandidate {
	if primaryID != "" {
		if c := candidateByID(ranked, primaryID); c != nil && diseaseIDs[primaryID] {
			return c
		}
	}
	for _, c := range ranked {
		if diseaseIDs[c.ID] {
			cc := c
			return &cc
		}
	}
	return nil
}

// needsArbitration reports whether the top disease candidates are close
// enough that a dedicated tie-break call is warranted. No call is spent
// when the query already resolved to a strong non-disease entity with no
// disease anchored alongside it.
func (r *Resolver) needsArbitration(ranked []model.DiseaseCandidate, primaryID string, anchors []model.QueryPlanAnchor, diseaseIDs map[string]bool) bool {
	if primaryID != "" || len(ranked) < 2 {
		return false
	}
	if len(diseaseIDs) == 0 && r.hasStrongNonDiseaseAnchor(anchors) {
		return false
	}
	return ranked[0].Score-ranked[1].Score < r.cfg.Tuning.ClearLeaderMargin
}

// arbitrate runs the tie-break call between the top disease candidates.
func (r *Resolver) arbitrate(ctx context.Context, query string, ranked []model.DiseaseCandidate) (*model.DiseaseCandidate, int, error) {
	top := ranked
	if len(top) > r.cfg.LLM.MaxCandidatesPerMention {
		top = top[:r.cfg.LLM.MaxCandidatesPerMention]
	}

	req := llm.BuildArbitrationPrompt(query, top)
	req.MaxTokens = r.cfg.LLM.MaxTokens
	req.Timeout = r.cfg.LLM.Timeout

	calls := 0
	var result *llm.ArbitrationResult
	err := r.breaker.Do(func() error {
		calls++
		raw, err := r.completer.Complete(ctx, req)
		if err != nil {
			return err
		}
		result, err = llm.ParseArbitrationResult(raw)
		return err
	})
	if err != nil {
		return nil, calls, err
	}
	if result.PrimaryDiseaseID == "" {
		return nil, calls, nil
	}
	return candidateByID(top, result.PrimaryDiseaseID), calls, nil
}

// overrideWeakDisease reports whether the selection should be nulled: the
// model anchored no disease but did anchor a strong non-disease entity,
// and the best disease candidate is weak. Such queries are about the
// target or drug, not a disease.
func (r *Resolver) overrideWeakDisease(anchors []model.QueryPlanAnchor, diseaseIDs map[string]bool, ranked []model.DiseaseCandidate) bool {
	if len(diseaseIDs) > 0 || !r.hasStrongNonDiseaseAnchor(anchors) {
		return false
	}
	return len(ranked) == 0 || ranked[0].Score < r.cfg.Tuning.WeakDiseaseScore
}

func (r *Resolver) hasStrongNonDiseaseAnchor(anchors []model.QueryPlanAnchor) bool {
	for _, a := range anchors {
		if a.EntityType != model.EntityDisease && a.Confidence >= r.cfg.Tuning.StrongAnchorConfidence {
			return true
		}
	}
	return false
}

// requestedTypeFor infers the entity type a mention's surface form asks
// for: disease-cue wording requests a disease, a gene-symbol shape
// requests a target. Neutral mentions request nothing.
func requestedTypeFor(mention string) model.EntityType {
	if textutil.HasDiseaseCue(mention) {
		return model.EntityDisease
	}
	if textutil.IsGeneSymbolLike(textutil.Normalize(mention)) {
		return model.EntityTarget
	}
	return ""
}

func candidateByID(ranked []model.DiseaseCandidate, id string) *model.DiseaseCandidate {
	for _, c := range ranked {
		if c.ID == id {
			cc := c
			return &cc
		}
	}
	return nil
}

// mentionsWithoutAnchor lists mentions no anchor accounts for
func mentionsWithoutAnchor(mentions []string, anchors []model.QueryPlanAnchor) []string {
	covered := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		covered[textutil.Normalize(a.Mention)] = true
	}
	var out []string
	for _, m := range mentions {
		if !covered[textutil.Normalize(m)] {
			out = append(out, m)
		}
	}
	return out
}

func hasNonDiseaseRows(rowsByMention map[string][]model.MentionCandidate) bool {
	for _, rows := range rowsByMention {
		for _, row := range rows {
			if row.EntityType != model.EntityDisease {
				return true
			}
		}
	}
	return false
}

func stripScore(c *model.DiseaseCandidate) *model.DiseaseCandidate {
	if c == nil {
		return nil
	}
	cc := *c
	cc.Score = 0
	return &cc
}

func stripScores(ranked []model.DiseaseCandidate) []model.DiseaseCandidate {
	out := make([]model.DiseaseCandidate, len(ranked))
	for i, c := range ranked {
		c.Score = 0
		out[i] = c
	}
	return out
}
