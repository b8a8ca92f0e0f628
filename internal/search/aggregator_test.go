package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lighteternal/dendrite/internal/model"
)

// stubSearcher returns fixed hits, optionally failing or blocking
type stubSearcher struct {
	hits  []model.EntityHit
	err   error
	block bool
}

func (s stubSearcher) Search(ctx context.Context, text string, limit int) ([]model.EntityHit, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func testSearchConfig() model.SearchConfig {
	cfg := model.DefaultConfig().Search
	cfg.SourceTimeout = 200 * time.Millisecond
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000
	return cfg
}

func TestSearchMentionCandidates_AllSourcesTimeout(t *testing.T) {
	sources := Sources{
		Diseases:       stubSearcher{block: true},
		Targets:        stubSearcher{block: true},
		Drugs:          stubSearcher{block: true},
		DrugCandidates: stubSearcher{block: true},
	}
	cfg := testSearchConfig()
	cfg.SourceTimeout = 30 * time.Millisecond
	a := NewAggregator(sources, cfg, model.DefaultTuning(), nil)

	start := time.Now()
	got := a.SearchMentionCandidates(context.Background(), "lupus")
	if len(got) != 0 {
		t.Errorf("expected empty result when every call times out, got %v", got)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("aggregation did not respect source timeouts")
	}
}

func TestSearchMentionCandidates_FailuresAreLocal(t *testing.T) {
	sources := Sources{
		Diseases: stubSearcher{hits: []model.EntityHit{
			{ID: "EFO_0000685", Name: "rheumatoid arthritis"},
		}},
		Targets:        stubSearcher{err: errors.New("upstream down")},
		Drugs:          stubSearcher{block: true},
		DrugCandidates: stubSearcher{err: errors.New("upstream down")},
	}
	cfg := testSearchConfig()
	cfg.SourceTimeout = 50 * time.Millisecond
	a := NewAggregator(sources, cfg, model.DefaultTuning(), nil)

	got := a.SearchMentionCandidates(context.Background(), "rheumatoid arthritis")
	if len(got) == 0 {
		t.Fatal("expected the healthy source to contribute candidates")
	}
	if got[0].ID != "EFO_0000685" || got[0].EntityType != model.EntityDisease {
		t.Errorf("unexpected top candidate: %+v", got[0])
	}
	if got[0].Score != 1 {
		t.Errorf("exact-name candidate should score 1, got %v", got[0].Score)
	}
}

func TestSearchMentionCandidates_DedupeKeepsMaxScore(t *testing.T) {
	// Both drug sources return the same id; the aggregator must keep one row
	sources := Sources{
		Drugs:          stubSearcher{hits: []model.EntityHit{{ID: "CHEMBL25", Name: "aspirin"}}},
		DrugCandidates: stubSearcher{hits: []model.EntityHit{{ID: "CHEMBL25", Name: "aspirin"}}},
	}
	a := NewAggregator(sources, testSearchConfig(), model.DefaultTuning(), nil)

	got := a.SearchMentionCandidates(context.Background(), "aspirin")
	count := 0
	for _, row := range got {
		if row.ID == "CHEMBL25" && row.EntityType == model.EntityDrug {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one deduplicated row for CHEMBL25, got %d", count)
	}
}

func TestSearchMentionCandidates_Memoized(t *testing.T) {
	sources := Sources{
		Diseases: stubSearcher{hits: []model.EntityHit{{ID: "EFO_1", Name: "lupus"}}},
	}
	a := NewAggregator(sources, testSearchConfig(), model.DefaultTuning(), nil)

	first := a.SearchMentionCandidates(context.Background(), "lupus")
	second := a.SearchMentionCandidates(context.Background(), "Lupus  ")
	if len(first) == 0 || len(second) != len(first) {
		t.Fatalf("expected memoized result for normalized-equal mentions: %v vs %v", first, second)
	}
}

func TestFilterByCutoff_GeneSymbolMention(t *testing.T) {
	a := NewAggregator(Sources{}, testSearchConfig(), model.DefaultTuning(), nil)
	rows := []model.MentionCandidate{
		{Mention: "il6", EntityType: model.EntityTarget, ID: "ENSG1", Name: "Interleukin-6", Score: 0.6},
		{Mention: "il6", EntityType: model.EntityDisease, ID: "EFO_9", Name: "some condition", Score: 0.3},
	}

	kept := a.FilterByCutoff("il6", rows)
	if len(kept) != 1 {
		t.Fatalf("expected exactly one surviving row, got %v", kept)
	}
	if kept[0].EntityType != model.EntityTarget {
		t.Errorf("expected the target row to survive, got %+v", kept[0])
	}
}

func TestFilterByCutoff_SingleTokenDiseaseStricter(t *testing.T) {
	a := NewAggregator(Sources{}, testSearchConfig(), model.DefaultTuning(), nil)
	tuning := model.DefaultTuning()
	borderline := tuning.BaseCutoff + tuning.SingleTokenDiseaseExtra/2

	rows := []model.MentionCandidate{
		{Mention: "fatigue", EntityType: model.EntityDisease, ID: "EFO_2", Name: "fatigue syndrome", Score: borderline},
	}
	if kept := a.FilterByCutoff("fatigue", rows); len(kept) != 0 {
		t.Errorf("single-token non-symbol disease row below strict cutoff should drop, got %v", kept)
	}

	// The same score passes for a multi-token mention
	rows[0].Mention = "chronic fatigue"
	if kept := a.FilterByCutoff("chronic fatigue", rows); len(kept) != 1 {
		t.Errorf("multi-token mention should use the base cutoff, got %v", kept)
	}
}

func TestFilterByCutoff_DiseaseCuePenalizesOtherTypes(t *testing.T) {
	a := NewAggregator(Sources{}, testSearchConfig(), model.DefaultTuning(), nil)
	tuning := model.DefaultTuning()
	score := tuning.BaseCutoff + tuning.DiseaseCueNonDiseasePenalty/2

	rows := []model.MentionCandidate{
		{Mention: "sjogren syndrome", EntityType: model.EntityDrug, ID: "CHEMBL9", Name: "something", Score: score},
		{Mention: "sjogren syndrome", EntityType: model.EntityDisease, ID: "EFO_3", Name: "sjogren syndrome", Score: score},
	}
	kept := a.FilterByCutoff("sjogren syndrome", rows)
	if len(kept) != 1 || kept[0].EntityType != model.EntityDisease {
		t.Errorf("disease-cue mention should penalize non-disease rows, got %v", kept)
	}
}

func TestGeneHintBoost(t *testing.T) {
	a := NewAggregator(Sources{}, testSearchConfig(), model.DefaultTuning(), nil)
	rows := []model.MentionCandidate{
		{Mention: "il6", EntityType: model.EntityTarget, ID: "ENSG1", Name: "IL6", Description: "Interleukin 6 cytokine", Score: 0.5},
		{Mention: "il6", EntityType: model.EntityDrug, ID: "CHEMBL1", Name: "interleukin 6 blocker", Score: 0.5},
	}
	boosted := a.applyGeneHintBoost("il6", rows)
	if boosted[0].Score <= 0.5 {
		t.Errorf("target row with hint match should be boosted, got %v", boosted[0].Score)
	}
	if boosted[1].Score != 0.5 {
		t.Errorf("non-target rows must not be boosted, got %v", boosted[1].Score)
	}
}
