package rank

import (
	"fmt"
	"testing"

	"github.com/lighteternal/dendrite/internal/model"
)

func newTestRanker() *Ranker {
	return NewRanker(model.DefaultTuning())
}

func TestCandidatesFromRows_ExactNameRanksFirst(t *testing.T) {
	r := newTestRanker()
	rows := map[string][]model.MentionCandidate{
		"ulcerative colitis": {
			{EntityType: model.EntityDisease, ID: "EFO_0000729", Name: "ulcerative colitis", Score: 1.0},
			{EntityType: model.EntityDisease, ID: "MONDO_0005101", Name: "inflammatory bowel disease", Score: 0.4},
		},
	}

	ranked := r.CandidatesFromRows("treatments for ulcerative colitis", rows)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].ID != "EFO_0000729" {
		t.Errorf("expected exact-name candidate first, got %s", ranked[0].ID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("expected descending scores, got %.2f then %.2f", ranked[0].Score, ranked[1].Score)
	}
}

func TestCandidatesFromRows_IgnoresNonDiseaseRows(t *testing.T) {
	r := newTestRanker()
	rows := map[string][]model.MentionCandidate{
		"tnf": {
			{EntityType: model.EntityTarget, ID: "ENSG00000232810", Name: "TNF", Score: 1.0},
			{EntityType: model.EntityDrug, ID: "CHEMBL1201580", Name: "adalimumab", Score: 0.9},
		},
	}

	if got := r.CandidatesFromRows("what is tnf", rows); len(got) != 0 {
		t.Errorf("expected no disease candidates, got %d", len(got))
	}
}

func TestCandidatesFromRows_ExcludesMeasurementEntries(t *testing.T) {
	r := newTestRanker()
	rows := map[string][]model.MentionCandidate{
		"crp": {
			{EntityType: model.EntityDisease, ID: "EFO_0004458", Name: "C-reactive protein measurement", Score: 0.9},
			{EntityType: model.EntityDisease, ID: "EFO_0009999", Name: "crp ratio", Description: "metabolite ratio in a sample", Score: 0.8},
			{EntityType: model.EntityDisease, ID: "MONDO_0100096", Name: "crp deficiency", Score: 0.7},
		},
	}

	ranked := r.CandidatesFromRows("crp levels", rows)
	if len(ranked) != 1 {
		t.Fatalf("expected measurement entries filtered, got %d candidates", len(ranked))
	}
	if ranked[0].ID != "MONDO_0100096" {
		t.Errorf("expected the non-measurement candidate, got %s", ranked[0].ID)
	}
}

func TestCandidatesFromRows_OntologyPriorityBreaksTies(t *testing.T) {
	r := newTestRanker()
	rows := map[string][]model.MentionCandidate{
		"ataxia": {
			{EntityType: model.EntityDisease, ID: "HP_0001251", Name: "ataxia", Score: 1.0},
			{EntityType: model.EntityDisease, ID: "EFO_0005671", Name: "ataxia", Score: 1.0},
		},
	}

	ranked := r.CandidatesFromRows("ataxia", rows)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].ID != "EFO_0005671" {
		t.Errorf("expected EFO entry above the HP phenotype, got %s", ranked[0].ID)
	}
}

func TestCandidatesFromRows_MentionSupportBonus(t *testing.T) {
	r := newTestRanker()
	shared := model.MentionCandidate{EntityType: model.EntityDisease, ID: "MONDO_0004979", Name: "asthma", Score: 0.8}
	single := model.MentionCandidate{EntityType: model.EntityDisease, ID: "EFO_0000274", Name: "atopic eczema", Score: 0.8}
	rows := map[string][]model.MentionCandidate{
		"asthma":           {shared, single},
		"airway narrowing": {shared},
	}

	ranked := r.CandidatesFromRows("asthma and airway narrowing", rows)
	if ranked[0].ID != "MONDO_0004979" {
		t.Errorf("expected multi-mention candidate first, got %s", ranked[0].ID)
	}
}

func TestCandidatesFromRows_CapsCandidateCount(t *testing.T) {
	r := newTestRanker()
	rows := map[string][]model.MentionCandidate{"x": nil}
	for i := 0; i < 30; i++ {
		rows["x"] = append(rows["x"], model.MentionCandidate{
			EntityType: model.EntityDisease,
			ID:         fmt.Sprintf("EFO_%04d", i),
			Name:       fmt.Sprintf("disease %d", i),
			Score:      0.5,
		})
	}

	ranked := r.CandidatesFromRows("x", rows)
	if len(ranked) != model.DefaultTuning().MaxDiseaseCandidates {
		t.Errorf("expected candidate list capped at %d, got %d", model.DefaultTuning().MaxDiseaseCandidates, len(ranked))
	}
}

func TestPickDeterministicSelection_SingleStrongCandidate(t *testing.T) {
	r := newTestRanker()
	ranked := []model.DiseaseCandidate{
		{ID: "EFO_1234", Name: "amyotrophic lateral sclerosis", Score: 3.5},
	}

	got := r.PickDeterministicSelection("is als hereditary?", ranked, false, false)
	if got == nil {
		t.Fatal("expected the single strong candidate to be selected")
	}
	if got.ID != "EFO_1234" {
		t.Errorf("expected EFO_1234, got %s", got.ID)
	}
}

func TestPickDeterministicSelection_SingleWeakHitWithNonDiseaseSignal(t *testing.T) {
	r := newTestRanker()
	ranked := []model.DiseaseCandidate{
		{ID: "EFO_0000616", Name: "neoplasm", Score: 2.0},
	}

	if got := r.PickDeterministicSelection("braf inhibitors", ranked, false, true); got != nil {
		t.Errorf("expected no selection for weak lone hit with non-disease signal, got %s", got.ID)
	}

	// With a disease anchor already assigned the same hit is acceptable
	if got := r.PickDeterministicSelection("braf inhibitors", ranked, true, true); got == nil {
		t.Error("expected selection when a disease anchor backs the hit")
	}
}

func TestPickDeterministicSelection_RelationalQueryWithoutClearLeader(t *testing.T) {
	r := newTestRanker()
	ranked := []model.DiseaseCandidate{
		{ID: "MONDO_0007915", Name: "systemic lupus erythematosus", Score: 2.6},
		{ID: "EFO_0003086", Name: "kidney disease", Score: 2.5},
	}

	got := r.PickDeterministicSelection("what is the connection between lupus and kidney disease", ranked, false, false)
	if got != nil {
		t.Errorf("expected no selection for close relational candidates, got %s", got.ID)
	}
}

func TestPickDeterministicSelection_ClearLeaderWinsEvenWhenRelational(t *testing.T) {
	r := newTestRanker()
	ranked := []model.DiseaseCandidate{
		{ID: "MONDO_0007915", Name: "systemic lupus erythematosus", Score: 6.1},
		{ID: "EFO_0003086", Name: "kidney disease", Score: 2.5},
	}

	got := r.PickDeterministicSelection("what is the connection between lupus and kidney disease", ranked, false, false)
	if got == nil || got.ID != "MONDO_0007915" {
		t.Fatalf("expected the clear leader to win, got %v", got)
	}
}

func TestPickDeterministicSelection_NonRelationalCloseRaceTakesTop(t *testing.T) {
	r := newTestRanker()
	ranked := []model.DiseaseCandidate{
		{ID: "EFO_0000270", Name: "asthma", Score: 2.6},
		{ID: "EFO_0000274", Name: "atopic eczema", Score: 2.5},
	}

	got := r.PickDeterministicSelection("asthma treatments", ranked, false, false)
	if got == nil || got.ID != "EFO_0000270" {
		t.Fatalf("expected top candidate for non-relational query, got %v", got)
	}
}

func TestPickDeterministicSelection_Empty(t *testing.T) {
	r := newTestRanker()
	if got := r.PickDeterministicSelection("anything", nil, false, false); got != nil {
		t.Errorf("expected nil for empty candidate list, got %v", got)
	}
}

func TestHasRelationalLanguage(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"what is the connection between lupus and kidney disease", true},
		{"crohn's disease vs ulcerative colitis", true},
		{"genes associated with asthma", true},
		{"is als hereditary?", false},
		{"asthma treatments", false},
	}
	for _, tc := range cases {
		if got := HasRelationalLanguage(tc.query); got != tc.want {
			t.Errorf("HasRelationalLanguage(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}
