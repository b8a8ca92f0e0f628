package plan

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/lighteternal/dendrite/internal/model"
)

func anchor(entityType model.EntityType, id, mention, name string, confidence float64) model.QueryPlanAnchor {
	return model.QueryPlanAnchor{
		Mention:    mention,
		EntityType: entityType,
		ID:         id,
		Name:       name,
		Confidence: confidence,
	}
}

func TestMerge_NilAugmentPreservesBase(t *testing.T) {
	base := &model.ResolvedQueryPlan{
		Query:  "tnf inhibitors for rheumatoid arthritis",
		Intent: "drug-repurposing",
		Anchors: []model.QueryPlanAnchor{
			anchor(model.EntityDisease, "EFO_0000685", "rheumatoid arthritis", "rheumatoid arthritis", 0.9),
			anchor(model.EntityTarget, "ENSG00000232810", "tnf", "TNF", 0.85),
		},
		Constraints:        []model.QueryPlanConstraint{{Text: "approved drugs only", Polarity: model.PolarityInclude}},
		UnresolvedMentions: []string{"inhibitors"},
		Followups:          []model.QueryPlanFollowup{{Question: "Which line of therapy?"}},
	}

	got := Merge(base, nil)
	if !reflect.DeepEqual(got, base) {
		t.Errorf("Merge(base, nil) changed the plan:\n got %+v\nwant %+v", got, base)
	}
}

func TestMerge_BothNil(t *testing.T) {
	if got := Merge(nil, nil); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestMerge_AnchorUnionKeepsHigherConfidence(t *testing.T) {
	base := &model.ResolvedQueryPlan{
		Query:   "asthma genes",
		Anchors: []model.QueryPlanAnchor{anchor(model.EntityDisease, "EFO_0000270", "asthma", "asthma", 0.6)},
	}
	augment := &model.ResolvedQueryPlan{
		Anchors: []model.QueryPlanAnchor{anchor(model.EntityDisease, "EFO_0000270", "asthma", "asthma", 0.9)},
	}

	got := Merge(base, augment)
	if len(got.Anchors) != 1 {
		t.Fatalf("expected 1 anchor after union, got %d", len(got.Anchors))
	}
	if got.Anchors[0].Confidence != 0.9 {
		t.Errorf("expected higher confidence kept, got %.2f", got.Anchors[0].Confidence)
	}
}

func TestMerge_ClampsConfidence(t *testing.T) {
	base := &model.ResolvedQueryPlan{
		Anchors: []model.QueryPlanAnchor{
			anchor(model.EntityDisease, "EFO_1", "a", "a", 1.5),
			anchor(model.EntityTarget, "ENSG_1", "b", "b", 0.01),
		},
	}

	got := Merge(base, nil)
	if got.Anchors[0].Confidence != model.MaxAnchorConfidence {
		t.Errorf("expected confidence clamped to %.2f, got %.2f", model.MaxAnchorConfidence, got.Anchors[0].Confidence)
	}
	if got.Anchors[1].Confidence != model.MinAnchorConfidence {
		t.Errorf("expected confidence clamped to %.2f, got %.2f", model.MinAnchorConfidence, got.Anchors[1].Confidence)
	}
}

func TestDedupeAnchorsSemantically(t *testing.T) {
	anchors := []model.QueryPlanAnchor{
		anchor(model.EntityDisease, "DOID_9352", "diabetes", "type 2 diabetes mellitus", 0.7),
		anchor(model.EntityDisease, "EFO_0001360", "t2d", "Type 2 Diabetes Mellitus", 0.7),
		anchor(model.EntityTarget, "ENSG00000232810", "tnf", "TNF", 0.8),
	}

	got := DedupeAnchorsSemantically(anchors)
	if len(got) != 2 {
		t.Fatalf("expected semantic duplicates collapsed to 2 anchors, got %d", len(got))
	}
	// Equal confidence: EFO outranks DOID
	if got[0].ID != "EFO_0001360" {
		t.Errorf("expected EFO survivor, got %s", got[0].ID)
	}
}

func TestDedupeAnchorsSemantically_ConfidenceWins(t *testing.T) {
	anchors := []model.QueryPlanAnchor{
		anchor(model.EntityDisease, "EFO_0001360", "t2d", "type 2 diabetes mellitus", 0.5),
		anchor(model.EntityDisease, "DOID_9352", "diabetes", "type 2 diabetes mellitus", 0.9),
	}

	got := DedupeAnchorsSemantically(anchors)
	if len(got) != 1 || got[0].ID != "DOID_9352" {
		t.Fatalf("expected the higher-confidence anchor to survive, got %+v", got)
	}
}

func TestMerge_CapsAnchorCount(t *testing.T) {
	base := &model.ResolvedQueryPlan{}
	for i := 0; i < model.MaxPlanAnchors+8; i++ {
		base.Anchors = append(base.Anchors, anchor(model.EntityTarget,
			fmt.Sprintf("ENSG%05d", i), fmt.Sprintf("g%d", i), fmt.Sprintf("gene %d", i), 0.8))
	}

	got := Merge(base, nil)
	if len(got.Anchors) != model.MaxPlanAnchors {
		t.Errorf("expected anchors capped at %d, got %d", model.MaxPlanAnchors, len(got.Anchors))
	}
}

func TestMerge_ConstraintAndFollowupDedupe(t *testing.T) {
	base := &model.ResolvedQueryPlan{
		Constraints: []model.QueryPlanConstraint{{Text: "Pediatric patients", Polarity: model.PolarityInclude}},
		Followups:   []model.QueryPlanFollowup{{Question: "Which age group?"}},
	}
	augment := &model.ResolvedQueryPlan{
		Constraints: []model.QueryPlanConstraint{
			{Text: "pediatric patients", Polarity: model.PolarityInclude},
			{Text: "pediatric patients", Polarity: model.PolarityAvoid},
		},
		Followups: []model.QueryPlanFollowup{{Question: "which age group?"}, {Question: "Which biomarker?"}},
	}

	got := Merge(base, augment)
	if len(got.Constraints) != 2 {
		t.Errorf("expected 2 constraints (same text, different polarity), got %d", len(got.Constraints))
	}
	if len(got.Followups) != 2 {
		t.Errorf("expected 2 followups after case-insensitive dedupe, got %d", len(got.Followups))
	}
}

func TestFilterUnresolved_DropsCoveredAndGenericMentions(t *testing.T) {
	anchors := []model.QueryPlanAnchor{
		anchor(model.EntityDisease, "EFO_0000729", "ulcerative colitis", "ulcerative colitis", 0.9),
	}
	mentions := []string{"ulcerative colitis", "colitis", "disease", "jak inhibitors"}

	got := FilterUnresolved(mentions, anchors)
	want := []string{"jak inhibitors"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterUnresolved = %v, want %v", got, want)
	}
}

func TestFilterUnresolved_KeepsGenericWordWithoutDiseaseAnchor(t *testing.T) {
	anchors := []model.QueryPlanAnchor{
		anchor(model.EntityTarget, "ENSG00000232810", "tnf", "TNF", 0.9),
	}

	got := FilterUnresolved([]string{"disease"}, anchors)
	if len(got) != 1 {
		t.Errorf("expected generic word kept without disease anchor, got %v", got)
	}
}

func TestFilterUnresolved_CompactFormCoverage(t *testing.T) {
	anchors := []model.QueryPlanAnchor{
		anchor(model.EntityTarget, "ENSG00000136244", "il-6", "IL6", 0.9),
	}

	if got := FilterUnresolved([]string{"il 6"}, anchors); len(got) != 0 {
		t.Errorf("expected compact-form covered mention dropped, got %v", got)
	}
}

func TestMerge_IntentPreference(t *testing.T) {
	base := &model.ResolvedQueryPlan{Intent: model.DefaultIntent}
	augment := &model.ResolvedQueryPlan{Intent: "target-prioritization"}

	if got := Merge(base, augment); got.Intent != "target-prioritization" {
		t.Errorf("expected specific intent to replace default, got %q", got.Intent)
	}

	base = &model.ResolvedQueryPlan{Intent: "drug-repurposing"}
	if got := Merge(base, augment); got.Intent != "drug-repurposing" {
		t.Errorf("expected base specific intent kept, got %q", got.Intent)
	}

	if got := Merge(&model.ResolvedQueryPlan{}, nil); got.Intent != model.DefaultIntent {
		t.Errorf("expected default intent backfilled, got %q", got.Intent)
	}
}
