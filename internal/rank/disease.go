// Package rank aggregates per-mention disease candidates into a single
// ranked list and deterministically picks zero or one primary disease.
package rank

import (
	"sort"
	"strings"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/textutil"
)

// measurementMarkers identify assay/measurement entries that ontologies mix
// in with diseases; they are excluded before ranking.
var measurementMarkers = []string{
	"measurement", "quantification", "metabolite ratio", "in a sample",
}

// relationalWords flag multi-entity queries where silently picking one side
// would be wrong.
var relationalWords = []string{
	"between", "vs", "versus", "connection", "relationship", "associated",
	"association", "link", "linked", "compare", "compared", "correlation",
	"interplay",
}

// Ranker scores and selects disease candidates
type Ranker struct {
	tuning model.Tuning
}

// NewRanker creates a new disease ranker
func NewRanker(tuning model.Tuning) *Ranker {
	return &Ranker{tuning: tuning}
}

// diseaseAggregate accumulates the ranking signals for one unique disease id
type diseaseAggregate struct {
	candidate      model.DiseaseCandidate
	bestMentionSim float64
	bestRowScore   float64
	mentionSupport int
}

// CandidatesFromRows aggregates disease rows across mentions into a ranked
// candidate list. Score per unique id is a weighted sum of mention
// similarity, query similarity, raw row score, query token coverage,
// mention support, a literal-phrase bonus, an unmatched-token penalty, and
// an ontology priority adjustment.
func (r *Ranker) CandidatesFromRows(query string, rowsByMention map[string][]model.MentionCandidate) []model.DiseaseCandidate {
	t := r.tuning
	aggregates := make(map[string]*diseaseAggregate)
	var order []string

	for mention, rows := range rowsByMention {
		for _, row := range rows {
			if row.EntityType != model.EntityDisease {
				continue
			}
			if isMeasurementLike(row) {
				continue
			}
			agg, ok := aggregates[row.ID]
			if !ok {
				agg = &diseaseAggregate{candidate: model.DiseaseCandidate{
					ID:          row.ID,
					Name:        row.Name,
					Description: row.Description,
				}}
				aggregates[row.ID] = agg
				order = append(order, row.ID)
			}
			if sim := textutil.Similarity(mention, row.Name); sim > agg.bestMentionSim {
				agg.bestMentionSim = sim
			}
			if row.Score > agg.bestRowScore {
				agg.bestRowScore = row.Score
			}
			agg.mentionSupport++
		}
	}

	normalizedQuery := textutil.Normalize(query)
	queryTokens := tokenSet(normalizedQuery)

	ranked := make([]model.DiseaseCandidate, 0, len(order))
	for _, id := range order {
		agg := aggregates[id]
		name := agg.candidate.Name

		querySim := textutil.Similarity(query, name)
		coverage, unmatched := tokenCoverage(queryTokens, name)

		support := float64(agg.mentionSupport-1) * t.MentionSupportBonus
		if support > t.MentionSupportBonusMax {
			support = t.MentionSupportBonusMax
		}

		score := t.MentionSimilarityWeight*agg.bestMentionSim +
			t.QuerySimilarityWeight*querySim +
			t.RowSimilarityWeight*agg.bestRowScore +
			t.TokenCoverageWeight*coverage +
			support -
			t.UnmatchedTokenPenalty*float64(unmatched) +
			r.ontologyAdjustment(id)

		if strings.Contains(normalizedQuery, textutil.Normalize(name)) {
			score += t.LiteralPhraseBonus
		}

		c := agg.candidate
		c.Score = score
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > t.MaxDiseaseCandidates {
		ranked = ranked[:t.MaxDiseaseCandidates]
	}
	return ranked
}

// PickDeterministicSelection applies the non-LLM disease selection policy.
// hasDiseaseAnchor and hasNonDiseaseSignal describe the broader resolution
// context (anchors already assigned, non-disease candidate rows present).
func (r *Ranker) PickDeterministicSelection(query string, ranked []model.DiseaseCandidate, hasDiseaseAnchor, hasNonDiseaseSignal bool) *model.DiseaseCandidate {
	t := r.tuning
	switch len(ranked) {
	case 0:
		return nil
	case 1:
		// A lone weak hit next to non-disease signal is too ambiguous to pick
		if hasNonDiseaseSignal && !hasDiseaseAnchor && ranked[0].Score < t.WeakSingleHitScore {
			return nil
		}
		top := ranked[0]
		return &top
	}

	top := ranked[0]
	runnerUp := ranked[1]
	clearLeader := top.Score >= t.ClearLeaderScore && top.Score-runnerUp.Score >= t.ClearLeaderMargin
	if clearLeader {
		return &top
	}
	if HasRelationalLanguage(query) {
		// Ambiguous multi-entity query: never silently pick one side
		return nil
	}
	return &top
}

// HasRelationalLanguage reports whether the query compares or links
// multiple entities.
func HasRelationalLanguage(query string) bool {
	tokens := tokenSet(textutil.Normalize(query))
	for _, w := range relationalWords {
		if tokens[w] {
			return true
		}
	}
	return false
}

// ontologyAdjustment converts ontology priority into a small score nudge;
// HP ids are phenotypes and pay a penalty instead.
func (r *Ranker) ontologyAdjustment(id string) float64 {
	priority := model.OntologyPriority(id)
	if strings.HasPrefix(strings.ToUpper(id), "HP") {
		return -r.tuning.PhenotypePenalty
	}
	return float64(priority) * r.tuning.OntologyBonusStep
}

// isMeasurementLike filters assay/measurement entries out of the disease pool
func isMeasurementLike(row model.MentionCandidate) bool {
	text := strings.ToLower(row.Name + " " + row.Description)
	for _, marker := range measurementMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// tokenCoverage returns the fraction of candidate-name tokens present in
// the query and the count of those that are not.
func tokenCoverage(queryTokens map[string]bool, name string) (float64, int) {
	nameTokens := textutil.Tokens(name)
	if len(nameTokens) == 0 {
		return 0, 0
	}
	matched := 0
	for _, tok := range nameTokens {
		if queryTokens[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(nameTokens)), len(nameTokens) - matched
}

func tokenSet(normalized string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(normalized) {
		set[tok] = true
	}
	return set
}
