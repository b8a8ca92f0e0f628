package resolve

import (
	"strings"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/rank"
	"github.com/lighteternal/dendrite/internal/textutil"
)

// shouldSkipModel decides whether the disambiguation call is unnecessary or
// unavailable. The returned reason becomes the bundle rationale.
func (r *Resolver) shouldSkipModel(query string, rowsByMention map[string][]model.MentionCandidate, ranked []model.DiseaseCandidate) (bool, string) {
	if r.completer == nil {
		return true, "resolved deterministically: model disabled"
	}
	if r.breaker.Open() {
		return true, "resolved deterministically: model cooling down after rate limit"
	}

	totalRows := 0
	for _, rows := range rowsByMention {
		totalRows += len(rows)
	}
	if totalRows == 0 {
		return true, "resolved deterministically: no candidate rows"
	}

	if r.unambiguousDiseaseQuery(query, rowsByMention, ranked) {
		return true, "resolved deterministically: single unambiguous disease"
	}

	if totalRows <= r.cfg.Tuning.SkipMaxRows && len(ranked) <= 1 && !hasNonDiseaseRows(rowsByMention) {
		return true, "resolved deterministically: trivial candidate set"
	}
	return false, ""
}

// unambiguousDiseaseQuery reports whether the query is a short lookup of a
// single disease with a high-confidence candidate and nothing to
// disambiguate.
func (r *Resolver) unambiguousDiseaseQuery(query string, rowsByMention map[string][]model.MentionCandidate, ranked []model.DiseaseCandidate) bool {
	t := r.cfg.Tuning
	if len(ranked) != 1 || ranked[0].Score < t.SkipHighConfidenceScore {
		return false
	}
	if hasNonDiseaseRows(rowsByMention) {
		return false
	}
	if rank.HasRelationalLanguage(query) {
		return false
	}
	return len(strings.Fields(textutil.Normalize(query))) <= t.SkipMaxQueryTokens
}
