package resolve

import (
	"github.com/lighteternal/dendrite/internal/model"
)

// confidence mapping for deterministically assigned anchors
const (
	deterministicConfidenceBase  = 0.3
	deterministicConfidenceSlope = 0.55
)

// deterministicResolution builds a plan without the model: the selected
// disease (when the deterministic selector finds one) becomes a disease
// anchor, and each mention contributes its best non-disease row as an
// anchor. Confidence is derived from lexical score alone.
func (r *Resolver) deterministicResolution(query string, mentions []string, rowsByMention map[string][]model.MentionCandidate, ranked []model.DiseaseCandidate) (*model.ResolvedQueryPlan, *model.DiseaseCandidate) {
	selected := r.ranker.PickDeterministicSelection(query, ranked, false, hasNonDiseaseRows(rowsByMention))

	p := &model.ResolvedQueryPlan{
		Query:  query,
		Intent: model.DefaultIntent,
	}

	if selected != nil {
		if mention, row, ok := bestRowForID(rowsByMention, model.EntityDisease, selected.ID); ok {
			p.Anchors = append(p.Anchors, model.QueryPlanAnchor{
				Mention:       mention,
				EntityType:    model.EntityDisease,
				RequestedType: requestedTypeFor(mention),
				ID:            selected.ID,
				Name:          row.Name,
				Description:   row.Description,
				Confidence:    deterministicConfidence(row.Score),
				Source:        row.Source,
			})
		}
	}

	for _, mention := range mentions {
		row, ok := topNonDiseaseRow(rowsByMention[mention])
		if !ok {
			continue
		}
		p.Anchors = append(p.Anchors, model.QueryPlanAnchor{
			Mention:       mention,
			EntityType:    row.EntityType,
			RequestedType: requestedTypeFor(mention),
			ID:            row.ID,
			Name:          row.Name,
			Description:   row.Description,
			Confidence:    deterministicConfidence(row.Score),
			Source:        row.Source,
		})
	}

	p.UnresolvedMentions = mentionsWithoutAnchor(mentions, p.Anchors)
	return p, selected
}

// bestRowForID finds the highest-scored row for an entity across mentions
func bestRowForID(rowsByMention map[string][]model.MentionCandidate, entityType model.EntityType, id string) (string, model.MentionCandidate, bool) {
	var bestMention string
	var best model.MentionCandidate
	found := false
	for mention, rows := range rowsByMention {
		for _, row := range rows {
			if row.EntityType != entityType || row.ID != id {
				continue
			}
			if !found || row.Score > best.Score ||
				(row.Score == best.Score && mention < bestMention) {
				bestMention, best, found = mention, row, true
			}
		}
	}
	return bestMention, best, found
}

// topNonDiseaseRow returns the best-scored target or drug row of a mention.
// Rows arrive sorted by score, so the first non-disease row wins.
func topNonDiseaseRow(rows []model.MentionCandidate) (model.MentionCandidate, bool) {
	for _, row := range rows {
		if row.EntityType != model.EntityDisease {
			return row, true
		}
	}
	return model.MentionCandidate{}, false
}

// deterministicConfidence maps a lexical row score onto the anchor
// confidence range. An exact name match lands at 0.85; the clamp keeps
// boosted scores below the model's ceiling.
func deterministicConfidence(rowScore float64) float64 {
	return model.ClampConfidence(deterministicConfidenceBase + deterministicConfidenceSlope*rowScore)
}
