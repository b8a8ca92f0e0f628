// Package extract turns raw biomedical query text into a ranked list of
// short candidate entity mentions.
package extract

import (
	"sort"
	"strings"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/textutil"
)

// MentionExtractor extracts candidate entity mentions from query text
type MentionExtractor struct {
	tuning model.Tuning
}

// NewMentionExtractor creates a new mention extractor
func NewMentionExtractor(tuning model.Tuning) *MentionExtractor {
	return &MentionExtractor{tuning: tuning}
}

// ExtractMentions returns deduplicated, normalized candidate mentions
// ordered by heuristic relevance, capped at the configured maximum.
// Structured relational patterns are tried first; when none match, the
// extractor falls back to signal tokens and finally to trailing n-gram
// tails of the normalized query.
func (e *MentionExtractor) ExtractMentions(query string) []string {
	normalized := textutil.Normalize(query)
	if normalized == "" {
		return nil
	}

	mentions := structuredMentions(query, normalized)
	if len(mentions) == 0 {
		mentions = signalTokenMentions(query)
	}
	if len(mentions) == 0 {
		mentions = trailingTailMentions(normalized)
	}

	return e.rank(mentions, e.tuning.MaxMentions)
}

// MentionsFromQueryPlan seeds mentions from an externally supplied semantic
// plan's anchors and unresolved mentions, reusing the same cleaning filters.
// When the plan yields nothing usable it falls back to ExtractMentions.
func (e *MentionExtractor) MentionsFromQueryPlan(query string, plan *model.ResolvedQueryPlan) []string {
	if plan != nil {
		var raw []string
		for _, anchor := range plan.Anchors {
			if anchor.Mention != "" {
				raw = append(raw, anchor.Mention)
			} else if anchor.Name != "" {
				raw = append(raw, anchor.Name)
			}
		}
		raw = append(raw, plan.UnresolvedMentions...)

		var mentions []string
		for _, r := range raw {
			m := cleanMention(r)
			if m == "" || isGenericMechanismPhrase(m) {
				continue
			}
			mentions = append(mentions, m)
		}
		if ranked := e.rank(mentions, e.tuning.MaxPlanMentions); len(ranked) > 0 {
			return ranked
		}
	}
	return e.ExtractMentions(query)
}

// structuredMentions applies the relational rule table and quoted-phrase
// extraction, splitting each captured side on commas and conjunctions.
func structuredMentions(raw, normalized string) []string {
	sides := relationSides(normalized)
	sides = append(sides, quotedSides(raw)...)

	var mentions []string
	for _, side := range sides {
		for _, half := range splitSide(side) {
			m := cleanMention(half)
			if m == "" || isGenericMechanismPhrase(m) {
				continue
			}
			mentions = append(mentions, m)
		}
	}
	return mentions
}

// signalTokenMentions scans raw tokens for entity signals: digits,
// uppercase letters, or hyphen/plus characters.
func signalTokenMentions(raw string) []string {
	var mentions []string
	for _, tok := range strings.Fields(raw) {
		trimmed := strings.Trim(tok, `.,;:!?()"'`)
		if trimmed == "" || !textutil.IsSignalToken(trimmed) {
			continue
		}
		m := textutil.Normalize(trimmed)
		if m == "" || leadingStopwords[m] {
			continue
		}
		mentions = append(mentions, m)
	}
	return mentions
}

// trailingTailMentions emits the trailing 2-4 token tails of the normalized
// query as last-resort mentions.
func trailingTailMentions(normalized string) []string {
	tokens := strings.Fields(normalized)
	var mentions []string
	for n := 2; n <= 4 && n <= len(tokens); n++ {
		tail := strings.Join(tokens[len(tokens)-n:], " ")
		m := cleanMention(tail)
		if m == "" || isGenericMechanismPhrase(m) {
			continue
		}
		mentions = append(mentions, m)
	}
	return mentions
}

// rank deduplicates, scores, sorts, caps, and prunes subsumed single tokens
func (e *MentionExtractor) rank(mentions []string, limit int) []string {
	seen := make(map[string]bool, len(mentions))
	var unique []string
	for _, m := range mentions {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		unique = append(unique, m)
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, 0, len(unique))
	for _, m := range unique {
		ranked = append(ranked, scored{text: m, score: e.scoreMention(m)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.text)
		if len(out) >= limit {
			break
		}
	}
	return pruneSubsumedSingles(out)
}

// scoreMention favors short, symbol-dense mentions
func (e *MentionExtractor) scoreMention(m string) float64 {
	t := e.tuning
	tokens := strings.Fields(m)
	var score float64
	switch {
	case len(tokens) == 1:
		if isStrongToken(tokens[0]) {
			score += t.SingleTokenBonus
		}
	case len(tokens) == 2:
		score += t.TwoTokenBonus
	case len(tokens) <= 4:
		score += t.ShortMentionBonus
	}
	if strings.ContainsAny(m, "0123456789-+") {
		score += t.SymbolBonus
	}
	if len(m) > t.LongMentionChars {
		score -= t.LongMentionPenalty
	}
	return score
}

// isStrongToken reports whether a lone token is substantial enough to stand
// as a mention on its own.
func isStrongToken(tok string) bool {
	return len(tok) >= 3 || textutil.IsGeneSymbolLike(tok)
}

// pruneSubsumedSingles drops a single-token mention when a multi-token
// mention already contains it as a whole word, unless the token itself
// looks like a gene symbol.
func pruneSubsumedSingles(mentions []string) []string {
	var out []string
	for _, m := range mentions {
		if strings.ContainsRune(m, ' ') || textutil.IsGeneSymbolLike(m) {
			out = append(out, m)
			continue
		}
		subsumed := false
		for _, other := range mentions {
			if other == m || !strings.ContainsRune(other, ' ') {
				continue
			}
			for _, tok := range strings.Fields(other) {
				if tok == m {
					subsumed = true
					break
				}
			}
			if subsumed {
				break
			}
		}
		if !subsumed {
			out = append(out, m)
		}
	}
	return out
}
