// Package plan merges independently produced query plans into one
// deduplicated, capacity-bounded plan.
package plan

import (
	"strings"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/textutil"
)

// Merge combines a base plan with an augmenting plan. The base plan wins on
// query text; the augment's intent wins when it is more specific than the
// default. Anchors are unioned by (entityType, id) keeping the higher
// confidence, then deduplicated semantically and capped. Constraints,
// followups, and unresolved mentions are unioned case-insensitively.
// Merge(p, nil) returns a normalized copy of p.
func Merge(base, augment *model.ResolvedQueryPlan) *model.ResolvedQueryPlan {
	if base == nil && augment == nil {
		return nil
	}
	if base == nil {
		base = &model.ResolvedQueryPlan{}
	}

	merged := &model.ResolvedQueryPlan{
		Query:     base.Query,
		Intent:    base.Intent,
		Rationale: base.Rationale,
	}

	anchors := unionAnchors(base.Anchors, anchorsOf(augment))
	anchors = DedupeAnchorsSemantically(anchors)
	if len(anchors) > model.MaxPlanAnchors {
		anchors = anchors[:model.MaxPlanAnchors]
	}
	merged.Anchors = anchors

	merged.Constraints = unionConstraints(base.Constraints, constraintsOf(augment))
	merged.Followups = unionFollowups(base.Followups, followupsOf(augment))

	unresolved := append(append([]string(nil), base.UnresolvedMentions...), unresolvedOf(augment)...)
	merged.UnresolvedMentions = FilterUnresolved(unresolved, merged.Anchors)

	if augment != nil {
		if merged.Query == "" {
			merged.Query = augment.Query
		}
		if preferIntent(augment.Intent, merged.Intent) {
			merged.Intent = augment.Intent
		}
		if merged.Rationale == "" {
			merged.Rationale = augment.Rationale
		}
	}
	if merged.Intent == "" {
		merged.Intent = model.DefaultIntent
	}
	return merged
}

func anchorsOf(p *model.ResolvedQueryPlan) []model.QueryPlanAnchor {
	if p == nil {
		return nil
	}
	return p.Anchors
}

func constraintsOf(p *model.ResolvedQueryPlan) []model.QueryPlanConstraint {
	if p == nil {
		return nil
	}
	return p.Constraints
}

func followupsOf(p *model.ResolvedQueryPlan) []model.QueryPlanFollowup {
	if p == nil {
		return nil
	}
	return p.Followups
}

func unresolvedOf(p *model.ResolvedQueryPlan) []string {
	if p == nil {
		return nil
	}
	return p.UnresolvedMentions
}

// unionAnchors merges two anchor lists by (entityType, id), keeping the
// occurrence with higher confidence. First-seen order is preserved.
func unionAnchors(base, extra []model.QueryPlanAnchor) []model.QueryPlanAnchor {
	type key struct {
		entityType model.EntityType
		id         string
	}
	index := make(map[key]int)
	var out []model.QueryPlanAnchor
	for _, a := range append(append([]model.QueryPlanAnchor(nil), base...), extra...) {
		a.Confidence = model.ClampConfidence(a.Confidence)
		k := key{a.EntityType, a.ID}
		if i, ok := index[k]; ok {
			if a.Confidence > out[i].Confidence {
				out[i] = a
			}
			continue
		}
		index[k] = len(out)
		out = append(out, a)
	}
	return out
}

// DedupeAnchorsSemantically collapses anchors that share an entity type and
// a normalized name even when their ontology ids differ. The survivor is
// chosen by confidence, then ontology priority, then shorter id.
func DedupeAnchorsSemantically(anchors []model.QueryPlanAnchor) []model.QueryPlanAnchor {
	type key struct {
		entityType model.EntityType
		name       string
	}
	index := make(map[key]int)
	var out []model.QueryPlanAnchor
	for _, a := range anchors {
		k := key{a.EntityType, textutil.Normalize(a.Name)}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, a)
			continue
		}
		if betterAnchor(a, out[i]) {
			out[i] = a
		}
	}
	return out
}

func betterAnchor(a, b model.QueryPlanAnchor) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if pa, pb := model.OntologyPriority(a.ID), model.OntologyPriority(b.ID); pa != pb {
		return pa > pb
	}
	return len(a.Name) < len(b.Name)
}

func unionConstraints(base, extra []model.QueryPlanConstraint) []model.QueryPlanConstraint {
	type key struct {
		polarity model.Polarity
		text     string
	}
	seen := make(map[key]bool)
	var out []model.QueryPlanConstraint
	for _, c := range append(append([]model.QueryPlanConstraint(nil), base...), extra...) {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		k := key{c.Polarity, strings.ToLower(strings.TrimSpace(c.Text))}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	if len(out) > model.MaxPlanConstraints {
		out = out[:model.MaxPlanConstraints]
	}
	return out
}

func unionFollowups(base, extra []model.QueryPlanFollowup) []model.QueryPlanFollowup {
	seen := make(map[string]bool)
	var out []model.QueryPlanFollowup
	for _, f := range append(append([]model.QueryPlanFollowup(nil), base...), extra...) {
		if strings.TrimSpace(f.Question) == "" {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(f.Question))
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	if len(out) > model.MaxPlanFollowups {
		out = out[:model.MaxPlanFollowups]
	}
	return out
}

// genericLoneWords are single words too vague to keep as unresolved
// mentions once at least one disease anchor exists.
var genericLoneWords = map[string]bool{
	"disease": true, "diseases": true, "disorder": true, "disorders": true,
	"condition": true, "conditions": true, "syndrome": true, "treatment": true,
	"treatments": true, "therapy": true, "therapies": true, "gene": true,
	"genes": true, "drug": true, "drugs": true,
}

// FilterUnresolved drops unresolved mentions already covered by an anchor
// (by mention or name containment) and, when a disease anchor exists, lone
// generic words. The result is deduplicated and capped.
func FilterUnresolved(mentions []string, anchors []model.QueryPlanAnchor) []string {
	hasDiseaseAnchor := false
	for _, a := range anchors {
		if a.EntityType == model.EntityDisease {
			hasDiseaseAnchor = true
			break
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range mentions {
		norm := textutil.Normalize(m)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		if hasDiseaseAnchor && len(strings.Fields(norm)) == 1 && genericLoneWords[norm] {
			continue
		}
		if coveredByAnchor(norm, anchors) {
			continue
		}
		out = append(out, m)
	}
	if len(out) > model.MaxUnresolvedMentions {
		out = out[:model.MaxUnresolvedMentions]
	}
	return out
}

// coveredByAnchor reports whether a normalized mention is subsumed by any
// anchor mention or entity name, comparing both normalized and compact forms.
func coveredByAnchor(norm string, anchors []model.QueryPlanAnchor) bool {
	compact := textutil.Compact(norm)
	for _, a := range anchors {
		for _, anchorText := range []string{a.Mention, a.Name} {
			an := textutil.Normalize(anchorText)
			if an == "" {
				continue
			}
			if an == norm || strings.Contains(an, norm) || strings.Contains(norm, an) {
				return true
			}
			ac := textutil.Compact(anchorText)
			if ac != "" && (ac == compact || strings.Contains(ac, compact) || strings.Contains(compact, ac)) {
				return true
			}
		}
	}
	return false
}

// preferIntent reports whether candidate should replace current. A specific
// intent always beats the generic default or an empty one.
func preferIntent(candidate, current string) bool {
	if candidate == "" || candidate == model.DefaultIntent {
		return false
	}
	return current == "" || current == model.DefaultIntent
}
