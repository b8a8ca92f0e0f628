package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lighteternal/dendrite/internal/model"
)

// ModelAnchor is one mention-to-entity assignment proposed by the model.
type ModelAnchor struct {
	Mention    string           `json:"mention"`
	EntityType model.EntityType `json:"entityType"`
	ID         string           `json:"id"`
	Confidence float64          `json:"confidence"`
}

// ResolutionModelResult is the strict schema of the disambiguation call.
// Unknown fields are rejected so schema drift surfaces as an error instead
// of silently dropped data.
type ResolutionModelResult struct {
	Anchors          []ModelAnchor `json:"anchors"`
	PrimaryDiseaseID string        `json:"primaryDiseaseId"`
	Intent           string        `json:"intent,omitempty"`
	Rationale        string        `json:"rationale,omitempty"`
}

// ArbitrationResult is the strict schema of the disease arbitration call.
type ArbitrationResult struct {
	PrimaryDiseaseID string `json:"primaryDiseaseId"`
	Rationale        string `json:"rationale,omitempty"`
}

// ParseResolutionResult decodes a resolution response, rejecting unknown
// fields and trailing garbage.
func ParseResolutionResult(raw json.RawMessage) (*ResolutionModelResult, error) {
	var result ResolutionModelResult
	if err := decodeStrict(raw, &result); err != nil {
		return nil, fmt.Errorf("resolution response: %w", err)
	}
	return &result, nil
}

// ParseArbitrationResult decodes an arbitration response strictly.
func ParseArbitrationResult(raw json.RawMessage) (*ArbitrationResult, error) {
	var result ArbitrationResult
	if err := decodeStrict(raw, &result); err != nil {
		return nil, fmt.Errorf("arbitration response: %w", err)
	}
	return &result, nil
}

func decodeStrict(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}

const resolutionSystemPrompt = `You resolve biomedical query mentions to canonical entity ids.
Rules:
- Only use ids from the candidate lists. Never invent ids.
- Assign at most one entity per mention; omit mentions with no good fit.
- confidence is your calibrated belief in [0,1].
- primaryDiseaseId is the single disease the query is about, or "" when the
  query has no primary disease or compares several.
Respond with a single JSON object:
{"anchors":[{"mention":"...","entityType":"disease|target|drug","id":"...","confidence":0.0}],"primaryDiseaseId":"","intent":"","rationale":""}`

// BuildResolutionPrompt renders the disambiguation request. Candidate lists
// are truncated to maxPerMention entries and mentions are emitted in sorted
// order so identical inputs produce identical prompts.
func BuildResolutionPrompt(query string, rowsByMention map[string][]model.MentionCandidate, maxPerMention int) CompletionRequest {
	mentions := make([]string, 0, len(rowsByMention))
	for m := range rowsByMention {
		mentions = append(mentions, m)
	}
	sort.Strings(mentions)

	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates per mention:\n", query)
	for _, mention := range mentions {
		rows := rowsByMention[mention]
		if len(rows) == 0 {
			continue
		}
		if maxPerMention > 0 && len(rows) > maxPerMention {
			rows = rows[:maxPerMention]
		}
		fmt.Fprintf(&b, "- %q:\n", mention)
		for _, row := range rows {
			desc := row.Description
			if len(desc) > 140 {
				desc = desc[:140]
			}
			fmt.Fprintf(&b, "    %s %s %q %s\n", row.EntityType, row.ID, row.Name, desc)
		}
	}

	return CompletionRequest{
		System: resolutionSystemPrompt,
		User:   b.String(),
	}
}

const arbitrationSystemPrompt = `You pick the primary disease a biomedical query is about.
Rules:
- Choose exactly one id from the candidate list, or "" when the query treats
  the candidates symmetrically (comparison, association).
Respond with a single JSON object:
{"primaryDiseaseId":"","rationale":""}`

// BuildArbitrationPrompt renders the tie-break request between close
// disease candidates.
func BuildArbitrationPrompt(query string, candidates []model.DiseaseCandidate) CompletionRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nDisease candidates:\n", query)
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s %q\n", c.ID, c.Name)
	}
	return CompletionRequest{
		System: arbitrationSystemPrompt,
		User:   b.String(),
	}
}
