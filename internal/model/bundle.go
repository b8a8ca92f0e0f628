package model

// QueryEntityBundle is the complete result of one resolution call. Bundles
// are immutable after return and are owned by the result cache; callers must
// treat them as read-only.
type QueryEntityBundle struct {
	Query             string             `json:"query"`
	QueryPlan         ResolvedQueryPlan  `json:"queryPlan"`
	SelectedDisease   *DiseaseCandidate  `json:"selectedDisease"`
	DiseaseCandidates []DiseaseCandidate `json:"diseaseCandidates"`
	Rationale         string             `json:"rationale"`
	OpenAICalls       int                `json:"openAiCalls"`
}
