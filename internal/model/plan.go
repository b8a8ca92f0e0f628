package model

// Plan-level capacity invariants. A ResolvedQueryPlan never exceeds these.
const (
	MaxPlanAnchors        = 20
	MaxPlanConstraints    = 10
	MaxPlanFollowups      = 10
	MaxUnresolvedMentions = 12
)

// Anchor confidence is always clamped into this range.
const (
	MinAnchorConfidence = 0.2
	MaxAnchorConfidence = 0.98
)

// DefaultIntent is the generic intent assigned when no more specific one is
// supplied by a semantic planner.
const DefaultIntent = "multihop-discovery"

// Polarity classifies how a constraint should influence downstream search
type Polarity string

const (
	PolarityInclude  Polarity = "include"
	PolarityAvoid    Polarity = "avoid"
	PolarityOptimize Polarity = "optimize"
)

// QueryPlanAnchor is a mention resolved to a canonical entity id
type QueryPlanAnchor struct {
	Mention       string     `json:"mention"`
	RequestedType EntityType `json:"requestedType,omitempty"`
	EntityType    EntityType `json:"entityType"`
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Confidence    float64    `json:"confidence"`
	Source        Source     `json:"source,omitempty"`
}

// QueryPlanConstraint is a free-text preference attached to the plan
type QueryPlanConstraint struct {
	Text     string   `json:"text"`
	Polarity Polarity `json:"polarity"`
}

// QueryPlanFollowup is a suggested clarifying question
type QueryPlanFollowup struct {
	Question string `json:"question"`
}

// ResolvedQueryPlan is the structured plan driving the downstream evidence
// graph builder.
type ResolvedQueryPlan struct {
	Query              string                `json:"query"`
	Intent             string                `json:"intent"`
	Anchors            []QueryPlanAnchor     `json:"anchors"`
	Constraints        []QueryPlanConstraint `json:"constraints"`
	UnresolvedMentions []string              `json:"unresolvedMentions"`
	Followups          []QueryPlanFollowup   `json:"followups"`
	Rationale          string                `json:"rationale,omitempty"`
}

// ClampConfidence bounds an anchor confidence into the permitted range
func ClampConfidence(c float64) float64 {
	if c < MinAnchorConfidence {
		return MinAnchorConfidence
	}
	if c > MaxAnchorConfidence {
		return MaxAnchorConfidence
	}
	return c
}
