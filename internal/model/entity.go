package model

import "strings"

// EntityType classifies a canonical biomedical entity
type EntityType string

const (
	EntityDisease EntityType = "disease"
	EntityTarget  EntityType = "target"
	EntityDrug    EntityType = "drug"
)

// Source identifies which search collaborator produced a candidate row
type Source string

const (
	SourcePrimaryAPI   Source = "primaryApi"   // disease/target/drug search
	SourceSecondaryAPI Source = "secondaryApi" // alternate drug-candidate search
)

// EntityHit is a raw row returned by a search collaborator, before scoring
type EntityHit struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MentionCandidate represents one (mention, candidate) pair produced during
// candidate search. Candidates are not deduplicated across mentions until
// aggregation, and are discarded once a resolution completes.
type MentionCandidate struct {
	Mention     string     `json:"mention"`
	EntityType  EntityType `json:"entityType"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Score       float64    `json:"score"`
	Source      Source     `json:"source"`
}

// DiseaseCandidate is a ranked disease proposal. Score is transient ranking
// state and is stripped before the candidate enters the public bundle.
type DiseaseCandidate struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"-"`
}

// Ontology priority for disease identifiers. EFO is the preferred disease
// ontology; HP denotes phenotypes rather than diseases and ranks last.
var ontologyRank = map[string]int{
	"EFO":      5,
	"MONDO":    4,
	"ORPHANET": 3,
	"DOID":     2,
	"HP":       1,
}

// OntologyPriority returns a comparable rank for a disease id's ontology
// prefix (higher is preferred). Unknown ontologies rank 0.
func OntologyPriority(id string) int {
	prefix := id
	for _, sep := range []string{"_", ":"} {
		if i := strings.Index(prefix, sep); i >= 0 {
			prefix = prefix[:i]
		}
	}
	return ontologyRank[strings.ToUpper(prefix)]
}
