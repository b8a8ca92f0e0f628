// Package search aggregates candidate entities for query mentions from
// external disease/target/drug search collaborators.
package search

import (
	"context"

	"github.com/lighteternal/dendrite/internal/model"
)

// EntitySearcher is the contract implemented by external search
// collaborators (OpenTargets/ChEMBL-style tool servers). Implementations
// are best-effort and may fail; the aggregator times out and degrades.
type EntitySearcher interface {
	Search(ctx context.Context, text string, limit int) ([]model.EntityHit, error)
}

// Sources bundles the four collaborator lookups used per mention variant
type Sources struct {
	Diseases EntitySearcher
	Targets  EntitySearcher
	Drugs    EntitySearcher

	// DrugCandidates is the alternate (secondary) drug source
	DrugCandidates EntitySearcher
}

// sourceSpec pairs a collaborator with the entity type and source tag its
// rows carry.
type sourceSpec struct {
	name       string
	searcher   EntitySearcher
	entityType model.EntityType
	source     model.Source
}

func (s Sources) specs() []sourceSpec {
	return []sourceSpec{
		{name: "diseases", searcher: s.Diseases, entityType: model.EntityDisease, source: model.SourcePrimaryAPI},
		{name: "targets", searcher: s.Targets, entityType: model.EntityTarget, source: model.SourcePrimaryAPI},
		{name: "drugs", searcher: s.Drugs, entityType: model.EntityDrug, source: model.SourcePrimaryAPI},
		{name: "drug-candidates", searcher: s.DrugCandidates, entityType: model.EntityDrug, source: model.SourceSecondaryAPI},
	}
}
