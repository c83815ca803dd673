package usecase

import (
	"context"
	"fmt"
	"strings"

	"book-orchestrator/internal/domain"
)

// RetrieveUnitsInput defines one retrieval request. CorpusID narrows the
// search when non-empty. ScoreFloor, when non-nil, excludes results scoring
// below it; the floor is caller-controlled so call sites can differ (the chat
// path applies the configured floor, the pinned-passage secondary pass
// applies none).
type RetrieveUnitsInput struct {
	Query      string
	CorpusID   string
	Limit      int
	ScoreFloor *float64
}

// RetrieveUnitsUsecase produces a ranked, scored set of units for a query.
type RetrieveUnitsUsecase interface {
	Execute(ctx context.Context, input RetrieveUnitsInput) ([]domain.ScoredUnit, error)
}

type retrieveUnitsUsecase struct {
	embedder     domain.Embedder
	index        domain.UnitIndex
	defaultLimit int
}

// NewRetrieveUnitsUsecase creates a new RetrieveUnitsUsecase.
func NewRetrieveUnitsUsecase(embedder domain.Embedder, index domain.UnitIndex, defaultLimit int) RetrieveUnitsUsecase {
	return &retrieveUnitsUsecase{
		embedder:     embedder,
		index:        index,
		defaultLimit: defaultLimit,
	}
}

// Execute embeds the query and runs a nearest-neighbor search. Results come
// back in the index's ranking order; no client-side re-ranking is applied.
// An empty result set is returned as-is, never as an error.
func (u *retrieveUnitsUsecase) Execute(ctx context.Context, input RetrieveUnitsInput) ([]domain.ScoredUnit, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("query is empty")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = u.defaultLimit
	}

	queryVector, err := u.embedder.Embed(ctx, input.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := u.index.Search(ctx, queryVector, input.CorpusID, limit, input.ScoreFloor)
	if err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}

	// No unit may appear twice for one query.
	seen := make(map[string]bool, len(results))
	units := make([]domain.ScoredUnit, 0, len(results))
	for _, res := range results {
		if seen[res.UnitID] {
			continue
		}
		seen[res.UnitID] = true
		units = append(units, res)
	}

	return units, nil
}
