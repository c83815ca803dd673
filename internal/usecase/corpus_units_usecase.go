package usecase

import (
	"context"
	"fmt"
	"strings"

	"book-orchestrator/internal/domain"
)

const (
	defaultUnitPageSize = 100
	maxUnitPageSize     = 500
)

// CorpusUnitsUsecase exposes stored units for inspection. Listing reads the
// metadata mirror; counting asks the vector index, which is the source of
// truth for what is searchable.
type CorpusUnitsUsecase interface {
	List(ctx context.Context, corpusID string, limit, offset int) ([]domain.TextUnit, error)
	Count(ctx context.Context, corpusID string) (int64, error)
}

type corpusUnitsUsecase struct {
	metadata domain.UnitMetadataRepository
	index    domain.UnitIndex
}

// NewCorpusUnitsUsecase creates a CorpusUnitsUsecase.
func NewCorpusUnitsUsecase(metadata domain.UnitMetadataRepository, index domain.UnitIndex) CorpusUnitsUsecase {
	return &corpusUnitsUsecase{metadata: metadata, index: index}
}

func (u *corpusUnitsUsecase) List(ctx context.Context, corpusID string, limit, offset int) ([]domain.TextUnit, error) {
	if strings.TrimSpace(corpusID) == "" {
		return nil, fmt.Errorf("corpus id is required")
	}
	if limit <= 0 {
		limit = defaultUnitPageSize
	}
	if limit > maxUnitPageSize {
		limit = maxUnitPageSize
	}
	if offset < 0 {
		offset = 0
	}

	units, err := u.metadata.ListByCorpus(ctx, corpusID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus units: %w", err)
	}
	return units, nil
}

func (u *corpusUnitsUsecase) Count(ctx context.Context, corpusID string) (int64, error) {
	if strings.TrimSpace(corpusID) == "" {
		return 0, fmt.Errorf("corpus id is required")
	}
	count, err := u.index.CountByCorpus(ctx, corpusID)
	if err != nil {
		return 0, fmt.Errorf("failed to count corpus units: %w", err)
	}
	return count, nil
}
