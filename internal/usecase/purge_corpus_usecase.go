package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"book-orchestrator/internal/domain"
)

// PurgeReport summarizes a corpus removal.
type PurgeReport struct {
	UnitsDeleted    int64
	MetadataDeleted int64
}

// PurgeCorpusUsecase removes a corpus from the vector index and the metadata
// store together. Both deletes run in one transaction so a half-removed
// corpus is never observable.
type PurgeCorpusUsecase interface {
	Execute(ctx context.Context, corpusID string) (*PurgeReport, error)
}

type purgeCorpusUsecase struct {
	index     domain.UnitIndex
	metadata  domain.UnitMetadataRepository
	txManager domain.TransactionManager
}

// NewPurgeCorpusUsecase creates a PurgeCorpusUsecase.
func NewPurgeCorpusUsecase(
	index domain.UnitIndex,
	metadata domain.UnitMetadataRepository,
	txManager domain.TransactionManager,
) PurgeCorpusUsecase {
	return &purgeCorpusUsecase{
		index:     index,
		metadata:  metadata,
		txManager: txManager,
	}
}

func (u *purgeCorpusUsecase) Execute(ctx context.Context, corpusID string) (*PurgeReport, error) {
	if strings.TrimSpace(corpusID) == "" {
		return nil, fmt.Errorf("corpus id is required")
	}

	report := &PurgeReport{}
	err := u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		unitsDeleted, err := u.index.DeleteByCorpus(ctx, corpusID)
		if err != nil {
			return fmt.Errorf("failed to delete corpus units: %w", err)
		}
		metadataDeleted, err := u.metadata.DeleteByCorpus(ctx, corpusID)
		if err != nil {
			return fmt.Errorf("failed to delete unit metadata: %w", err)
		}
		report.UnitsDeleted = unitsDeleted
		report.MetadataDeleted = metadataDeleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("corpus purged",
		slog.String("corpus_id", corpusID),
		slog.Int64("units_deleted", report.UnitsDeleted),
		slog.Int64("metadata_deleted", report.MetadataDeleted))
	return report, nil
}
