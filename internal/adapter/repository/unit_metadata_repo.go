package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"book-orchestrator/internal/domain"
)

const upsertUnitMetadataQuery = `
	INSERT INTO book_unit_metadata (unit_id, corpus_id, source_id, chapter, section, position, text, token_estimate)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (unit_id) DO UPDATE
	SET text = EXCLUDED.text,
	    chapter = EXCLUDED.chapter,
	    section = EXCLUDED.section,
	    position = EXCLUDED.position
`

const getUnitMetadataQuery = `
	SELECT unit_id, corpus_id, source_id, chapter, section, position, text, token_estimate, created_at
	FROM book_unit_metadata
	WHERE unit_id = $1
`

const listUnitMetadataQuery = `
	SELECT unit_id, corpus_id, source_id, chapter, section, position, text, token_estimate, created_at
	FROM book_unit_metadata
	WHERE corpus_id = $1
	ORDER BY position ASC
	LIMIT $2 OFFSET $3
`

const deleteUnitMetadataQuery = `
	DELETE FROM book_unit_metadata
	WHERE corpus_id = $1
`

type unitMetadataRepository struct {
	pool DBPool
}

// NewUnitMetadataRepository creates the relational metadata mirror.
func NewUnitMetadataRepository(pool DBPool) domain.UnitMetadataRepository {
	return &unitMetadataRepository{pool: pool}
}

func (r *unitMetadataRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *unitMetadataRepository) UpsertUnit(ctx context.Context, unit domain.TextUnit) error {
	_, err := r.getExecutor(ctx).Exec(ctx, upsertUnitMetadataQuery,
		unit.UnitID,
		unit.CorpusID,
		unit.SourceID,
		unit.Chapter,
		unit.Section,
		unit.Position,
		unit.Text,
		unit.TokenEstimate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert unit metadata: %w", err)
	}
	return nil
}

func (r *unitMetadataRepository) GetUnit(ctx context.Context, unitID string) (*domain.TextUnit, error) {
	row := r.getExecutor(ctx).QueryRow(ctx, getUnitMetadataQuery, unitID)

	var u domain.TextUnit
	err := row.Scan(&u.UnitID, &u.CorpusID, &u.SourceID, &u.Chapter, &u.Section, &u.Position, &u.Text, &u.TokenEstimate, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan unit metadata: %w", err)
	}
	return &u, nil
}

func (r *unitMetadataRepository) ListByCorpus(ctx context.Context, corpusID string, limit, offset int) ([]domain.TextUnit, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, listUnitMetadataQuery, corpusID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit metadata: %w", err)
	}
	defer rows.Close()

	var units []domain.TextUnit
	for rows.Next() {
		var u domain.TextUnit
		if err := rows.Scan(&u.UnitID, &u.CorpusID, &u.SourceID, &u.Chapter, &u.Section, &u.Position, &u.Text, &u.TokenEstimate, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unit metadata: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return units, nil
}

func (r *unitMetadataRepository) DeleteByCorpus(ctx context.Context, corpusID string) (int64, error) {
	tag, err := r.getExecutor(ctx).Exec(ctx, deleteUnitMetadataQuery, corpusID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unit metadata: %w", err)
	}
	return tag.RowsAffected(), nil
}
