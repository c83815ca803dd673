package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/infra/otelx"
)

// An empty corpus argument disables the corpus filter and searches everything.
const searchUnitsQuery = `
	SELECT unit_id, corpus_id, source_id, chapter, section, position, text, token_estimate,
	       1 - (embedding <=> $1) AS score
	FROM book_units
	WHERE ($2 = '' OR corpus_id = $2)
	ORDER BY embedding <=> $1
	LIMIT $3
`

const searchUnitsWithFloorQuery = `
	SELECT unit_id, corpus_id, source_id, chapter, section, position, text, token_estimate,
	       1 - (embedding <=> $1) AS score
	FROM book_units
	WHERE ($2 = '' OR corpus_id = $2)
	  AND 1 - (embedding <=> $1) >= $4
	ORDER BY embedding <=> $1
	LIMIT $3
`

const deleteUnitsByCorpusQuery = `
	DELETE FROM book_units
	WHERE corpus_id = $1
`

const countUnitsByCorpusQuery = `
	SELECT COUNT(*)
	FROM book_units
	WHERE corpus_id = $1
`

type unitIndexRepository struct {
	pool    DBPool
	metrics *otelx.Metrics
}

// NewUnitIndexRepository creates the pgvector-backed unit index.
func NewUnitIndexRepository(pool DBPool, metrics *otelx.Metrics) domain.UnitIndex {
	return &unitIndexRepository{pool: pool, metrics: metrics}
}

func (r *unitIndexRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *unitIndexRepository) Search(ctx context.Context, queryVector []float32, corpusID string, limit int, scoreFloor *float64) ([]domain.ScoredUnit, error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordRetrieval(ctx, time.Since(start).Seconds())
	}()

	vec := pgvector.NewVector(queryVector)

	var rows pgx.Rows
	var err error
	if scoreFloor != nil {
		rows, err = r.getExecutor(ctx).Query(ctx, searchUnitsWithFloorQuery, vec, corpusID, limit, *scoreFloor)
	} else {
		rows, err = r.getExecutor(ctx).Query(ctx, searchUnitsQuery, vec, corpusID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}
	defer rows.Close()

	var units []domain.ScoredUnit
	for rows.Next() {
		var u domain.ScoredUnit
		if err := rows.Scan(&u.UnitID, &u.CorpusID, &u.SourceID, &u.Chapter, &u.Section, &u.Position, &u.Text, &u.TokenEstimate, &u.Score); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return units, nil
}

func (r *unitIndexRepository) BulkInsertUnits(ctx context.Context, units []domain.TextUnit) error {
	if len(units) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(units))
	for i, unit := range units {
		rows[i] = []interface{}{
			// The row UUID derives from corpus and ordinal, so re-ingesting
			// a corpus reproduces the same IDs.
			domain.UnitUUID(unit.CorpusID, unit.Position),
			unit.UnitID,
			unit.CorpusID,
			unit.SourceID,
			unit.Chapter,
			unit.Section,
			unit.Position,
			unit.Text,
			unit.TokenEstimate,
			unit.Embedding,
		}
	}

	// created_at is filled by the column default.
	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"book_units"},
		[]string{"id", "unit_id", "corpus_id", "source_id", "chapter", "section", "position", "text", "token_estimate", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert units: %w", err)
	}

	return nil
}

func (r *unitIndexRepository) DeleteByCorpus(ctx context.Context, corpusID string) (int64, error) {
	tag, err := r.getExecutor(ctx).Exec(ctx, deleteUnitsByCorpusQuery, corpusID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete units: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *unitIndexRepository) CountByCorpus(ctx context.Context, corpusID string) (int64, error) {
	var count int64
	if err := r.getExecutor(ctx).QueryRow(ctx, countUnitsByCorpusQuery, corpusID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return count, nil
}
