package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"book-orchestrator/internal/domain"
)

const enqueueJobQuery = `
	INSERT INTO ingest_jobs (id, corpus_id, source_path, source_id, source_text, status, units_created, enqueued_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// acquireNextJobQuery claims the oldest queued job and flips it to running in
// one statement. SKIP LOCKED keeps concurrent workers from blocking on the
// same row.
const acquireNextJobQuery = `
	WITH next_job AS (
		SELECT id
		FROM ingest_jobs
		WHERE status = 'queued'
		ORDER BY enqueued_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE ingest_jobs
	SET status = 'running', started_at = $1
	FROM next_job
	WHERE ingest_jobs.id = next_job.id
	RETURNING ingest_jobs.id, ingest_jobs.corpus_id, ingest_jobs.source_path, ingest_jobs.source_id,
	          ingest_jobs.source_text, ingest_jobs.status, ingest_jobs.error_message,
	          ingest_jobs.units_created, ingest_jobs.enqueued_at, ingest_jobs.started_at, ingest_jobs.finished_at
`

const markJobDoneQuery = `
	UPDATE ingest_jobs
	SET status = 'done', units_created = $2, finished_at = $3
	WHERE id = $1
`

const markJobErrorQuery = `
	UPDATE ingest_jobs
	SET status = 'error', error_message = $2, finished_at = $3
	WHERE id = $1
`

const getJobQuery = `
	SELECT id, corpus_id, source_path, source_id, source_text, status, error_message,
	       units_created, enqueued_at, started_at, finished_at
	FROM ingest_jobs
	WHERE id = $1
`

type IngestJobRepository struct {
	db DBPool
}

func NewIngestJobRepository(db DBPool) domain.IngestJobRepository {
	return &IngestJobRepository{db: db}
}

func (r *IngestJobRepository) Enqueue(ctx context.Context, job *domain.IngestJob) error {
	_, err := r.db.Exec(ctx, enqueueJobQuery,
		job.ID,
		job.CorpusID,
		job.SourcePath,
		job.SourceID,
		job.SourceText,
		job.Status,
		job.UnitsCreated,
		job.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (r *IngestJobRepository) AcquireNext(ctx context.Context) (*domain.IngestJob, error) {
	row := r.db.QueryRow(ctx, acquireNextJobQuery, time.Now())

	var job domain.IngestJob
	err := row.Scan(
		&job.ID,
		&job.CorpusID,
		&job.SourcePath,
		&job.SourceID,
		&job.SourceText,
		&job.Status,
		&job.ErrorMessage,
		&job.UnitsCreated,
		&job.EnqueuedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire next job: %w", err)
	}

	return &job, nil
}

func (r *IngestJobRepository) MarkDone(ctx context.Context, id uuid.UUID, unitsCreated int) error {
	_, err := r.db.Exec(ctx, markJobDoneQuery, id, unitsCreated, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	return nil
}

func (r *IngestJobRepository) MarkError(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.Exec(ctx, markJobErrorQuery, id, errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark job error: %w", err)
	}
	return nil
}

func (r *IngestJobRepository) Get(ctx context.Context, id uuid.UUID) (*domain.IngestJob, error) {
	row := r.db.QueryRow(ctx, getJobQuery, id)

	var job domain.IngestJob
	err := row.Scan(
		&job.ID,
		&job.CorpusID,
		&job.SourcePath,
		&job.SourceID,
		&job.SourceText,
		&job.Status,
		&job.ErrorMessage,
		&job.UnitsCreated,
		&job.EnqueuedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}
