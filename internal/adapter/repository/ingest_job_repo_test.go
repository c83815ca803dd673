package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-orchestrator/internal/domain"
)

var jobColumns = []string{"id", "corpus_id", "source_path", "source_id", "source_text", "status", "error_message", "units_created", "enqueued_at", "started_at", "finished_at"}

func TestIngestJobRepository_Enqueue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)

	job := &domain.IngestJob{
		ID:         uuid.New(),
		CorpusID:   "corpus-1",
		SourcePath: "/books/go-guide",
		Status:     domain.IngestJobQueued,
		EnqueuedAt: time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta(enqueueJobQuery)).
		WithArgs(job.ID, "corpus-1", "/books/go-guide", "", "", domain.IngestJobQueued, 0, job.EnqueuedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Enqueue(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestJobRepository_AcquireNext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)

	jobID := uuid.New()
	enqueuedAt := time.Now().Add(-time.Minute)
	startedAt := time.Now()

	rows := pgxmock.NewRows(jobColumns).
		AddRow(jobID, "corpus-1", "/books/go-guide", "", "", domain.IngestJobRunning, (*string)(nil), 0, enqueuedAt, &startedAt, (*time.Time)(nil))

	mock.ExpectQuery(regexp.QuoteMeta(acquireNextJobQuery)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(rows)

	job, err := repo.AcquireNext(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, domain.IngestJobRunning, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestJobRepository_AcquireNext_EmptyQueue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(acquireNextJobQuery)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	job, err := repo.AcquireNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestJobRepository_MarkDone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)
	jobID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(markJobDoneQuery)).
		WithArgs(jobID, 42, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkDone(context.Background(), jobID, 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestJobRepository_MarkError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)
	jobID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(markJobErrorQuery)).
		WithArgs(jobID, "embedder unreachable", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkError(context.Background(), jobID, "embedder unreachable"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestJobRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)

	jobID := uuid.New()
	enqueuedAt := time.Now().Add(-time.Hour)
	startedAt := enqueuedAt.Add(time.Second)
	finishedAt := startedAt.Add(time.Minute)
	errMsg := "source path not accessible"

	rows := pgxmock.NewRows(jobColumns).
		AddRow(jobID, "corpus-1", "/books/missing", "", "", domain.IngestJobError, &errMsg, 0, enqueuedAt, &startedAt, &finishedAt)

	mock.ExpectQuery(regexp.QuoteMeta(getJobQuery)).
		WithArgs(jobID).
		WillReturnRows(rows)

	job, err := repo.Get(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, domain.IngestJobError, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "source path not accessible", *job.ErrorMessage)
	require.NotNil(t, job.FinishedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestJobRepository_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIngestJobRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(getJobQuery)).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	job, err := repo.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, job)

	require.NoError(t, mock.ExpectationsWereMet())
}
