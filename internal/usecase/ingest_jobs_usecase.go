package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"book-orchestrator/internal/domain"
)

// IngestJobsUsecase is the queue-facing side of ingestion: callers enqueue
// work here and poll for its outcome while the worker drains the queue.
type IngestJobsUsecase interface {
	// Enqueue validates the input and stores a queued job.
	Enqueue(ctx context.Context, input IngestCorpusInput) (*domain.IngestJob, error)
	// Get retrieves a job by ID. Returns nil, nil if not found.
	Get(ctx context.Context, id uuid.UUID) (*domain.IngestJob, error)
}

type ingestJobsUsecase struct {
	jobs      domain.IngestJobRepository
	corpusIDs domain.CorpusIDPolicy
}

// NewIngestJobsUsecase creates an IngestJobsUsecase.
func NewIngestJobsUsecase(jobs domain.IngestJobRepository, corpusIDs domain.CorpusIDPolicy) IngestJobsUsecase {
	return &ingestJobsUsecase{jobs: jobs, corpusIDs: corpusIDs}
}

func (u *ingestJobsUsecase) Enqueue(ctx context.Context, input IngestCorpusInput) (*domain.IngestJob, error) {
	path := strings.TrimSpace(input.SourcePath)
	hasText := strings.TrimSpace(input.SourceText) != ""
	if path == "" && !hasText {
		return nil, fmt.Errorf("source path or source text is required")
	}
	if path != "" && hasText {
		return nil, fmt.Errorf("source path and source text are mutually exclusive")
	}

	corpusID := strings.TrimSpace(input.CorpusID)
	if corpusID == "" {
		if path == "" {
			return nil, fmt.Errorf("corpus id is required for inline text")
		}
		corpusID = u.corpusIDs.Derive(path)
	}

	// Reject dead paths at enqueue time instead of letting the job fail later.
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("source path not accessible: %w", err)
		}
	}

	job := &domain.IngestJob{
		ID:         uuid.New(),
		CorpusID:   corpusID,
		SourcePath: path,
		SourceID:   strings.TrimSpace(input.SourceID),
		SourceText: input.SourceText,
		Status:     domain.IngestJobQueued,
		EnqueuedAt: time.Now(),
	}
	if err := u.jobs.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue ingest job: %w", err)
	}

	slog.Info("ingest job queued",
		slog.String("job_id", job.ID.String()),
		slog.String("corpus_id", corpusID))
	return job, nil
}

func (u *ingestJobsUsecase) Get(ctx context.Context, id uuid.UUID) (*domain.IngestJob, error) {
	job, err := u.jobs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest job: %w", err)
	}
	return job, nil
}
