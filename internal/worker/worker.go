package worker

import (
	"context"
	"log/slog"
	"time"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/infra/otelx"
	"book-orchestrator/internal/usecase"
)

const (
	defaultPollInterval = 1 * time.Second
	jobTimeout          = 10 * time.Minute
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker drains the ingest job queue. One claimed job runs at a time;
// repeated failures stretch the poll interval up to maxBackoff.
type JobWorker struct {
	jobRepo  domain.IngestJobRepository
	ingest   usecase.IngestCorpusUsecase
	metrics  *otelx.Metrics
	logger   *slog.Logger
	stopChan chan struct{}
	backoff  time.Duration
}

func NewJobWorker(
	jobRepo domain.IngestJobRepository,
	ingest usecase.IngestCorpusUsecase,
	metrics *otelx.Metrics,
	logger *slog.Logger,
) *JobWorker {
	return &JobWorker{
		jobRepo:  jobRepo,
		ingest:   ingest,
		metrics:  metrics,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("Starting ingest JobWorker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("Stopping ingest JobWorker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNext(ctx)
	if err != nil {
		w.logger.Error("Failed to acquire next ingest job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	w.logger.Info("Processing ingest job", "job_id", job.ID, "corpus_id", job.CorpusID)

	report, processErr := w.ingest.Execute(ctx, usecase.IngestCorpusInput{
		CorpusID:   job.CorpusID,
		SourcePath: job.SourcePath,
		SourceID:   job.SourceID,
		SourceText: job.SourceText,
	})

	if processErr != nil {
		w.backoff = w.nextBackoff(w.backoff)
		w.metrics.RecordIngestError(ctx)
		w.logger.Warn("Ingest job failed, worker backing off",
			"job_id", job.ID, "backoff", w.backoff, "error", processErr)
		if err := w.jobRepo.MarkError(ctx, job.ID, processErr.Error()); err != nil {
			w.logger.Error("Failed to mark ingest job failed", "job_id", job.ID, "error", err)
		}
		return
	}

	w.backoff = 0
	w.metrics.RecordUnitsIngested(ctx, int64(report.UnitsCreated))
	w.logger.Info("Ingest job completed",
		"job_id", job.ID, "units_created", report.UnitsCreated, "elapsed", report.Elapsed)
	if err := w.jobRepo.MarkDone(ctx, job.ID, report.UnitsCreated); err != nil {
		w.logger.Error("Failed to mark ingest job done", "job_id", job.ID, "error", err)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
