package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnitIndex is the vector index over ingested text units.
type UnitIndex interface {
	// Search returns the nearest units for the query vector, most similar
	// first. corpusID narrows to one corpus when non-empty; scoreFloor, when
	// non-nil, excludes results scoring below it. An empty result is not an
	// error.
	Search(ctx context.Context, queryVector []float32, corpusID string, limit int, scoreFloor *float64) ([]ScoredUnit, error)

	// BulkInsertUnits inserts units carrying embeddings.
	BulkInsertUnits(ctx context.Context, units []TextUnit) error

	// DeleteByCorpus removes every unit of the corpus and returns the count.
	DeleteByCorpus(ctx context.Context, corpusID string) (int64, error)

	// CountByCorpus reports the number of live units for the corpus.
	CountByCorpus(ctx context.Context, corpusID string) (int64, error)
}

// UnitMetadataRepository mirrors unit attributes into the relational audit
// store. It is never consulted on the answer path.
type UnitMetadataRepository interface {
	// UpsertUnit inserts or refreshes the metadata row keyed by UnitID.
	UpsertUnit(ctx context.Context, unit TextUnit) error

	// GetUnit retrieves one unit's metadata. Returns nil, nil if not found.
	GetUnit(ctx context.Context, unitID string) (*TextUnit, error)

	// ListByCorpus pages a corpus's units ordered by position.
	ListByCorpus(ctx context.Context, corpusID string, limit, offset int) ([]TextUnit, error)

	// DeleteByCorpus removes every metadata row of the corpus and returns
	// the count.
	DeleteByCorpus(ctx context.Context, corpusID string) (int64, error)
}

// Ingest job statuses.
const (
	IngestJobQueued  = "queued"
	IngestJobRunning = "running"
	IngestJobDone    = "done"
	IngestJobError   = "error"
)

// IngestJob is one queued corpus ingestion run. Exactly one of SourcePath and
// SourceText is set: a server-local file or directory, or inline text tagged
// with SourceID.
type IngestJob struct {
	ID           uuid.UUID
	CorpusID     string
	SourcePath   string
	SourceID     string
	SourceText   string
	Status       string
	ErrorMessage *string
	UnitsCreated int
	EnqueuedAt   time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// IngestJobRepository queues and tracks ingestion runs.
type IngestJobRepository interface {
	// Enqueue stores a new queued job.
	Enqueue(ctx context.Context, job *IngestJob) error

	// AcquireNext claims the oldest queued job and marks it running.
	// Returns nil, nil when the queue is empty.
	AcquireNext(ctx context.Context) (*IngestJob, error)

	// MarkDone finishes a job successfully.
	MarkDone(ctx context.Context, id uuid.UUID, unitsCreated int) error

	// MarkError finishes a job with a failure message.
	MarkError(ctx context.Context, id uuid.UUID, errMsg string) error

	// Get retrieves a job by ID. Returns nil, nil if not found.
	Get(ctx context.Context, id uuid.UUID) (*IngestJob, error)
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	// RunInTx executes the given function within a transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
