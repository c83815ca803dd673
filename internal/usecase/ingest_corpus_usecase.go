package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"book-orchestrator/internal/domain"
)

const (
	// embedBatchSize is how many unit texts go to the embedder per call.
	embedBatchSize = 10
	// insertBatchSize is how many units go to the index per bulk insert.
	insertBatchSize = 50
	// insertRetryDelay is the pause before the single retry of a failed
	// batch insert. A second failure aborts the run.
	insertRetryDelay = 2 * time.Second
)

// sourceExtensions are the file types picked up when walking a directory.
var sourceExtensions = map[string]bool{
	".md":  true,
	".mdx": true,
	".txt": true,
}

// IngestCorpusInput names the material to ingest. SourcePath points at a
// server-local file or directory; when it is empty, SourceText supplies the
// content inline and SourceID labels it. CorpusID may be left empty with a
// path, in which case it is derived from the path.
type IngestCorpusInput struct {
	CorpusID   string
	SourcePath string
	SourceID   string
	SourceText string
}

// IngestReport summarizes a finished ingestion run.
type IngestReport struct {
	CorpusID     string
	SourcesRead  int
	UnitsCreated int
	Elapsed      time.Duration
}

// IngestCorpusUsecase runs the ingestion pipeline: discover sources, segment,
// embed, then replace the previous corpus contents. Re-running with the same
// input converges on the same stored state.
type IngestCorpusUsecase interface {
	Execute(ctx context.Context, input IngestCorpusInput) (*IngestReport, error)
}

type ingestCorpusUsecase struct {
	segmenter domain.Segmenter
	embedder  domain.Embedder
	index     domain.UnitIndex
	metadata  domain.UnitMetadataRepository
	purge     PurgeCorpusUsecase
	corpusIDs domain.CorpusIDPolicy
}

// NewIngestCorpusUsecase creates an IngestCorpusUsecase.
func NewIngestCorpusUsecase(
	segmenter domain.Segmenter,
	embedder domain.Embedder,
	index domain.UnitIndex,
	metadata domain.UnitMetadataRepository,
	purge PurgeCorpusUsecase,
	corpusIDs domain.CorpusIDPolicy,
) IngestCorpusUsecase {
	return &ingestCorpusUsecase{
		segmenter: segmenter,
		embedder:  embedder,
		index:     index,
		metadata:  metadata,
		purge:     purge,
		corpusIDs: corpusIDs,
	}
}

func (u *ingestCorpusUsecase) Execute(ctx context.Context, input IngestCorpusInput) (*IngestReport, error) {
	start := time.Now()

	// 1. Resolve corpus identity
	corpusID := strings.TrimSpace(input.CorpusID)
	if corpusID == "" {
		if strings.TrimSpace(input.SourcePath) == "" {
			return nil, fmt.Errorf("corpus id is required for inline text")
		}
		corpusID = u.corpusIDs.Derive(input.SourcePath)
	}

	// 2. Collect and segment the sources
	units, sourcesRead, err := u.collectUnits(input)
	if err != nil {
		return nil, err
	}

	// 3. Renumber across the whole corpus. Unit identity follows the
	// corpus-wide ordinal, not the per-file one.
	for i := range units {
		units[i].UnitID = domain.UnitKey(corpusID, i)
		units[i].CorpusID = corpusID
		units[i].Position = i
	}

	// 4. Embed
	if err := u.embedUnits(ctx, units); err != nil {
		return nil, err
	}

	// 5. Drop the previous contents, then store. Embedding happens first so
	// the old corpus keeps serving queries through the slow stage.
	if _, err := u.purge.Execute(ctx, corpusID); err != nil {
		return nil, fmt.Errorf("failed to purge previous corpus contents: %w", err)
	}
	if err := u.storeUnits(ctx, units); err != nil {
		return nil, err
	}

	// 6. Mirror metadata for listing and audit
	if err := u.storeMetadata(ctx, units); err != nil {
		return nil, err
	}

	report := &IngestReport{
		CorpusID:     corpusID,
		SourcesRead:  sourcesRead,
		UnitsCreated: len(units),
		Elapsed:      time.Since(start),
	}
	slog.Info("corpus ingested",
		slog.String("corpus_id", corpusID),
		slog.Int("sources_read", report.SourcesRead),
		slog.Int("units_created", report.UnitsCreated),
		slog.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (u *ingestCorpusUsecase) collectUnits(input IngestCorpusInput) ([]domain.TextUnit, int, error) {
	if strings.TrimSpace(input.SourcePath) == "" {
		sourceID := strings.TrimSpace(input.SourceID)
		if sourceID == "" {
			sourceID = "inline"
		}
		units, err := u.segmenter.Segment(input.SourceText, sourceID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to segment inline text: %w", err)
		}
		return units, 1, nil
	}

	files, err := discoverSourceFiles(input.SourcePath)
	if err != nil {
		return nil, 0, err
	}

	var all []domain.TextUnit
	read := 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable source file",
				slog.String("path", path), slog.String("reason", err.Error()))
			continue
		}
		units, err := u.segmenter.Segment(string(raw), path)
		if err != nil {
			slog.Warn("skipping source file that failed to segment",
				slog.String("path", path), slog.String("reason", err.Error()))
			continue
		}
		all = append(all, units...)
		read++
	}
	return all, read, nil
}

// discoverSourceFiles returns the book files under root in stable order. A
// root that is itself a file is taken as-is regardless of extension.
func discoverSourceFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source path not accessible: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source path: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (u *ingestCorpusUsecase) embedUnits(ctx context.Context, units []domain.TextUnit) error {
	for lo := 0; lo < len(units); lo += embedBatchSize {
		hi := min(lo+embedBatchSize, len(units))
		texts := make([]string, 0, hi-lo)
		for _, unit := range units[lo:hi] {
			texts = append(texts, unit.Text)
		}

		embeddings, err := u.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed units %d-%d: %w", lo, hi, err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embeddings count mismatch: got %d for %d units", len(embeddings), len(texts))
		}
		for i, embedding := range embeddings {
			units[lo+i].Embedding = pgvector.NewVector(embedding)
		}
		slog.Debug("embedded units", slog.Int("done", hi), slog.Int("total", len(units)))
	}
	return nil
}

func (u *ingestCorpusUsecase) storeUnits(ctx context.Context, units []domain.TextUnit) error {
	for lo := 0; lo < len(units); lo += insertBatchSize {
		hi := min(lo+insertBatchSize, len(units))
		batch := units[lo:hi]

		if err := u.index.BulkInsertUnits(ctx, batch); err != nil {
			slog.Warn("unit batch insert failed, retrying once",
				slog.Int("from", lo), slog.Int("to", hi), slog.String("reason", err.Error()))
			select {
			case <-time.After(insertRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := u.index.BulkInsertUnits(ctx, batch); err != nil {
				return fmt.Errorf("failed to insert units %d-%d after retry: %w", lo, hi, err)
			}
		}
	}
	return nil
}

func (u *ingestCorpusUsecase) storeMetadata(ctx context.Context, units []domain.TextUnit) error {
	for _, unit := range units {
		if err := u.metadata.UpsertUnit(ctx, unit); err != nil {
			return fmt.Errorf("failed to upsert metadata for %q: %w", unit.UnitID, err)
		}
	}
	return nil
}
