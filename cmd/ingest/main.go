package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"book-orchestrator/internal/di"
	"book-orchestrator/internal/infra"
	"book-orchestrator/internal/infra/config"
	"book-orchestrator/internal/infra/logger"
	"book-orchestrator/internal/usecase"
)

var (
	version = "dev"

	// Run command flags
	sourcePath string
	corpusID   string
	sourceID   string

	// Status command flags
	jobID string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Ingest book corpora into the vector index",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Segment, embed and index a corpus",
	Long: `Run ingestion synchronously against the database and the model API.

A directory ingests every .md, .mdx and .txt file inside it; a single
file ingests just that file. Re-running replaces the stored corpus.

Examples:
  # Ingest a book directory; corpus id derived from the path
  ingest run --path /books/go-guide

  # Ingest one file under an explicit corpus id
  ingest run --path notes.md --corpus-id notes`,
	RunE: runIngest,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete a corpus from the index and the metadata store",
	RunE:  runWipe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of an ingest job",
	RunE:  showStatus,
}

func init() {
	runCmd.Flags().StringVar(&sourcePath, "path", "", "file or directory to ingest")
	runCmd.Flags().StringVar(&corpusID, "corpus-id", "", "corpus id (derived from path when empty)")
	runCmd.Flags().StringVar(&sourceID, "source-id", "", "source id override for single-file ingestion")
	_ = runCmd.MarkFlagRequired("path")

	wipeCmd.Flags().StringVar(&corpusID, "corpus-id", "", "corpus to delete")
	_ = wipeCmd.MarkFlagRequired("corpus-id")

	statusCmd.Flags().StringVar(&jobID, "job-id", "", "ingest job id")
	_ = statusCmd.MarkFlagRequired("job-id")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(statusCmd)
}

// setup builds the component graph the same way the server does, minus
// telemetry. The returned cleanup closes the pool.
func setup(ctx context.Context) (*di.ApplicationComponents, func(), error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not load .env file", "error", err)
	}
	cfg := config.Load()

	log := logger.New()
	slog.SetDefault(log)

	pool, err := infra.NewPostgresDB(ctx, cfg.DB.DSN(), infra.PoolConfig{
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	components := di.NewApplicationComponents(cfg, pool, nil, log)
	return components, pool.Close, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := components.IngestUsecase.Execute(ctx, usecase.IngestCorpusInput{
		CorpusID:   corpusID,
		SourcePath: sourcePath,
		SourceID:   sourceID,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested corpus %s: %d units from %d sources in %s\n",
		report.CorpusID, report.UnitsCreated, report.SourcesRead, report.Elapsed.Round(time.Millisecond))
	return nil
}

func runWipe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := components.PurgeUsecase.Execute(ctx, corpusID)
	if err != nil {
		return fmt.Errorf("wipe failed: %w", err)
	}

	fmt.Printf("Wiped corpus %s: %d index rows, %d metadata rows\n",
		corpusID, report.UnitsDeleted, report.MetadataDeleted)
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", jobID, err)
	}

	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	job, err := components.IngestJobsUsecase.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	fmt.Printf("Job %s\n", job.ID)
	fmt.Printf("  corpus:   %s\n", job.CorpusID)
	fmt.Printf("  status:   %s\n", job.Status)
	fmt.Printf("  enqueued: %s\n", job.EnqueuedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  started:  %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.FinishedAt != nil {
		fmt.Printf("  finished: %s\n", job.FinishedAt.Format(time.RFC3339))
	}
	if job.UnitsCreated > 0 {
		fmt.Printf("  units:    %d\n", job.UnitsCreated)
	}
	if job.ErrorMessage != nil {
		fmt.Printf("  error:    %s\n", *job.ErrorMessage)
	}
	return nil
}
