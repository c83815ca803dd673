package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"book-orchestrator/internal/adapter/cohere"
	"book-orchestrator/internal/adapter/repository"
	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/infra/config"
	"book-orchestrator/internal/infra/otelx"
	"book-orchestrator/internal/usecase"
	"book-orchestrator/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Repositories
	UnitIndex    domain.UnitIndex
	UnitMetadata domain.UnitMetadataRepository
	JobRepo      domain.IngestJobRepository

	// Adapters. EmbedClient is exposed separately from the caching wrapper
	// because health checks ping the raw client.
	EmbedClient *cohere.EmbedClient
	Embedder    domain.Embedder
	ChatClient  domain.ChatClient

	// Usecases
	AnswerUsecase     usecase.AnswerUsecase
	IngestUsecase     usecase.IngestCorpusUsecase
	IngestJobsUsecase usecase.IngestJobsUsecase
	CorpusUnits       usecase.CorpusUnitsUsecase
	PurgeUsecase      usecase.PurgeCorpusUsecase

	// Worker
	Worker *worker.JobWorker
}

// NewApplicationComponents wires all dependencies from config, database pool
// and metric instruments.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, metrics *otelx.Metrics, log *slog.Logger) *ApplicationComponents {
	// Repositories
	indexRepo := repository.NewUnitIndexRepository(pool, metrics)
	metadataRepo := repository.NewUnitMetadataRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	// Model API clients share one limiter so embed and chat traffic together
	// respect the upstream quota.
	limiter := rate.NewLimiter(rate.Limit(cfg.Cohere.RateLimit), cfg.Cohere.RateBurst)
	embedClient := cohere.NewEmbedClient(
		cfg.Cohere.BaseURL, cfg.Cohere.EmbedModel, cfg.Cohere.APIKey,
		cfg.Cohere.TimeoutSeconds, limiter, log,
	)
	embedder := cohere.NewCachingEmbedder(embedClient, cfg.Cache.Size, time.Duration(cfg.Cache.TTL)*time.Minute)
	chatClient := cohere.NewChatClient(
		cfg.Cohere.BaseURL, cfg.Cohere.ChatModel, cfg.Cohere.APIKey,
		cfg.Cohere.Temperature, cfg.Cohere.MaxTokens, cfg.Cohere.TimeoutSeconds,
		limiter, log,
	)

	// Domain services
	segmenter := domain.NewParagraphSegmenter(cfg.Segment.MaxRunes, cfg.Segment.OverlapWords)
	corpusIDs := domain.NewCorpusIDPolicy()

	// Usecases
	retrieveUsecase := usecase.NewRetrieveUnitsUsecase(embedder, indexRepo, cfg.Answer.MaxUnits)
	passageUsecase := usecase.NewSelectedPassageUsecase(retrieveUsecase)
	answerUsecase := usecase.NewAnswerUsecase(retrieveUsecase, passageUsecase, chatClient, usecase.AnswerConfig{
		DefaultMaxUnits:  cfg.Answer.MaxUnits,
		ScoreFloor:       cfg.Answer.ScoreFloor,
		StreamChunkRunes: cfg.Answer.StreamChunkRunes,
	})
	purgeUsecase := usecase.NewPurgeCorpusUsecase(indexRepo, metadataRepo, txManager)
	ingestUsecase := usecase.NewIngestCorpusUsecase(segmenter, embedder, indexRepo, metadataRepo, purgeUsecase, corpusIDs)
	ingestJobsUsecase := usecase.NewIngestJobsUsecase(jobRepo, corpusIDs)
	corpusUnits := usecase.NewCorpusUnitsUsecase(metadataRepo, indexRepo)

	// Worker
	jobWorker := worker.NewJobWorker(jobRepo, ingestUsecase, metrics, log)

	return &ApplicationComponents{
		UnitIndex:         indexRepo,
		UnitMetadata:      metadataRepo,
		JobRepo:           jobRepo,
		EmbedClient:       embedClient,
		Embedder:          embedder,
		ChatClient:        chatClient,
		AnswerUsecase:     answerUsecase,
		IngestUsecase:     ingestUsecase,
		IngestJobsUsecase: ingestJobsUsecase,
		CorpusUnits:       corpusUnits,
		PurgeUsecase:      purgeUsecase,
		Worker:            jobWorker,
	}
}
