package bookhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"book-orchestrator/internal/infra/logger"
	"book-orchestrator/internal/infra/otelx"
	"book-orchestrator/internal/usecase"
)

const (
	healthCheckTimeout = 5 * time.Second

	// healthProbeCorpus is a corpus id that never exists. Counting it proves
	// the vector table is queryable without touching real data.
	healthProbeCorpus = "healthcheck"
)

// DBPinger reports database liveness. *pgxpool.Pool satisfies it.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ModelPinger reports reachability of the upstream model API.
type ModelPinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	answerUsecase usecase.AnswerUsecase
	ingestJobs    usecase.IngestJobsUsecase
	corpusUnits   usecase.CorpusUnitsUsecase
	purgeCorpus   usecase.PurgeCorpusUsecase
	db            DBPinger
	modelAPI      ModelPinger
	metrics       *otelx.Metrics
	validate      *validator.Validate
	cl            *logger.ContextLogger
}

func NewHandler(
	answerUsecase usecase.AnswerUsecase,
	ingestJobs usecase.IngestJobsUsecase,
	corpusUnits usecase.CorpusUnitsUsecase,
	purgeCorpus usecase.PurgeCorpusUsecase,
	db DBPinger,
	modelAPI ModelPinger,
	metrics *otelx.Metrics,
) *Handler {
	return &Handler{
		answerUsecase: answerUsecase,
		ingestJobs:    ingestJobs,
		corpusUnits:   corpusUnits,
		purgeCorpus:   purgeCorpus,
		db:            db,
		modelAPI:      modelAPI,
		metrics:       metrics,
		validate:      validator.New(),
		cl:            logger.NewContextLogger("book-orchestrator"),
	}
}

// Answer a question against the indexed corpus
// (POST /v1/chat)
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if req.CorpusID != "" {
		ctx = logger.WithCorpusID(ctx, req.CorpusID)
	}

	output, err := h.answerUsecase.Execute(ctx, req.toDomain())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	h.metrics.RecordQuery(ctx, string(output.ModeUsed), output.Refused, string(output.Category), output.LatencyMS/1000)
	h.cl.WithContext(ctx).Info("chat answered",
		"mode", string(output.ModeUsed),
		"units_used", output.UnitsUsed,
		"refused", output.Refused,
		"latency_ms", output.LatencyMS)

	return c.JSON(http.StatusOK, toChatResponse(output))
}

// Stream an answer as SSE: delta events, then one final event
// (POST /v1/chat/stream)
func (h *Handler) ChatStream(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if req.CorpusID != "" {
		ctx = logger.WithCorpusID(ctx, req.CorpusID)
	}

	setStreamingHeaders(c)

	for event := range h.answerUsecase.Stream(ctx, req.toDomain()) {
		var payload interface{}
		switch event.Kind {
		case usecase.StreamEventKindDelta:
			delta, _ := event.Payload.(string)
			payload = streamDelta{Delta: delta}
		case usecase.StreamEventKindFinal:
			output, ok := event.Payload.(*usecase.AnswerOutput)
			if !ok {
				continue
			}
			h.metrics.RecordQuery(ctx, string(output.ModeUsed), output.Refused, string(output.Category), output.LatencyMS/1000)
			payload = toStreamFinal(output)
		case usecase.StreamEventKindError:
			message, _ := event.Payload.(string)
			payload = streamError{Message: message}
		default:
			continue
		}
		if err := writeSSE(c, string(event.Kind), payload); err != nil {
			h.cl.WithContext(ctx).Warn("chat stream aborted", "error", err.Error())
			return err
		}
	}
	return nil
}

// Enqueue an ingestion job
// (POST /v1/ingest)
func (h *Handler) Ingest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	job, err := h.ingestJobs.Enqueue(c.Request().Context(), usecase.IngestCorpusInput{
		CorpusID:   req.CorpusID,
		SourcePath: req.SourcePath,
		SourceID:   req.SourceID,
		SourceText: req.Text,
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ctx := logger.WithJobID(logger.WithCorpusID(c.Request().Context(), job.CorpusID), job.ID.String())
	h.cl.WithContext(ctx).Info("ingest job accepted", "source_path", job.SourcePath)

	return c.JSON(http.StatusAccepted, map[string]string{"job_id": job.ID.String(), "status": job.Status})
}

// Report the status of one ingestion job
// (GET /v1/ingest/jobs/:id)
func (h *Handler) GetIngestJob(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	job, err := h.ingestJobs.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	return c.JSON(http.StatusOK, toJobResponse(job))
}

// Page the stored units of a corpus, ordered by position
// (GET /v1/corpora/:corpus_id/units)
func (h *Handler) ListCorpusUnits(c echo.Context) error {
	corpusID := c.Param("corpus_id")

	limit, err := queryInt(c, "limit")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid offset"})
	}

	ctx := logger.WithCorpusID(c.Request().Context(), corpusID)
	units, err := h.corpusUnits.List(ctx, corpusID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	count, err := h.corpusUnits.Count(ctx, corpusID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, UnitListResponse{
		CorpusID: corpusID,
		Units:    toUnitDTOs(units),
		Count:    count,
	})
}

// Remove a corpus from the index and the metadata store
// (DELETE /v1/corpora/:corpus_id)
func (h *Handler) PurgeCorpus(c echo.Context) error {
	corpusID := c.Param("corpus_id")

	ctx := logger.WithCorpusID(c.Request().Context(), corpusID)
	report, err := h.purgeCorpus.Execute(ctx, corpusID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, PurgeResponse{
		CorpusID:        corpusID,
		UnitsDeleted:    report.UnitsDeleted,
		MetadataDeleted: report.MetadataDeleted,
	})
}

// Deep health: DB, model API and vector table checked in parallel
// (GET /v1/health)
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	var dbOK, modelOK, indexOK bool
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbOK = h.db.Ping(gCtx) == nil
		return nil
	})
	g.Go(func() error {
		modelOK = h.modelAPI.Ping(gCtx) == nil
		return nil
	})
	g.Go(func() error {
		_, err := h.corpusUnits.Count(gCtx, healthProbeCorpus)
		indexOK = err == nil
		return nil
	})
	_ = g.Wait()

	status := "ok"
	code := http.StatusOK
	if !dbOK || !modelOK || !indexOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, HealthResponse{
		Status:            status,
		DatabaseConnected: dbOK,
		ModelAPIConnected: modelOK,
		IndexReady:        indexOK,
	})
}

// Liveness probe
// (GET /healthz)
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness probe: DB only
// (GET /readyz)
func (h *Handler) Readyz(c echo.Context) error {
	if err := h.db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func setStreamingHeaders(c echo.Context) {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
}

func writeSSE(c echo.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(c.Response().Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event, err)
	}
	c.Response().Flush()
	return nil
}
