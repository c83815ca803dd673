package bookhttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"book-orchestrator/internal/adapter/bookhttp"
	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/usecase"
)

type stubAnswerUsecase struct {
	output   *usecase.AnswerOutput
	err      error
	events   <-chan usecase.StreamEvent
	captured domain.ChatQuery
	called   bool
}

func (s *stubAnswerUsecase) Execute(ctx context.Context, query domain.ChatQuery) (*usecase.AnswerOutput, error) {
	s.called = true
	s.captured = query
	return s.output, s.err
}

func (s *stubAnswerUsecase) Stream(ctx context.Context, query domain.ChatQuery) <-chan usecase.StreamEvent {
	s.called = true
	s.captured = query
	return s.events
}

type stubIngestJobs struct {
	job      *domain.IngestJob
	enqueue  error
	getJob   *domain.IngestJob
	getErr   error
	captured usecase.IngestCorpusInput
}

func (s *stubIngestJobs) Enqueue(ctx context.Context, input usecase.IngestCorpusInput) (*domain.IngestJob, error) {
	s.captured = input
	if s.enqueue != nil {
		return nil, s.enqueue
	}
	return s.job, nil
}

func (s *stubIngestJobs) Get(ctx context.Context, id uuid.UUID) (*domain.IngestJob, error) {
	return s.getJob, s.getErr
}

type stubCorpusUnits struct {
	units          []domain.TextUnit
	count          int64
	listErr        error
	countErr       error
	capturedLimit  int
	capturedOffset int
}

func (s *stubCorpusUnits) List(ctx context.Context, corpusID string, limit, offset int) ([]domain.TextUnit, error) {
	s.capturedLimit = limit
	s.capturedOffset = offset
	return s.units, s.listErr
}

func (s *stubCorpusUnits) Count(ctx context.Context, corpusID string) (int64, error) {
	return s.count, s.countErr
}

type stubPurge struct {
	report *usecase.PurgeReport
	err    error
}

func (s *stubPurge) Execute(ctx context.Context, corpusID string) (*usecase.PurgeReport, error) {
	return s.report, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func answeredOutput() *usecase.AnswerOutput {
	chapter := "Concurrency"
	return &usecase.AnswerOutput{
		AnswerResult: domain.AnswerResult{
			Answer: "Goroutines are multiplexed onto OS threads by the runtime.",
			Citations: []domain.Citation{
				{
					UnitID:  "go-guide-3",
					Snippet: "Goroutines are multiplexed...",
					Source:  "go-guide",
					Chapter: &chapter,
					Score:   0.91,
				},
			},
			UnitsUsed: 1,
			ModeUsed:  domain.ModeWholeCorpus,
			LatencyMS: 210.5,
			ModelUsed: "command-a-03-2025",
		},
	}
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Chat(t *testing.T) {
	e := echo.New()
	answer := &stubAnswerUsecase{output: answeredOutput()}
	handler := bookhttp.NewHandler(answer, nil, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/chat", `{"query":"how do goroutines work?","corpus_id":"go-guide"}`)

	if assert.NoError(t, handler.Chat(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp bookhttp.ChatResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Goroutines are multiplexed onto OS threads by the runtime.", resp.Answer)
		assert.Equal(t, "whole_corpus", resp.Mode)
		assert.Equal(t, 1, resp.UnitsUsed)
		assert.Equal(t, "command-a-03-2025", resp.ModelUsed)
		assert.Len(t, resp.Citations, 1)
		assert.Equal(t, "go-guide-3", resp.Citations[0].UnitID)

		assert.Equal(t, domain.ModeAuto, answer.captured.Mode)
		assert.Equal(t, "go-guide", answer.captured.CorpusID)
	}
}

func TestHandler_Chat_EmptyQueryRejected(t *testing.T) {
	e := echo.New()
	answer := &stubAnswerUsecase{output: answeredOutput()}
	handler := bookhttp.NewHandler(answer, nil, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/chat", `{"corpus_id":"go-guide"}`)

	if assert.NoError(t, handler.Chat(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, answer.called)
	}
}

func TestHandler_Chat_MaxUnitsOutOfRange(t *testing.T) {
	e := echo.New()
	answer := &stubAnswerUsecase{output: answeredOutput()}
	handler := bookhttp.NewHandler(answer, nil, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/chat", `{"query":"q","max_units":21}`)

	if assert.NoError(t, handler.Chat(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, answer.called)
	}
}

func TestHandler_Chat_ExplicitModeForwarded(t *testing.T) {
	e := echo.New()
	answer := &stubAnswerUsecase{output: answeredOutput()}
	handler := bookhttp.NewHandler(answer, nil, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/chat", `{"query":"q","mode":"pinned_passage","selected_text":"some passage"}`)

	if assert.NoError(t, handler.Chat(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.ModePinnedPassage, answer.captured.Mode)
		assert.Equal(t, "some passage", answer.captured.SelectedText)
	}
}

func TestHandler_ChatStream(t *testing.T) {
	e := echo.New()

	events := make(chan usecase.StreamEvent, 3)
	events <- usecase.StreamEvent{Kind: usecase.StreamEventKindDelta, Payload: "Goroutines are multiplexe"}
	events <- usecase.StreamEvent{Kind: usecase.StreamEventKindDelta, Payload: "d onto OS threads."}
	events <- usecase.StreamEvent{Kind: usecase.StreamEventKindFinal, Payload: answeredOutput()}
	close(events)

	handler := bookhttp.NewHandler(&stubAnswerUsecase{events: events}, nil, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/chat/stream", `{"query":"how do goroutines work?"}`)

	if assert.NoError(t, handler.ChatStream(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get(echo.HeaderContentType))

		response := rec.Body.String()
		assert.Contains(t, response, "event: delta")
		assert.Contains(t, response, `"delta":"Goroutines are multiplexe"`)
		assert.Contains(t, response, "event: final")
		assert.Contains(t, response, `"model_used":"command-a-03-2025"`)
		assert.NotContains(t, response, "event: error")
	}
}

func TestHandler_ChatStream_ErrorEvent(t *testing.T) {
	e := echo.New()

	events := make(chan usecase.StreamEvent, 1)
	events <- usecase.StreamEvent{Kind: usecase.StreamEventKindError, Payload: "query is required"}
	close(events)

	handler := bookhttp.NewHandler(&stubAnswerUsecase{events: events}, nil, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/chat/stream", `{"query":"   "}`)

	if assert.NoError(t, handler.ChatStream(c)) {
		response := rec.Body.String()
		assert.Contains(t, response, "event: error")
		assert.Contains(t, response, `"message":"query is required"`)
	}
}

func TestHandler_Ingest(t *testing.T) {
	e := echo.New()
	job := &domain.IngestJob{
		ID:         uuid.New(),
		CorpusID:   "go-guide",
		SourcePath: "/books/go-guide",
		Status:     domain.IngestJobQueued,
		EnqueuedAt: time.Now(),
	}
	jobs := &stubIngestJobs{job: job}
	handler := bookhttp.NewHandler(nil, jobs, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/ingest", `{"source_path":"/books/go-guide"}`)

	if assert.NoError(t, handler.Ingest(c)) {
		assert.Equal(t, http.StatusAccepted, rec.Code)

		var resp map[string]string
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, job.ID.String(), resp["job_id"])
		assert.Equal(t, "queued", resp["status"])
		assert.Equal(t, "/books/go-guide", jobs.captured.SourcePath)
	}
}

func TestHandler_Ingest_MissingSourceRejected(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, &stubIngestJobs{}, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/ingest", `{}`)

	if assert.NoError(t, handler.Ingest(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_Ingest_PathAndTextRejected(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, &stubIngestJobs{}, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/ingest", `{"corpus_id":"x","source_path":"/books/x","text":"inline"}`)

	if assert.NoError(t, handler.Ingest(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_Ingest_InlineTextNeedsCorpusID(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, &stubIngestJobs{}, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/ingest", `{"text":"inline content"}`)

	if assert.NoError(t, handler.Ingest(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_Ingest_MissingPathIsBadRequest(t *testing.T) {
	e := echo.New()
	jobs := &stubIngestJobs{enqueue: fmt.Errorf("source path not accessible: %w", os.ErrNotExist)}
	handler := bookhttp.NewHandler(nil, jobs, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/ingest", `{"source_path":"/books/missing"}`)

	if assert.NoError(t, handler.Ingest(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_Ingest_RepositoryFailureIs500(t *testing.T) {
	e := echo.New()
	jobs := &stubIngestJobs{enqueue: errors.New("failed to enqueue ingest job: connection refused")}
	handler := bookhttp.NewHandler(nil, jobs, nil, nil, nil, nil, nil)

	c, rec := postJSON(e, "/v1/ingest", `{"source_path":"/books/go-guide"}`)

	if assert.NoError(t, handler.Ingest(c)) {
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
}

func TestHandler_GetIngestJob(t *testing.T) {
	e := echo.New()
	errMsg := "embedder unreachable"
	finished := time.Now()
	job := &domain.IngestJob{
		ID:           uuid.New(),
		CorpusID:     "go-guide",
		Status:       domain.IngestJobError,
		ErrorMessage: &errMsg,
		FinishedAt:   &finished,
		EnqueuedAt:   time.Now().Add(-time.Minute),
	}
	handler := bookhttp.NewHandler(nil, &stubIngestJobs{getJob: job}, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ingest/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(job.ID.String())

	if assert.NoError(t, handler.GetIngestJob(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp bookhttp.JobResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, job.ID.String(), resp.ID)
		assert.Equal(t, "error", resp.Status)
		if assert.NotNil(t, resp.Error) {
			assert.Equal(t, "embedder unreachable", *resp.Error)
		}
		assert.NotNil(t, resp.FinishedAt)
	}
}

func TestHandler_GetIngestJob_NotFound(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, &stubIngestJobs{}, nil, nil, nil, nil, nil)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/v1/ingest/jobs/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if assert.NoError(t, handler.GetIngestJob(c)) {
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestHandler_GetIngestJob_InvalidID(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, &stubIngestJobs{}, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ingest/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if assert.NoError(t, handler.GetIngestJob(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_ListCorpusUnits(t *testing.T) {
	e := echo.New()
	units := &stubCorpusUnits{
		units: []domain.TextUnit{
			{UnitID: "go-guide-0", Position: 0, Text: "Go is a compiled language.", TokenEstimate: 6},
			{UnitID: "go-guide-1", Position: 1, Text: "Goroutines are cheap.", TokenEstimate: 4},
		},
		count: 12,
	}
	handler := bookhttp.NewHandler(nil, nil, units, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/corpora/go-guide/units?limit=2&offset=4", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("corpus_id")
	c.SetParamValues("go-guide")

	if assert.NoError(t, handler.ListCorpusUnits(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp bookhttp.UnitListResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "go-guide", resp.CorpusID)
		assert.Equal(t, int64(12), resp.Count)
		assert.Len(t, resp.Units, 2)
		assert.Equal(t, "go-guide-0", resp.Units[0].UnitID)

		assert.Equal(t, 2, units.capturedLimit)
		assert.Equal(t, 4, units.capturedOffset)
	}
}

func TestHandler_ListCorpusUnits_InvalidLimit(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, nil, &stubCorpusUnits{}, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/corpora/go-guide/units?limit=abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("corpus_id")
	c.SetParamValues("go-guide")

	if assert.NoError(t, handler.ListCorpusUnits(c)) {
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandler_PurgeCorpus(t *testing.T) {
	e := echo.New()
	purge := &stubPurge{report: &usecase.PurgeReport{UnitsDeleted: 7, MetadataDeleted: 7}}
	handler := bookhttp.NewHandler(nil, nil, nil, purge, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/corpora/go-guide", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("corpus_id")
	c.SetParamValues("go-guide")

	if assert.NoError(t, handler.PurgeCorpus(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp bookhttp.PurgeResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "go-guide", resp.CorpusID)
		assert.Equal(t, int64(7), resp.UnitsDeleted)
		assert.Equal(t, int64(7), resp.MetadataDeleted)
	}
}

func TestHandler_Health_AllUp(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, nil, &stubCorpusUnits{}, nil, &stubPinger{}, &stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, handler.Health(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp bookhttp.HealthResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.DatabaseConnected)
		assert.True(t, resp.ModelAPIConnected)
		assert.True(t, resp.IndexReady)
	}
}

func TestHandler_Health_DegradedWhenDBDown(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, nil, &stubCorpusUnits{}, nil,
		&stubPinger{err: errors.New("connection refused")}, &stubPinger{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, handler.Health(c)) {
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp bookhttp.HealthResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.False(t, resp.DatabaseConnected)
		assert.True(t, resp.ModelAPIConnected)
	}
}

func TestHandler_Readyz(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, nil, nil, nil, &stubPinger{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, handler.Readyz(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestHandler_Readyz_DBDown(t *testing.T) {
	e := echo.New()
	handler := bookhttp.NewHandler(nil, nil, nil, nil, &stubPinger{err: errors.New("dial error")}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if assert.NoError(t, handler.Readyz(c)) {
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}
}
