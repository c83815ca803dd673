package bookhttp

import (
	"time"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/usecase"
)

// ChatRequest is the request body for /v1/chat and /v1/chat/stream.
type ChatRequest struct {
	Query        string `json:"query" validate:"required"`
	SelectedText string `json:"selected_text"`
	CorpusID     string `json:"corpus_id"`
	Mode         string `json:"mode" validate:"omitempty,oneof=auto whole_corpus pinned_passage"`
	MaxUnits     int    `json:"max_units" validate:"omitempty,gte=1,lte=20"`
}

func (r ChatRequest) toDomain() domain.ChatQuery {
	mode := domain.Mode(r.Mode)
	if mode == "" {
		mode = domain.ModeAuto
	}
	return domain.ChatQuery{
		Query:        r.Query,
		SelectedText: r.SelectedText,
		CorpusID:     r.CorpusID,
		Mode:         mode,
		MaxUnits:     r.MaxUnits,
	}
}

// CitationDTO is one evidence reference in a chat response.
type CitationDTO struct {
	UnitID  string  `json:"unit_id"`
	Snippet string  `json:"snippet"`
	Source  string  `json:"source"`
	Chapter *string `json:"chapter,omitempty"`
	Section *string `json:"section,omitempty"`
	Score   float64 `json:"score"`
}

// ChatResponse mirrors domain.AnswerResult. Refusals use the same shape; the
// refusal text sits in answer and citations come back empty.
type ChatResponse struct {
	Answer    string        `json:"answer"`
	Citations []CitationDTO `json:"citations"`
	Mode      string        `json:"mode"`
	UnitsUsed int           `json:"units_used"`
	LatencyMS float64       `json:"latency_ms"`
	ModelUsed string        `json:"model_used"`
}

func toChatResponse(output *usecase.AnswerOutput) ChatResponse {
	citations := make([]CitationDTO, 0, len(output.Citations))
	for _, c := range output.Citations {
		citations = append(citations, CitationDTO{
			UnitID:  c.UnitID,
			Snippet: c.Snippet,
			Source:  c.Source,
			Chapter: c.Chapter,
			Section: c.Section,
			Score:   c.Score,
		})
	}
	return ChatResponse{
		Answer:    output.Answer,
		Citations: citations,
		Mode:      string(output.ModeUsed),
		UnitsUsed: output.UnitsUsed,
		LatencyMS: output.LatencyMS,
		ModelUsed: output.ModelUsed,
	}
}

// streamFinal is the payload of the final SSE event. The answer is not
// repeated; it already went out as deltas.
type streamFinal struct {
	Citations []CitationDTO `json:"citations"`
	Mode      string        `json:"mode"`
	UnitsUsed int           `json:"units_used"`
	LatencyMS float64       `json:"latency_ms"`
	ModelUsed string        `json:"model_used"`
}

func toStreamFinal(output *usecase.AnswerOutput) streamFinal {
	resp := toChatResponse(output)
	return streamFinal{
		Citations: resp.Citations,
		Mode:      resp.Mode,
		UnitsUsed: resp.UnitsUsed,
		LatencyMS: resp.LatencyMS,
		ModelUsed: resp.ModelUsed,
	}
}

type streamDelta struct {
	Delta string `json:"delta"`
}

type streamError struct {
	Message string `json:"message"`
}

// IngestRequest is the request body for /v1/ingest. Either a source path or
// inline text, never both; inline text must name its corpus.
type IngestRequest struct {
	CorpusID   string `json:"corpus_id" validate:"required_with=Text"`
	SourcePath string `json:"source_path" validate:"required_without=Text,excluded_with=Text"`
	SourceID   string `json:"source_id"`
	Text       string `json:"text"`
}

// JobResponse is the job status body for /v1/ingest/jobs/:id.
type JobResponse struct {
	ID           string     `json:"id"`
	CorpusID     string     `json:"corpus_id"`
	Status       string     `json:"status"`
	Error        *string    `json:"error,omitempty"`
	UnitsCreated int        `json:"units_created"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func toJobResponse(job *domain.IngestJob) JobResponse {
	return JobResponse{
		ID:           job.ID.String(),
		CorpusID:     job.CorpusID,
		Status:       job.Status,
		Error:        job.ErrorMessage,
		UnitsCreated: job.UnitsCreated,
		EnqueuedAt:   job.EnqueuedAt,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
	}
}

// UnitDTO is one stored unit in the corpus listing.
type UnitDTO struct {
	UnitID        string  `json:"unit_id"`
	SourceID      string  `json:"source_id,omitempty"`
	Chapter       *string `json:"chapter,omitempty"`
	Section       *string `json:"section,omitempty"`
	Position      int     `json:"position"`
	Text          string  `json:"text"`
	TokenEstimate int     `json:"token_estimate"`
}

// UnitListResponse is the body for /v1/corpora/:corpus_id/units. Count is the
// vector index count for the whole corpus, not the page size.
type UnitListResponse struct {
	CorpusID string    `json:"corpus_id"`
	Units    []UnitDTO `json:"units"`
	Count    int64     `json:"count"`
}

func toUnitDTOs(units []domain.TextUnit) []UnitDTO {
	dtos := make([]UnitDTO, 0, len(units))
	for _, u := range units {
		dtos = append(dtos, UnitDTO{
			UnitID:        u.UnitID,
			SourceID:      u.SourceID,
			Chapter:       u.Chapter,
			Section:       u.Section,
			Position:      u.Position,
			Text:          u.Text,
			TokenEstimate: u.TokenEstimate,
		})
	}
	return dtos
}

// PurgeResponse is the body for DELETE /v1/corpora/:corpus_id.
type PurgeResponse struct {
	CorpusID        string `json:"corpus_id"`
	UnitsDeleted    int64  `json:"units_deleted"`
	MetadataDeleted int64  `json:"metadata_deleted"`
}

// HealthResponse is the body for /v1/health.
type HealthResponse struct {
	Status            string `json:"status"`
	DatabaseConnected bool   `json:"database_connected"`
	ModelAPIConnected bool   `json:"model_api_connected"`
	IndexReady        bool   `json:"index_ready"`
}
