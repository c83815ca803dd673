package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"book-orchestrator/internal/domain"
)

// RefusalCategory tags why an answer came back as the fixed refusal string.
// The category never reaches the client; it drives logs and metrics only.
type RefusalCategory string

const (
	RefusalNoEvidence    RefusalCategory = "no_evidence"
	RefusalUpstreamError RefusalCategory = "upstream_error"
)

// AnswerOutput is the orchestrated answer plus refusal telemetry. On refusal
// the embedded result still carries mode, latency and model so the response
// shape is identical to a grounded answer.
type AnswerOutput struct {
	domain.AnswerResult
	Refused  bool
	Category RefusalCategory
	Reason   string
}

// AnswerConfig carries the tunables of the answer pipeline.
type AnswerConfig struct {
	// DefaultMaxUnits is used when the query does not ask for a unit count.
	DefaultMaxUnits int
	// ScoreFloor drops weakly matching units in whole-corpus mode. Values
	// <= 0 disable the floor. Pinned-passage supporting retrieval never
	// applies it.
	ScoreFloor float64
	// StreamChunkRunes is the delta size for simulated streaming.
	StreamChunkRunes int
}

// AnswerUsecase runs the full question-answering pipeline: route the mode,
// gather evidence, call the model, and refuse whenever grounding fails.
type AnswerUsecase interface {
	Execute(ctx context.Context, query domain.ChatQuery) (*AnswerOutput, error)
	Stream(ctx context.Context, query domain.ChatQuery) <-chan StreamEvent
}

type answerUsecase struct {
	retriever RetrieveUnitsUsecase
	passage   SelectedPassageUsecase
	chat      domain.ChatClient
	cfg       AnswerConfig
}

// NewAnswerUsecase creates an AnswerUsecase.
func NewAnswerUsecase(
	retriever RetrieveUnitsUsecase,
	passage SelectedPassageUsecase,
	chat domain.ChatClient,
	cfg AnswerConfig,
) AnswerUsecase {
	if cfg.DefaultMaxUnits <= 0 {
		cfg.DefaultMaxUnits = 5
	}
	if cfg.StreamChunkRunes <= 0 {
		cfg.StreamChunkRunes = defaultStreamChunkRunes
	}
	return &answerUsecase{
		retriever: retriever,
		passage:   passage,
		chat:      chat,
		cfg:       cfg,
	}
}

func (u *answerUsecase) Execute(ctx context.Context, query domain.ChatQuery) (*AnswerOutput, error) {
	if strings.TrimSpace(query.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	start := time.Now()
	mode := RouteMode(query.Mode, query.SelectedText)

	var (
		contextBlock string
		citations    []domain.Citation
		unitsUsed    int
	)

	switch mode {
	case domain.ModePinnedPassage:
		evidence, err := u.passage.Execute(ctx, query.SelectedText, query.CorpusID, true)
		if err != nil {
			slog.Warn("pinned passage evidence failed", slog.String("reason", err.Error()))
			return u.refuse(mode, start, RefusalUpstreamError, err.Error()), nil
		}
		contextBlock = BuildPassageContext(evidence.SelectedText, evidence.Additional)
		citations = append([]domain.Citation{SelectedTextCitation(evidence.SelectedText)},
			ExtractCitations(evidence.Additional)...)
		unitsUsed = len(evidence.Additional) + 1

	default:
		limit := query.MaxUnits
		if limit <= 0 {
			limit = u.cfg.DefaultMaxUnits
		}
		units, err := u.retriever.Execute(ctx, RetrieveUnitsInput{
			Query:      query.Query,
			CorpusID:   query.CorpusID,
			Limit:      limit,
			ScoreFloor: u.scoreFloor(),
		})
		if err != nil {
			slog.Warn("retrieval failed", slog.String("reason", err.Error()))
			return u.refuse(mode, start, RefusalUpstreamError, err.Error()), nil
		}
		if len(units) == 0 {
			// The model is never invoked without evidence.
			return u.refuse(mode, start, RefusalNoEvidence, "no units above score floor"), nil
		}
		contextBlock = BuildContext(units)
		citations = ExtractCitations(units)
		unitsUsed = len(units)
	}

	answer, err := u.chat.Complete(ctx, BuildAnswerMessages(contextBlock, query.Query))
	if err != nil {
		slog.Warn("chat completion failed", slog.String("reason", err.Error()))
		return u.refuse(mode, start, RefusalUpstreamError, fmt.Sprintf("chat completion failed: %v", err)), nil
	}
	if strings.TrimSpace(answer) == "" {
		slog.Warn("chat completion empty", slog.Int("units_used", unitsUsed))
		return u.refuse(mode, start, RefusalUpstreamError, "empty model response"), nil
	}

	return &AnswerOutput{
		AnswerResult: domain.AnswerResult{
			Answer:    strings.TrimSpace(answer),
			Citations: citations,
			UnitsUsed: unitsUsed,
			ModeUsed:  mode,
			LatencyMS: msSince(start),
			ModelUsed: u.chat.ModelName(),
		},
	}, nil
}

// refuse builds the fixed refusal answer. The wire shape is the same for
// every category; only the telemetry fields differ.
func (u *answerUsecase) refuse(mode domain.Mode, start time.Time, category RefusalCategory, reason string) *AnswerOutput {
	slog.Warn("answer refused",
		slog.String("category", string(category)),
		slog.String("mode", string(mode)),
		slog.String("reason", reason))
	return &AnswerOutput{
		AnswerResult: domain.AnswerResult{
			Answer:    domain.RefusalAnswer,
			Citations: []domain.Citation{},
			UnitsUsed: 0,
			ModeUsed:  mode,
			LatencyMS: msSince(start),
			ModelUsed: u.chat.ModelName(),
		},
		Refused:  true,
		Category: category,
		Reason:   reason,
	}
}

func (u *answerUsecase) scoreFloor() *float64 {
	if u.cfg.ScoreFloor <= 0 {
		return nil
	}
	floor := u.cfg.ScoreFloor
	return &floor
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
