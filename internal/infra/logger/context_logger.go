package logger

import (
	"context"
	"log/slog"
	"os"
)

type ContextKey string

const (
	// Business context keys for book pipeline observability
	// These follow OpenTelemetry semantic conventions with 'book.' prefix
	JobIDKey           ContextKey = "book.job.id"
	CorpusIDKey        ContextKey = "book.corpus.id"
	SourceIDKey        ContextKey = "book.source.id"
	ProcessingStageKey ContextKey = "book.processing.stage"
)

// ContextLogger provides context-aware logging with business context fields
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewContextLogger creates a new context-aware logger
func NewContextLogger(serviceName string) *ContextLogger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)

	return &ContextLogger{
		logger:      slog.New(handler),
		serviceName: serviceName,
	}
}

// WithContext returns a logger with context values extracted and added as fields
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any

	if jobID := ctx.Value(JobIDKey); jobID != nil {
		fields = append(fields, string(JobIDKey), jobID)
	}
	if corpusID := ctx.Value(CorpusIDKey); corpusID != nil {
		fields = append(fields, string(CorpusIDKey), corpusID)
	}
	if sourceID := ctx.Value(SourceIDKey); sourceID != nil {
		fields = append(fields, string(SourceIDKey), sourceID)
	}
	if stage := ctx.Value(ProcessingStageKey); stage != nil {
		fields = append(fields, string(ProcessingStageKey), stage)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// Context helper functions

// WithJobID adds job ID to context for observability
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithCorpusID adds corpus ID to context for observability
func WithCorpusID(ctx context.Context, corpusID string) context.Context {
	return context.WithValue(ctx, CorpusIDKey, corpusID)
}

// WithSourceID adds source ID to context for observability
func WithSourceID(ctx context.Context, sourceID string) context.Context {
	return context.WithValue(ctx, SourceIDKey, sourceID)
}

// WithProcessingStage adds processing stage to context for observability
func WithProcessingStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ProcessingStageKey, stage)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
