package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains all metric instruments. The record helpers are nil-safe so
// call sites never have to guard against telemetry being disabled.
type Metrics struct {
	QueriesTotal       metric.Int64Counter
	RefusalsTotal      metric.Int64Counter
	AnswerDuration     metric.Float64Histogram
	RetrievalDuration  metric.Float64Histogram
	UnitsIngestedTotal metric.Int64Counter
	IngestErrorsTotal  metric.Int64Counter
}

// InitMetrics initializes all metric instruments.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("book-orchestrator")

	queriesTotal, err := meter.Int64Counter("book_orchestrator_queries_total",
		metric.WithDescription("Total number of answered queries"),
	)
	if err != nil {
		return nil, err
	}

	refusalsTotal, err := meter.Int64Counter("book_orchestrator_refusals_total",
		metric.WithDescription("Total number of refused queries"),
	)
	if err != nil {
		return nil, err
	}

	answerDuration, err := meter.Float64Histogram("book_orchestrator_answer_duration_seconds",
		metric.WithDescription("End-to-end answer pipeline duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram("book_orchestrator_retrieval_duration_seconds",
		metric.WithDescription("Vector search duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	unitsIngestedTotal, err := meter.Int64Counter("book_orchestrator_units_ingested_total",
		metric.WithDescription("Total number of text units written to the index"),
	)
	if err != nil {
		return nil, err
	}

	ingestErrorsTotal, err := meter.Int64Counter("book_orchestrator_ingest_errors_total",
		metric.WithDescription("Total number of failed ingest jobs"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		QueriesTotal:       queriesTotal,
		RefusalsTotal:      refusalsTotal,
		AnswerDuration:     answerDuration,
		RetrievalDuration:  retrievalDuration,
		UnitsIngestedTotal: unitsIngestedTotal,
		IngestErrorsTotal:  ingestErrorsTotal,
	}, nil
}

// RecordQuery counts one finished query and its duration, tagged by mode.
// Refusals are additionally counted by category; the category never appears
// on the wire, only here and in logs.
func (m *Metrics) RecordQuery(ctx context.Context, mode string, refused bool, category string, seconds float64) {
	if m == nil {
		return
	}
	modeAttr := metric.WithAttributes(attribute.String("mode", mode))
	m.QueriesTotal.Add(ctx, 1, modeAttr)
	m.AnswerDuration.Record(ctx, seconds, modeAttr)
	if refused {
		m.RefusalsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("category", category),
		))
	}
}

// RecordRetrieval records one vector search duration.
func (m *Metrics) RecordRetrieval(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Record(ctx, seconds)
}

// RecordUnitsIngested counts units written by a finished ingest job.
func (m *Metrics) RecordUnitsIngested(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.UnitsIngestedTotal.Add(ctx, n)
}

// RecordIngestError counts one failed ingest job.
func (m *Metrics) RecordIngestError(ctx context.Context) {
	if m == nil {
		return
	}
	m.IngestErrorsTotal.Add(ctx, 1)
}
