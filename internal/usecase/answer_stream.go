package usecase

import (
	"context"

	"book-orchestrator/internal/domain"
)

// defaultStreamChunkRunes is the delta size used when streaming an answer.
const defaultStreamChunkRunes = 24

type StreamEventKind string

const (
	StreamEventKindDelta StreamEventKind = "delta"
	StreamEventKindFinal StreamEventKind = "final"
	StreamEventKindError StreamEventKind = "error"
)

type StreamEvent struct {
	Kind    StreamEventKind
	Payload interface{}
}

// Stream runs the same pipeline as Execute and replays the finished answer
// as fixed-size deltas followed by a final event carrying the full output.
// Refusals stream too; only pipeline-level errors produce an error event.
func (u *answerUsecase) Stream(ctx context.Context, query domain.ChatQuery) <-chan StreamEvent {
	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)

		output, err := u.Execute(ctx, query)
		if err != nil {
			u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindError,
				Payload: err.Error(),
			})
			return
		}

		runes := []rune(output.Answer)
		for i := 0; i < len(runes); i += u.cfg.StreamChunkRunes {
			end := i + u.cfg.StreamChunkRunes
			if end > len(runes) {
				end = len(runes)
			}
			if !u.sendStreamEvent(ctx, events, StreamEvent{
				Kind:    StreamEventKindDelta,
				Payload: string(runes[i:end]),
			}) {
				return
			}
		}

		u.sendStreamEvent(ctx, events, StreamEvent{
			Kind:    StreamEventKindFinal,
			Payload: output,
		})
	}()

	return events
}

// sendStreamEvent reports false when the consumer went away.
func (u *answerUsecase) sendStreamEvent(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
