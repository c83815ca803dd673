package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"book-orchestrator/internal/domain"
)

const (
	// selectedTextMaxRunes caps a pinned passage; longer input is truncated,
	// never rejected.
	selectedTextMaxRunes = 5000

	// additionalUnitLimit is how many supporting units are retrieved around
	// a pinned passage. No score floor applies to this lookup.
	additionalUnitLimit = 3
)

// PassageEvidence is the evidence set for a pinned-passage answer: the
// sanitized passage itself plus any supporting units retrieved around it.
type PassageEvidence struct {
	SelectedText string
	Additional   []domain.ScoredUnit
}

// SelectedPassageUsecase prepares evidence when the reader has pinned a
// passage. The passage always enters the context; supporting retrieval is
// optional and uses the passage text itself as the query.
type SelectedPassageUsecase interface {
	Execute(ctx context.Context, selectedText, corpusID string, retrieveAdditional bool) (*PassageEvidence, error)
}

type selectedPassageUsecase struct {
	retriever RetrieveUnitsUsecase
}

// NewSelectedPassageUsecase creates a SelectedPassageUsecase.
func NewSelectedPassageUsecase(retriever RetrieveUnitsUsecase) SelectedPassageUsecase {
	return &selectedPassageUsecase{retriever: retriever}
}

func (u *selectedPassageUsecase) Execute(ctx context.Context, selectedText, corpusID string, retrieveAdditional bool) (*PassageEvidence, error) {
	passage := strings.TrimSpace(selectedText)
	if passage == "" {
		return nil, fmt.Errorf("selected text is required")
	}
	if utf8.RuneCountInString(passage) > selectedTextMaxRunes {
		passage = string([]rune(passage)[:selectedTextMaxRunes])
		slog.Debug("selected text truncated",
			slog.Int("max_runes", selectedTextMaxRunes))
	}

	evidence := &PassageEvidence{SelectedText: passage}
	if !retrieveAdditional {
		return evidence, nil
	}

	additional, err := u.retriever.Execute(ctx, RetrieveUnitsInput{
		Query:    passage,
		CorpusID: corpusID,
		Limit:    additionalUnitLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("additional retrieval failed: %w", err)
	}
	evidence.Additional = additional
	return evidence, nil
}
