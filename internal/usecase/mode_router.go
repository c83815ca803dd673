package usecase

import (
	"strings"

	"book-orchestrator/internal/domain"
)

// RouteMode decides the answer path for one request. An explicit mode is
// honored unconditionally; auto (or absent) picks the pinned-passage path
// only when the selected text is non-empty after trimming. Pure function,
// no external calls.
func RouteMode(mode domain.Mode, selectedText string) domain.Mode {
	switch mode {
	case domain.ModeWholeCorpus, domain.ModePinnedPassage:
		return mode
	}
	if strings.TrimSpace(selectedText) != "" {
		return domain.ModePinnedPassage
	}
	return domain.ModeWholeCorpus
}
