package usecase_test

import (
	"testing"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestRouteMode(t *testing.T) {
	tests := []struct {
		name         string
		mode         domain.Mode
		selectedText string
		want         domain.Mode
	}{
		{"auto without selection", domain.ModeAuto, "", domain.ModeWholeCorpus},
		{"auto with selection", domain.ModeAuto, "a passage", domain.ModePinnedPassage},
		{"auto with whitespace selection", domain.ModeAuto, "   \n", domain.ModeWholeCorpus},
		{"explicit whole corpus beats selection", domain.ModeWholeCorpus, "a passage", domain.ModeWholeCorpus},
		{"explicit pinned passage honored", domain.ModePinnedPassage, "a passage", domain.ModePinnedPassage},
		{"explicit pinned passage without selection still honored", domain.ModePinnedPassage, "", domain.ModePinnedPassage},
		{"unknown mode falls back to auto rules", domain.Mode("bogus"), "", domain.ModeWholeCorpus},
		{"empty mode behaves as auto", domain.Mode(""), "a passage", domain.ModePinnedPassage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usecase.RouteMode(tt.mode, tt.selectedText))
		})
	}
}
