package usecase_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestExtractCitations(t *testing.T) {
	t.Run("One citation per unit, order preserved", func(t *testing.T) {
		units := []domain.ScoredUnit{
			{
				TextUnit: domain.TextUnit{
					UnitID:   "corpus-1-0",
					SourceID: "ch1.md",
					Chapter:  strPtr("Basics"),
					Section:  strPtr("Types"),
					Text:     "Short text.",
				},
				Score: 0.92,
			},
			{
				TextUnit: domain.TextUnit{UnitID: "corpus-1-5", SourceID: "ch3.md", Text: "Other."},
				Score:    0.55,
			},
		}

		citations := usecase.ExtractCitations(units)

		assert.Len(t, citations, 2)
		assert.Equal(t, "corpus-1-0", citations[0].UnitID)
		assert.Equal(t, "ch1.md", citations[0].Source)
		assert.Equal(t, "Basics", *citations[0].Chapter)
		assert.Equal(t, "Types", *citations[0].Section)
		assert.Equal(t, "Short text.", citations[0].Snippet)
		assert.Equal(t, 0.92, citations[0].Score)
		assert.Equal(t, "corpus-1-5", citations[1].UnitID)
	})

	t.Run("Long text is cut to a snippet", func(t *testing.T) {
		long := strings.Repeat("x", 450)
		citations := usecase.ExtractCitations([]domain.ScoredUnit{
			{TextUnit: domain.TextUnit{UnitID: "corpus-1-0", Text: long}},
		})

		snippet := citations[0].Snippet
		assert.True(t, strings.HasSuffix(snippet, "..."))
		assert.Equal(t, 203, utf8.RuneCountInString(snippet))
	})

	t.Run("No units yields empty slice", func(t *testing.T) {
		citations := usecase.ExtractCitations(nil)
		assert.NotNil(t, citations)
		assert.Empty(t, citations)
	})
}

func TestSelectedTextCitation(t *testing.T) {
	citation := usecase.SelectedTextCitation("The user's pinned passage.")

	assert.Equal(t, domain.SelectedUnitID, citation.UnitID)
	assert.Equal(t, domain.SelectedSource, citation.Source)
	assert.Equal(t, 1.0, citation.Score)
	assert.Equal(t, "The user's pinned passage.", citation.Snippet)
	assert.Nil(t, citation.Chapter)
	assert.Nil(t, citation.Section)
}
