package usecase_test

import (
	"strings"
	"testing"

	"book-orchestrator/internal/domain"
	"book-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func unitWith(source string, chapter *string, text string) domain.ScoredUnit {
	return domain.ScoredUnit{
		TextUnit: domain.TextUnit{
			UnitID:   "corpus-1-0",
			SourceID: source,
			Chapter:  chapter,
			Text:     text,
		},
		Score: 0.9,
	}
}

func strPtr(s string) *string { return &s }

func TestBuildContext(t *testing.T) {
	t.Run("Header carries source and chapter", func(t *testing.T) {
		got := usecase.BuildContext([]domain.ScoredUnit{
			unitWith("ch1.md", strPtr("Concurrency"), "Goroutines are cheap."),
		})
		assert.Equal(t, "[ch1.md - Concurrency]\nGoroutines are cheap.", got)
	})

	t.Run("Chapter omitted when absent", func(t *testing.T) {
		got := usecase.BuildContext([]domain.ScoredUnit{
			unitWith("ch1.md", nil, "Goroutines are cheap."),
		})
		assert.Equal(t, "[ch1.md]\nGoroutines are cheap.", got)
	})

	t.Run("Missing source renders as unknown", func(t *testing.T) {
		got := usecase.BuildContext([]domain.ScoredUnit{
			unitWith("", nil, "Orphan text."),
		})
		assert.True(t, strings.HasPrefix(got, "[unknown]\n"))
	})

	t.Run("Units joined by blank line in caller order", func(t *testing.T) {
		got := usecase.BuildContext([]domain.ScoredUnit{
			unitWith("a.md", nil, "First."),
			unitWith("b.md", nil, "Second."),
		})
		assert.Equal(t, "[a.md]\nFirst.\n\n[b.md]\nSecond.", got)
	})

	t.Run("No units renders empty", func(t *testing.T) {
		assert.Equal(t, "", usecase.BuildContext(nil))
	})
}

func TestBuildPassageContext(t *testing.T) {
	t.Run("Passage only", func(t *testing.T) {
		got := usecase.BuildPassageContext("The pinned passage.", nil)
		assert.Equal(t, "[Selected Text]\nThe pinned passage.\n", got)
	})

	t.Run("Passage with additional units", func(t *testing.T) {
		got := usecase.BuildPassageContext("The pinned passage.", []domain.ScoredUnit{
			unitWith("ch2.md", nil, "Supporting text."),
		})
		want := "[Selected Text]\nThe pinned passage.\n\n[Additional Relevant Content]\n[ch2.md]\nSupporting text."
		assert.Equal(t, want, got)
	})
}
