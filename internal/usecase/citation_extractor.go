package usecase

import "book-orchestrator/internal/domain"

// snippetMaxRunes bounds citation snippets; longer unit text is cut and
// ellipsis-terminated.
const snippetMaxRunes = 200

// ExtractCitations converts evidence units into display-ready citations,
// one-to-one with the input, order preserved.
func ExtractCitations(units []domain.ScoredUnit) []domain.Citation {
	citations := make([]domain.Citation, 0, len(units))
	for _, u := range units {
		citations = append(citations, domain.Citation{
			UnitID:  u.UnitID,
			Snippet: snippet(u.Text),
			Source:  u.SourceID,
			Chapter: u.Chapter,
			Section: u.Section,
			Score:   u.Score,
		})
	}
	return citations
}

// SelectedTextCitation builds the synthetic citation representing the user's
// own pinned passage. It carries the reserved identifier and a fixed score of
// 1.0.
func SelectedTextCitation(selectedText string) domain.Citation {
	return domain.Citation{
		UnitID:  domain.SelectedUnitID,
		Snippet: snippet(selectedText),
		Source:  domain.SelectedSource,
		Score:   1.0,
	}
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxRunes {
		return text
	}
	return string(runes[:snippetMaxRunes]) + "..."
}
