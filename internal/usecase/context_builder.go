package usecase

import (
	"strings"

	"book-orchestrator/internal/domain"
)

// Labels marking context sections in pinned-passage prompts. The model is
// told to treat the selected text as mandatory evidence and the additional
// section as supporting material.
const (
	selectedTextLabel      = "[Selected Text]"
	additionalContentLabel = "[Additional Relevant Content]"
)

// BuildContext renders retrieved units into one provenance-annotated text
// block. Each unit gets a header line naming its source and, when present,
// its chapter; units are joined by a blank line. Caller order is preserved.
// Pure and deterministic.
func BuildContext(units []domain.ScoredUnit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		var b strings.Builder
		b.WriteString("[")
		if u.SourceID != "" {
			b.WriteString(u.SourceID)
		} else {
			b.WriteString("unknown")
		}
		if u.Chapter != nil && *u.Chapter != "" {
			b.WriteString(" - ")
			b.WriteString(*u.Chapter)
		}
		b.WriteString("]\n")
		b.WriteString(u.Text)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// BuildPassageContext composes the context for the pinned-passage path: the
// selected text under its mandatory section, then any additional retrieved
// units under a separate labeled section.
func BuildPassageContext(selectedText string, additional []domain.ScoredUnit) string {
	var b strings.Builder
	b.WriteString(selectedTextLabel)
	b.WriteString("\n")
	b.WriteString(selectedText)
	b.WriteString("\n")

	if len(additional) > 0 {
		b.WriteString("\n")
		b.WriteString(additionalContentLabel)
		b.WriteString("\n")
		b.WriteString(BuildContext(additional))
	}

	return b.String()
}
