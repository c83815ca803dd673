package domain

import (
	"strings"
	"unicode/utf8"
)

// SegmenterVersion identifies the segmentation algorithm in use. Stored with
// unit metadata so re-ingestion can detect algorithm drift.
type SegmenterVersion string

// SegmenterVersionV1 is the paragraph accumulator with trailing word overlap.
const SegmenterVersionV1 SegmenterVersion = "v1"

const (
	// DefaultMaxUnitSize bounds a unit's length in characters.
	DefaultMaxUnitSize = 500
	// DefaultOverlapWords is the number of trailing words of a closed unit
	// seeded into the next one.
	DefaultOverlapWords = 50
)

// Segmenter turns raw document text into an ordered sequence of bounded,
// metadata-tagged text units.
type Segmenter interface {
	Segment(text, sourceID string) ([]TextUnit, error)
	Version() SegmenterVersion
}

type paragraphSegmenter struct {
	maxUnitSize  int
	overlapWords int
}

// NewParagraphSegmenter creates the default Segmenter. maxUnitSize <= 0 and
// overlapWords < 0 fall back to the defaults; overlapWords == 0 disables
// overlap seeding.
func NewParagraphSegmenter(maxUnitSize, overlapWords int) Segmenter {
	if maxUnitSize <= 0 {
		maxUnitSize = DefaultMaxUnitSize
	}
	if overlapWords < 0 {
		overlapWords = DefaultOverlapWords
	}
	return &paragraphSegmenter{maxUnitSize: maxUnitSize, overlapWords: overlapWords}
}

func (s *paragraphSegmenter) Version() SegmenterVersion {
	return SegmenterVersionV1
}

// Segment splits text on blank-line boundaries and accumulates paragraphs
// into units of at most maxUnitSize characters. A closed unit's chapter and
// section tags come from its first "# " and "## " heading lines. When overlap
// is enabled, each new unit starts with the trailing words of the previous
// one. A single paragraph larger than maxUnitSize becomes one oversized unit;
// it is never split further.
func (s *paragraphSegmenter) Segment(text, sourceID string) ([]TextUnit, error) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, nil
	}

	var units []TextUnit
	var buf string
	position := 0

	for _, para := range paragraphs {
		if buf != "" && utf8.RuneCountInString(buf)+utf8.RuneCountInString(para) > s.maxUnitSize {
			units = append(units, s.closeUnit(buf, sourceID, position))
			position++
			if s.overlapWords > 0 {
				buf = trailingWords(buf, s.overlapWords) + "\n\n" + para
			} else {
				buf = para
			}
			continue
		}
		if buf == "" {
			buf = para
		} else {
			buf = buf + "\n\n" + para
		}
	}

	// The final buffer always closes, regardless of size.
	if strings.TrimSpace(buf) != "" {
		units = append(units, s.closeUnit(buf, sourceID, position))
	}

	return units, nil
}

func (s *paragraphSegmenter) closeUnit(buf, sourceID string, position int) TextUnit {
	content := strings.TrimSpace(buf)
	return TextUnit{
		SourceID:      sourceID,
		Chapter:       firstHeading(buf, 1),
		Section:       firstHeading(buf, 2),
		Position:      position,
		Text:          content,
		TokenEstimate: EstimateTokens(content),
	}
}

// EstimateTokens approximates the token count as one token per four
// characters, rounded down.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	parts := strings.Split(normalized, "\n\n")

	var paragraphs []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// firstHeading returns the title of the first markdown heading of exactly the
// given level, or nil when the text has none.
func firstHeading(text string, level int) *string {
	marker := strings.Repeat("#", level)
	for _, line := range strings.Split(text, "\n") {
		rest, ok := strings.CutPrefix(line, marker)
		if !ok || rest == "" {
			continue
		}
		if rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		title := strings.TrimSpace(rest)
		if title == "" {
			continue
		}
		return &title
	}
	return nil
}

// trailingWords returns the last n whitespace-separated words of text joined
// by single spaces.
func trailingWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
