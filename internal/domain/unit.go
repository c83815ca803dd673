package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Mode selects how a chat query is answered.
type Mode string

const (
	// ModeAuto lets the router decide based on the presence of selected text.
	ModeAuto Mode = "auto"
	// ModeWholeCorpus retrieves evidence across the whole corpus.
	ModeWholeCorpus Mode = "whole_corpus"
	// ModePinnedPassage answers against a user-pinned passage.
	ModePinnedPassage Mode = "pinned_passage"
)

// RefusalAnswer is returned verbatim whenever grounding cannot be established,
// whether retrieval came back empty or an upstream call failed.
const RefusalAnswer = "I cannot answer this from the book content provided."

// SelectedUnitID is the reserved citation identifier for a user-pinned passage.
const SelectedUnitID = "selected"

// SelectedSource is the citation source label for a user-pinned passage.
const SelectedSource = "User Selection"

// TextUnit is the atomic retrieval object: a bounded, position-ordered piece
// of source text with optional structural tags. Position strictly increases
// within a SourceID. Immutable once persisted.
type TextUnit struct {
	UnitID        string
	CorpusID      string
	SourceID      string
	Chapter       *string
	Section       *string
	Position      int
	Text          string
	TokenEstimate int
	Embedding     pgvector.Vector
	CreatedAt     time.Time
}

// ScoredUnit is a TextUnit plus the similarity score reported by the index
// (higher = more relevant). Created transiently per query, never persisted.
type ScoredUnit struct {
	TextUnit
	Score float64
}

// ChatQuery is one user question. Optional strings are empty when absent;
// field constraints are enforced at the HTTP boundary.
type ChatQuery struct {
	Query        string
	SelectedText string
	CorpusID     string
	Mode         Mode
	MaxUnits     int
}

// Citation is a compact, display-ready reference to a piece of evidence.
type Citation struct {
	UnitID  string
	Snippet string
	Source  string
	Chapter *string
	Section *string
	Score   float64
}

// AnswerResult is the terminal artifact of one chat request. Latency and the
// model name attach to every outcome, refusals included.
type AnswerResult struct {
	Answer    string
	Citations []Citation
	UnitsUsed int
	ModeUsed  Mode
	LatencyMS float64
	ModelUsed string
}

// UnitKey builds the display identifier carried in index payloads and
// citations for the unit at the given corpus-wide ordinal.
func UnitKey(corpusID string, ordinal int) string {
	return fmt.Sprintf("%s-%d", corpusID, ordinal)
}

// UnitUUID derives the deterministic row ID for a unit so re-ingesting an
// unchanged corpus maps every ordinal to the same primary key.
func UnitUUID(corpusID string, ordinal int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(UnitKey(corpusID, ordinal)))
}
