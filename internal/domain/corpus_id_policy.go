package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// CorpusIDPolicy derives a stable corpus identifier from the location of the
// source material. It ensures idempotency: same cleaned path -> same ID, so
// re-running an ingest replaces the previous corpus instead of duplicating it.
type CorpusIDPolicy interface {
	Derive(sourcePath string) string
}

type corpusIDPolicy struct{}

// NewCorpusIDPolicy creates a new instance of the default CorpusIDPolicy.
func NewCorpusIDPolicy() CorpusIDPolicy {
	return &corpusIDPolicy{}
}

// Derive returns the SHA-256 hash of the normalized source path.
// Normalization means trimming whitespace, cleaning the path, and resolving
// it to an absolute path where possible, so "./book" and "book" agree.
func (p *corpusIDPolicy) Derive(sourcePath string) string {
	cleaned := filepath.Clean(strings.TrimSpace(sourcePath))
	if abs, err := filepath.Abs(cleaned); err == nil {
		cleaned = abs
	}

	hash := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(hash[:])
}
