// File path: internal/dedup/normalize.go
package dedup

import "strings"

// Canonical metadata fields that participate in metadata fingerprinting. The
// order of canonicalFields is the hash concatenation order and must not change;
// stored metadata hashes depend on it.
const (
	FieldTitle      = "title"
	FieldAuthor     = "author"
	FieldIdentifier = "identifier"
	FieldSourcePath = "source_path"
)

var canonicalFields = [...]string{FieldTitle, FieldAuthor, FieldIdentifier, FieldSourcePath}

// Metadata carries document metadata fields keyed by name. Fields outside the
// canonical set are preserved by enrichment but ignored by fingerprinting.
type Metadata map[string]string

// NormalizeText canonicalizes text for hashing and comparison: lower-case,
// whitespace runs collapsed to single spaces, hyphens removed, leading and
// trailing whitespace trimmed. Hyphen removal is a deliberate policy so that
// hyphenation variants ("co-operate" vs "cooperate") fingerprint identically.
// The function is pure and idempotent.
func NormalizeText(text string) string {
	lowered := strings.ToLower(text)
	lowered = strings.ReplaceAll(lowered, "-", "")
	return strings.Join(strings.Fields(lowered), " ")
}

// NormalizeMetadata returns a new Metadata holding the canonical field set
// with every value passed through NormalizeText. Missing fields become the
// empty string, never an absent key, so downstream hashing is total.
func NormalizeMetadata(meta Metadata) Metadata {
	normalized := make(Metadata, len(canonicalFields))
	for _, field := range canonicalFields {
		normalized[field] = NormalizeText(meta[field])
	}
	return normalized
}
