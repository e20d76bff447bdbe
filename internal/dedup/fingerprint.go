// File path: internal/dedup/fingerprint.go
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Metadata keys populated by EnrichMetadata.
const (
	KeyContentHash  = "content_hash"
	KeyMetadataHash = "metadata_hash"
)

// NUL can never survive NormalizeText output, making it a safe field separator.
const hashSeparator = "\x00"

// ContentHash returns the lowercase hex SHA-256 digest of the normalized
// document text. Empty text yields the digest of the empty string; rejecting
// empty documents is a caller decision.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}

// MetadataHash returns the lowercase hex SHA-256 digest of the canonical
// metadata fields, normalized and concatenated in fixed order. The input map
// order is irrelevant; missing fields hash as empty strings.
func MetadataHash(meta Metadata) string {
	normalized := NormalizeMetadata(meta)
	parts := make([]string, 0, len(canonicalFields))
	for _, field := range canonicalFields {
		parts = append(parts, normalized[field])
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, hashSeparator)))
	return hex.EncodeToString(sum[:])
}

// EnrichMetadata returns a copy of meta with content_hash and metadata_hash
// set from the provided text and the canonical metadata fields. The input map
// is never mutated; callers may keep reusing it elsewhere in the ingestion
// pipeline.
func EnrichMetadata(meta Metadata, text string) Metadata {
	enriched := make(Metadata, len(meta)+2)
	for key, value := range meta {
		enriched[key] = value
	}
	enriched[KeyContentHash] = ContentHash(text)
	enriched[KeyMetadataHash] = MetadataHash(meta)
	return enriched
}
