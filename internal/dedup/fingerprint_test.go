// File path: internal/dedup/fingerprint_test.go
package dedup

import "testing"

// SHA-256 of the empty string; empty or whitespace-only content must hash to
// this rather than erroring.
const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestContentHashStable(t *testing.T) {
	first := ContentHash("Some document body")
	second := ContentHash("Some document body")
	if first != second {
		t.Fatalf("content hash unstable: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
}

func TestContentHashNormalizationInsensitive(t *testing.T) {
	if ContentHash("Co-Operate  Now") != ContentHash("cooperate now") {
		t.Fatalf("case/whitespace/hyphen variants should hash identically")
	}
	if ContentHash("alpha beta") == ContentHash("alpha gamma") {
		t.Fatalf("distinct content should not collide")
	}
}

func TestContentHashEmptyInput(t *testing.T) {
	if got := ContentHash(""); got != emptySHA256 {
		t.Fatalf("empty content hash = %s, want %s", got, emptySHA256)
	}
	if got := ContentHash("  \t\n"); got != emptySHA256 {
		t.Fatalf("whitespace-only content should hash like empty, got %s", got)
	}
}

func TestMetadataHashFieldOrderIndependent(t *testing.T) {
	a := Metadata{
		FieldTitle:      "Annual Report",
		FieldAuthor:     "Finance Team",
		FieldIdentifier: "rep-2024",
		FieldSourcePath: "/data/reports/annual.pdf",
	}
	// Same values, different insertion order.
	b := Metadata{}
	b[FieldSourcePath] = "/data/reports/annual.pdf"
	b[FieldIdentifier] = "rep-2024"
	b[FieldAuthor] = "Finance Team"
	b[FieldTitle] = "Annual Report"
	if MetadataHash(a) != MetadataHash(b) {
		t.Fatalf("metadata hash should not depend on map insertion order")
	}
}

func TestMetadataHashMissingFieldsEqualExplicitEmpty(t *testing.T) {
	sparse := Metadata{FieldTitle: "Annual Report", FieldSourcePath: "/data/annual.pdf"}
	explicit := Metadata{
		FieldTitle:      "Annual Report",
		FieldAuthor:     "",
		FieldIdentifier: "",
		FieldSourcePath: "/data/annual.pdf",
	}
	if MetadataHash(sparse) != MetadataHash(explicit) {
		t.Fatalf("missing fields must hash as empty strings")
	}
}

func TestMetadataHashFieldBoundaries(t *testing.T) {
	// Values shifted across adjacent fields must not collide.
	a := Metadata{FieldTitle: "alpha beta", FieldAuthor: ""}
	b := Metadata{FieldTitle: "alpha", FieldAuthor: "beta"}
	if MetadataHash(a) == MetadataHash(b) {
		t.Fatalf("field boundary collision between %v and %v", a, b)
	}
}

func TestEnrichMetadataAddsHashesWithoutMutation(t *testing.T) {
	meta := Metadata{FieldTitle: "A Study", "extra": "preserved"}
	enriched := EnrichMetadata(meta, "body text")
	if enriched[KeyContentHash] != ContentHash("body text") {
		t.Fatalf("content hash mismatch")
	}
	if enriched[KeyMetadataHash] != MetadataHash(meta) {
		t.Fatalf("metadata hash mismatch")
	}
	if enriched["extra"] != "preserved" {
		t.Fatalf("non-canonical fields should be copied through")
	}
	if len(meta) != 2 {
		t.Fatalf("input metadata mutated: %v", meta)
	}
	if _, ok := meta[KeyContentHash]; ok {
		t.Fatalf("input metadata gained content_hash")
	}
	enriched[FieldTitle] = "changed"
	if meta[FieldTitle] != "A Study" {
		t.Fatalf("enriched copy shares storage with input")
	}
}

func TestEnrichMetadataOverwritesStaleHashes(t *testing.T) {
	meta := Metadata{FieldTitle: "A Study", KeyContentHash: "stale", KeyMetadataHash: "stale"}
	enriched := EnrichMetadata(meta, "body text")
	if enriched[KeyContentHash] == "stale" || enriched[KeyMetadataHash] == "stale" {
		t.Fatalf("stale hashes should be overwritten: %v", enriched)
	}
}
