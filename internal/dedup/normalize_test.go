// File path: internal/dedup/normalize_test.go
package dedup

import "testing"

func TestNormalizeTextCanonicalizes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Co-Operate  Now", "cooperate now"},
		{"  leading and trailing  ", "leading and trailing"},
		{"tabs\tand\nnewlines", "tabs and newlines"},
		{"MIXED Case", "mixed case"},
		{"", ""},
		{"   \t\n ", ""},
		{"self-contained multi-word", "selfcontained multiword"},
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"Co-Operate  Now",
		"Introduction to Neural Networks",
		"",
		"already normalized text",
		"  A-b  C\t d ",
	}
	for _, in := range inputs {
		once := NormalizeText(in)
		twice := NormalizeText(once)
		if once != twice {
			t.Fatalf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeMetadataDefaultsMissingFields(t *testing.T) {
	normalized := NormalizeMetadata(Metadata{FieldTitle: "A Title"})
	for _, field := range canonicalFields {
		if _, ok := normalized[field]; !ok {
			t.Fatalf("expected field %q present in normalized metadata", field)
		}
	}
	if normalized[FieldAuthor] != "" || normalized[FieldIdentifier] != "" {
		t.Fatalf("missing fields should normalize to empty strings: %v", normalized)
	}
	if normalized[FieldTitle] != "a title" {
		t.Fatalf("title not normalized: %q", normalized[FieldTitle])
	}
}

func TestNormalizeMetadataNilInput(t *testing.T) {
	normalized := NormalizeMetadata(nil)
	if len(normalized) != len(canonicalFields) {
		t.Fatalf("expected %d fields, got %d", len(canonicalFields), len(normalized))
	}
	for field, value := range normalized {
		if value != "" {
			t.Fatalf("field %q should be empty, got %q", field, value)
		}
	}
}

func TestNormalizeMetadataDoesNotMutateInput(t *testing.T) {
	meta := Metadata{FieldTitle: "Raw-Title", "custom": "kept"}
	_ = NormalizeMetadata(meta)
	if meta[FieldTitle] != "Raw-Title" || meta["custom"] != "kept" {
		t.Fatalf("input metadata mutated: %v", meta)
	}
}
