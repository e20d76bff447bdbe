// File path: internal/dedup/detector.go
package dedup

import (
	"context"
	"errors"
	"fmt"
)

// Strategy identifies which detection strategy produced a duplicate verdict.
type Strategy string

const (
	StrategyContentHash  Strategy = "content_hash"
	StrategyMetadataHash Strategy = "metadata_hash"
	StrategySourcePath   Strategy = "source_path"
	StrategyFuzzyTitle   Strategy = "fuzzy_title"
)

// Verdict is the outcome of a duplicate check. When IsDuplicate is false the
// remaining fields are zero. TitleScore is only populated for fuzzy title
// matches.
type Verdict struct {
	IsDuplicate bool     `json:"is_duplicate"`
	MatchedID   string   `json:"matched_id,omitempty"`
	Strategy    Strategy `json:"strategy,omitempty"`
	TitleScore  int      `json:"title_score,omitempty"`
}

// ErrLookupFailed marks verdicts that could not be produced because the corpus
// accessor failed or the context was cancelled mid-check. Callers must treat
// it as "uniqueness unverified", never as "not a duplicate".
var ErrLookupFailed = errors.New("corpus lookup failed")

// LookupError wraps the accessor failure that aborted a duplicate check. It
// matches ErrLookupFailed under errors.Is.
type LookupError struct {
	Op  string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) Is(target error) bool { return target == ErrLookupFailed }

// CorpusAccessor is the read-only view of the existing corpus the detector
// queries. Lookups return the matched entry id and whether a match exists.
// StreamTitles yields every stored entry's normalized title in stable
// insertion order; returning an error from fn aborts the stream.
type CorpusAccessor interface {
	FindByContentHash(ctx context.Context, hash string) (string, bool, error)
	FindByMetadataHash(ctx context.Context, hash string) (string, bool, error)
	FindBySourcePath(ctx context.Context, normalizedPath string) (string, bool, error)
	StreamTitles(ctx context.Context, fn func(id, normalizedTitle string) error) error
}

const defaultTitleThreshold = 90

// Config controls duplicate detection. TitleThreshold is the minimum
// TokenSortRatio score (0-100) for a fuzzy title match.
type Config struct {
	TitleThreshold int
}

// DefaultConfig returns the standard detection configuration.
func DefaultConfig() Config {
	return Config{TitleThreshold: defaultTitleThreshold}
}

// Detector runs the layered duplicate detection strategies. It holds no
// mutable state and is safe for concurrent use.
type Detector struct {
	cfg Config
}

// NewDetector constructs a detector, falling back to the default threshold
// when the configured one is out of range.
func NewDetector(cfg Config) *Detector {
	if cfg.TitleThreshold <= 0 || cfg.TitleThreshold > 100 {
		cfg.TitleThreshold = defaultTitleThreshold
	}
	return &Detector{cfg: cfg}
}

// Check decides whether the candidate document duplicates an existing corpus
// entry. Strategies run in fixed priority order and short-circuit on the
// first match: exact content hash, exact metadata hash, exact normalized
// source path, then fuzzy title similarity. Accessor failures abort the check
// with a LookupError; only a successful empty scan is a negative verdict.
func (d *Detector) Check(ctx context.Context, text string, meta Metadata, corpus CorpusAccessor) (Verdict, error) {
	if corpus == nil {
		return Verdict{}, &LookupError{Op: "dedup: check", Err: errors.New("corpus accessor required")}
	}
	if err := ctx.Err(); err != nil {
		return Verdict{}, &LookupError{Op: "dedup: check", Err: err}
	}

	contentHash := ContentHash(text)
	id, found, err := corpus.FindByContentHash(ctx, contentHash)
	if err != nil {
		return Verdict{}, &LookupError{Op: "dedup: content hash lookup", Err: err}
	}
	if found {
		return Verdict{IsDuplicate: true, MatchedID: id, Strategy: StrategyContentHash}, nil
	}

	metadataHash := MetadataHash(meta)
	id, found, err = corpus.FindByMetadataHash(ctx, metadataHash)
	if err != nil {
		return Verdict{}, &LookupError{Op: "dedup: metadata hash lookup", Err: err}
	}
	if found {
		return Verdict{IsDuplicate: true, MatchedID: id, Strategy: StrategyMetadataHash}, nil
	}

	normalized := NormalizeMetadata(meta)
	if path := normalized[FieldSourcePath]; path != "" {
		id, found, err = corpus.FindBySourcePath(ctx, path)
		if err != nil {
			return Verdict{}, &LookupError{Op: "dedup: source path lookup", Err: err}
		}
		if found {
			return Verdict{IsDuplicate: true, MatchedID: id, Strategy: StrategySourcePath}, nil
		}
	}

	title := normalized[FieldTitle]
	if title == "" {
		return Verdict{}, nil
	}
	best := Verdict{}
	err = corpus.StreamTitles(ctx, func(entryID, entryTitle string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		score := TokenSortRatio(title, entryTitle)
		// Ties keep the earliest-streamed entry.
		if score >= d.cfg.TitleThreshold && score > best.TitleScore {
			best = Verdict{IsDuplicate: true, MatchedID: entryID, Strategy: StrategyFuzzyTitle, TitleScore: score}
		}
		return nil
	})
	if err != nil {
		return Verdict{}, &LookupError{Op: "dedup: title scan", Err: err}
	}
	if best.IsDuplicate {
		return best, nil
	}
	return Verdict{}, nil
}
