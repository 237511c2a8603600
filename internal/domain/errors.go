package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidScore = errors.New("invalid score")
	ErrIngestion    = errors.New("ingestion failed")
	ErrMissingID    = errors.New("review id is required")
	// ErrSuperseded marks a fetch whose result arrived after a newer fetch was issued.
	ErrSuperseded = errors.New("fetch superseded")
)

type InvalidScoreError struct {
	ID    string
	Score int
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("review %q: predicted_score %d outside %d..%d", e.ID, e.Score, MinScore, MaxScore)
}

func (e *InvalidScoreError) Is(target error) bool { return target == ErrInvalidScore }

// IngestionError wraps a failed fetch from a review source.
type IngestionError struct {
	Source string
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion from %s: %v", e.Source, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }
