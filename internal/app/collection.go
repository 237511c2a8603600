package app

import "review_insights/internal/domain"

// ReviewCollection is the ordered, append-only set of reviews for the session.
// It is owned by a single goroutine (the RefreshController loop) and is not safe
// for concurrent use.
type ReviewCollection struct {
	records []domain.ReviewRecord
}

func NewReviewCollection() *ReviewCollection { return &ReviewCollection{} }

// Append adds r at the end. Scores are not checked here; IngestionService
// validates before records reach the collection.
func (c *ReviewCollection) Append(r domain.ReviewRecord) {
	c.records = append(c.records, r)
}

// Replace swaps the whole content for rs, matching a full fetch.
func (c *ReviewCollection) Replace(rs []domain.ReviewRecord) {
	c.records = append([]domain.ReviewRecord(nil), rs...)
}

// Snapshot hands out the current sequence without copying. Its capacity is
// clipped to its length, so later appends (ours or the caller's) never write
// into memory the snapshot can see.
func (c *ReviewCollection) Snapshot() []domain.ReviewRecord {
	return c.records[:len(c.records):len(c.records)]
}

func (c *ReviewCollection) Len() int { return len(c.records) }
