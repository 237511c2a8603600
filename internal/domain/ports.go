package domain

import "context"

// ReviewSource yields the authoritative, full set of reviews on every successful call.
type ReviewSource interface {
	Name() string
	FetchReviews(ctx context.Context) ([]ReviewRecord, error)
}

// ReviewSink durably stores a submitted review and returns the id it was
// stored under. Sources backed by a writable store also implement it.
type ReviewSink interface {
	Insert(ctx context.Context, r ReviewRecord) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type ReviewsPage struct {
	Items []ReviewRecord `json:"items"`
	Count int            `json:"count"`
}
