package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"review_insights/internal/adapters/observability"
	"review_insights/internal/domain"
)

// IngestResult counts what a single refresh did.
type IngestResult struct {
	Token    uint64 `json:"token"`
	Fetched  int    `json:"fetched"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Applied  bool   `json:"applied"`
}

// IngestStatus is the outcome of the most recent refreshes, for readiness.
type IngestStatus struct {
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

func (s IngestStatus) Ready() bool { return s.LastSuccess != nil }

type IngestionService struct {
	src  domain.ReviewSource
	sink domain.ReviewSink // nil when submissions live only in memory
	ctrl *RefreshController

	mu     sync.Mutex
	status IngestStatus
}

// NewIngestionService refreshes from src. When src is also a
// domain.ReviewSink, submitted reviews are stored there first so the next
// refresh returns them.
func NewIngestionService(src domain.ReviewSource, ctrl *RefreshController) *IngestionService {
	s := &IngestionService{src: src, ctrl: ctrl}
	if sink, ok := src.(domain.ReviewSink); ok {
		s.sink = sink
	}
	return s
}

// Refresh fetches the full review set and replaces the collection with its
// valid records. On a failed fetch nothing changes and the previously
// published stats stay current; the returned error matches domain.ErrIngestion.
// A fetch overtaken by a newer one returns domain.ErrSuperseded.
func (s *IngestionService) Refresh(ctx context.Context) (IngestResult, error) {
	res := IngestResult{Token: s.ctrl.IssueToken()}

	recs, err := s.src.FetchReviews(ctx)
	if err != nil {
		ierr := &domain.IngestionError{Source: s.src.Name(), Err: err}
		observability.ObserveIngest("failed", err)
		log.Warn().Err(err).Str("source", s.src.Name()).Uint64("token", res.Token).
			Msg("ingestion failed; keeping last published stats")
		s.recordFailure(ierr)
		return res, ierr
	}
	res.Fetched = len(recs)

	valid := s.filterValid(recs)
	res.Accepted = len(valid)
	res.Rejected = res.Fetched - res.Accepted

	if err := s.ctrl.Replace(ctx, res.Token, valid); err != nil {
		if errors.Is(err, domain.ErrSuperseded) {
			observability.ObserveIngest("superseded", nil)
		}
		return res, err
	}
	res.Applied = true
	observability.ObserveIngest("ok", nil)
	s.recordSuccess()

	log.Info().
		Str("source", s.src.Name()).
		Uint64("token", res.Token).
		Int("fetched", res.Fetched).
		Int("rejected", res.Rejected).
		Msg("ingestion applied")
	return res, nil
}

// Submit validates and appends a single scored review and returns it as
// stored. With a sink the review is persisted first and takes the sink's id;
// without one the caller must supply the id.
func (s *IngestionService) Submit(ctx context.Context, r domain.ReviewRecord) (domain.ReviewRecord, error) {
	if err := r.Validate(); err != nil {
		observability.ObserveRejected(1)
		return r, err
	}
	if s.sink != nil {
		id, err := s.sink.Insert(ctx, r)
		if err != nil {
			log.Error().Err(err).Str("source", s.src.Name()).Msg("persisting review failed")
			return r, fmt.Errorf("persist review: %w", err)
		}
		r.ID = id
	} else if r.ID == "" {
		return r, domain.ErrMissingID
	}
	return r, s.ctrl.Append(ctx, r)
}

func (s *IngestionService) Status() IngestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// filterValid drops records failing validation; one bad record never aborts
// the batch.
func (s *IngestionService) filterValid(recs []domain.ReviewRecord) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, 0, len(recs))
	for i, r := range recs {
		if err := r.Validate(); err != nil {
			log.Warn().Err(err).Int("index", i).Str("id", r.ID).Int("score", r.PredictedScore).
				Msg("rejecting review")
			continue
		}
		out = append(out, r)
	}
	if n := len(recs) - len(out); n > 0 {
		observability.ObserveRejected(n)
	}
	return out
}

func (s *IngestionService) recordSuccess() {
	s.mu.Lock()
	now := time.Now()
	s.status.LastSuccess = &now
	s.mu.Unlock()
}

func (s *IngestionService) recordFailure(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	now := time.Now()
	s.status.LastErrorAt = &now
	s.mu.Unlock()
}
