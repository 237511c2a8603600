package app

import (
	"review_insights/internal/domain"
)

// QueryService reads from the controller's last published view.
type QueryService struct {
	ctrl *RefreshController
}

func NewQueryService(c *RefreshController) *QueryService {
	return &QueryService{ctrl: c}
}

func (s *QueryService) Stats() domain.AggregateStats {
	return s.ctrl.Current().Stats
}

// ListReviews returns up to limit records in insertion order (limit <= 0 means all).
// Count is the full collection size.
func (s *QueryService) ListReviews(limit int) domain.ReviewsPage {
	recs := s.ctrl.Current().Records
	n := len(recs)
	if limit > 0 && limit < n {
		recs = recs[:limit]
	}
	// copy so callers cannot alias the published snapshot
	items := make([]domain.ReviewRecord, len(recs))
	copy(items, recs)
	return domain.ReviewsPage{Items: items, Count: n}
}

func (s *QueryService) GetReview(id string) (domain.ReviewRecord, error) {
	for _, r := range s.ctrl.Current().Records {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ReviewRecord{}, domain.ErrNotFound
}
