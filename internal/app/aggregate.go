package app

import "review_insights/internal/domain"

// Recompute derives AggregateStats from records in a single pass. It is pure:
// the same input always yields the same value.
//
// Records with a score outside 1..5 are skipped entirely (neither counted nor
// summed). Ingestion rejects them earlier, this only keeps the bucket
// addressing in range.
func Recompute(records []domain.ReviewRecord) domain.AggregateStats {
	var (
		dist  domain.Distribution
		sum   int
		total int
	)
	for _, r := range records {
		if !domain.ValidScore(r.PredictedScore) {
			continue
		}
		dist[r.PredictedScore-1]++
		sum += r.PredictedScore
		total++
	}
	return domain.AggregateStats{
		TotalReviews:  total,
		AverageRating: round1(sum, total),
		Distribution:  dist,
	}
}

// round1 returns sum/total rounded half away from zero to one decimal place,
// or 0 when total is 0. Integer arithmetic avoids float representation drift
// (3.85 must round to 3.9).
func round1(sum, total int) float64 {
	if total <= 0 {
		return 0
	}
	tenths := (20*sum + total) / (2 * total)
	return float64(tenths) / 10
}
