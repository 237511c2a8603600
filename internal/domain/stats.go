package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Distribution counts reviews per star; index 0 holds rating 1.
// It is an array so copies of AggregateStats never share buckets.
type Distribution [MaxScore]int

// Count returns the number of reviews with the given rating, 0 for ratings outside 1..5.
func (d Distribution) Count(rating int) int {
	if !ValidScore(rating) {
		return 0
	}
	return d[rating-1]
}

func (d Distribution) Sum() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, MaxScore)
	for r := MinScore; r <= MaxScore; r++ {
		m[strconv.Itoa(r)] = d[r-1]
	}
	return json.Marshal(m)
}

func (d *Distribution) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Distribution
	for k, v := range m {
		r, err := strconv.Atoi(k)
		if err != nil || !ValidScore(r) {
			return fmt.Errorf("distribution: unknown rating %q", k)
		}
		out[r-1] = v
	}
	*d = out
	return nil
}

// AggregateStats is the published summary of a review collection.
// Values are replaced wholesale on every recompute, never mutated.
type AggregateStats struct {
	TotalReviews  int          `json:"totalReviews"`
	AverageRating float64      `json:"averageRating"`
	Distribution  Distribution `json:"distribution"`
}

// Percentage is round(100*count/total) for the bucket, rounded half away from zero
// independently per bucket, so the five values may not add up to 100.
func (s AggregateStats) Percentage(rating int) int {
	if s.TotalReviews <= 0 {
		return 0
	}
	n := s.TotalReviews
	return (200*s.Distribution.Count(rating) + n) / (2 * n)
}

// Percentages returns Percentage for every rating keyed 1..5.
func (s AggregateStats) Percentages() map[int]int {
	out := make(map[int]int, MaxScore)
	for r := MinScore; r <= MaxScore; r++ {
		out[r] = s.Percentage(r)
	}
	return out
}

// MarshalJSON adds the derived percentages next to the stored fields.
func (s AggregateStats) MarshalJSON() ([]byte, error) {
	type plain AggregateStats
	pct := make(map[string]int, MaxScore)
	for r := MinScore; r <= MaxScore; r++ {
		pct[strconv.Itoa(r)] = s.Percentage(r)
	}
	return json.Marshal(struct {
		plain
		Percentages map[string]int `json:"percentages"`
	}{plain(s), pct})
}
