package reviewsapi

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"review_insights/internal/domain"
)

// Field aliases accepted from the backend; first non-empty wins.
var reviewAliases = map[string][]string{
	"id":    {"id", "pk", "review_id"},
	"score": {"predicted_score", "score", "rating"},
	"text":  {"text", "cleaned_text", "review_text", "review"},
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstIntFlexible: integer from several paths (JSON number or numeric string).
// Non-integral numbers are not integers and are skipped.
func firstIntFlexible(m map[string]any, paths ...string) (int, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		case string:
			s := strings.TrimSpace(v)
			if n, err := strconv.Atoi(s); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// mapReviews converts backend rows into records. A missing or unusable score
// maps to 0, which validation later rejects; nothing is corrected here.
func mapReviews(in []map[string]any) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, 0, len(in))
	for _, r := range in {
		var rv domain.ReviewRecord
		rv.Text = firstString(r, reviewAliases["text"]...)
		if s, ok := firstIntFlexible(r, reviewAliases["score"]...); ok {
			rv.PredictedScore = s
		}
		rv.ID = firstString(r, reviewAliases["id"]...)
		if rv.ID == "" {
			// stable id from content when the backend omits one
			sum := sha1.Sum([]byte(strconv.Itoa(rv.PredictedScore) + "|" + rv.Text))
			rv.ID = hex.EncodeToString(sum[:])
		}
		out = append(out, rv)
	}
	return out
}
