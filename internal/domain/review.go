package domain

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	MinScore = 1
	MaxScore = 5
)

type ReviewRecord struct {
	ID             string `json:"id"`
	PredictedScore int    `json:"predicted_score" validate:"min=1,max=5"`
	Text           string `json:"text,omitempty"`
}

var validate = validator.New()

// Validate reports an *InvalidScoreError when PredictedScore is outside 1..5.
func (r ReviewRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.StructField() == "PredictedScore" {
					return &InvalidScoreError{ID: r.ID, Score: r.PredictedScore}
				}
			}
		}
		return err
	}
	return nil
}

// ValidScore reports whether s addresses one of the five distribution buckets.
func ValidScore(s int) bool { return s >= MinScore && s <= MaxScore }
