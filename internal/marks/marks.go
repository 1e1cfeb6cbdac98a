// Package marks derives grade classifications and semester rollups
// from raw portal scores.
package marks

import (
	"errors"

	"gradex/internal/model"
)

// ErrNoCredits is returned when an SGPA is requested over subjects
// whose credits sum to zero.
var ErrNoCredits = errors.New("marks: total credits is zero")

// Grade classifies a (result, total) pair. Pass results split on the
// 75 and 60 total thresholds; fail and absent map directly.
func Grade(result string, total int) string {
	switch result {
	case model.ResultPass:
		switch {
		case total >= 75:
			return model.GradeFCD
		case total >= 60:
			return model.GradeFC
		default:
			return model.GradeSC
		}
	case model.ResultAbsent:
		return model.GradeAbsent
	default:
		return model.GradeFail
	}
}

// GradePoint maps a subject total onto the 10-point scale.
func GradePoint(total int) int {
	switch {
	case total >= 90:
		return 10
	case total >= 80:
		return 9
	case total >= 70:
		return 8
	case total >= 60:
		return 7
	case total >= 50:
		return 6
	case total >= 40:
		return 5
	default:
		return 0
	}
}

// SGPA computes the credit-weighted grade point average over parallel
// slices of subject totals and credits.
func SGPA(totals, credits []int) (float64, error) {
	if len(totals) != len(credits) {
		return 0, errors.New("marks: totals and credits length mismatch")
	}

	var weighted, sum int
	for i, total := range totals {
		weighted += GradePoint(total) * credits[i]
		sum += credits[i]
	}
	if sum == 0 {
		return 0, ErrNoCredits
	}
	return float64(weighted) / float64(sum), nil
}
