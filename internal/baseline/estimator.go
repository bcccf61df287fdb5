// Package baseline estimates a robust working weight per exercise and runs
// the proposal workflow that guards the stored value: statistical noise never
// ratchets a recommendation without an explicit confirmation.
package baseline

import (
	"math"
	"sort"
	"time"

	"github.com/claude/liftstate/internal/models"
)

// Estimator derives candidate working weights from recent qualifying history.
type Estimator struct {
	th models.Thresholds
}

func NewEstimator(th models.Thresholds) *Estimator {
	return &Estimator{th: th}
}

// Qualifies reports whether a set may serve as a baseline candidate for its
// exercise: reps inside the exercise-type band and, when an effort rating is
// present, the rating inside the reps-in-reserve band.
func (e *Estimator) Qualifies(s models.Set, ex models.Exercise) bool {
	min, max := e.th.CompoundRepMin, e.th.CompoundRepMax
	if ex.ExerciseType == models.ExerciseIsolation {
		min, max = e.th.IsolationRepMin, e.th.IsolationRepMax
	}
	if s.Reps < min || s.Reps > max {
		return false
	}
	if s.EffortRating != nil {
		if *s.EffortRating < e.th.EffortMin || *s.EffortRating > e.th.EffortMax {
			return false
		}
	}
	return true
}

// Estimate computes the candidate working weight for one exercise from its
// set history. It returns ok=false while fewer than the minimum number of
// qualifying training days exist.
//
// Per qualifying day the heaviest qualifying set is the candidate; only the
// most recent window of qualifying days counts. Outliers are trimmed from
// the top before taking the median, then the result is rounded to the
// equipment step. Deliberately conservative: one lucky session cannot skew
// the recommendation.
func (e *Estimator) Estimate(sets []models.Set, ex models.Exercise) (float64, bool) {
	bestPerDay := make(map[time.Time]float64)
	for _, s := range sets {
		if s.ExerciseID != ex.ID || !e.Qualifies(s, ex) {
			continue
		}
		d := s.Day()
		if s.TotalLoadKg > bestPerDay[d] {
			bestPerDay[d] = s.TotalLoadKg
		}
	}

	days := make([]time.Time, 0, len(bestPerDay))
	for d := range bestPerDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	if len(days) > e.th.BaselineWindowDays {
		days = days[:e.th.BaselineWindowDays]
	}
	if len(days) < e.th.BaselineMinDays {
		return 0, false
	}

	candidates := make([]float64, 0, len(days))
	for _, d := range days {
		candidates = append(candidates, bestPerDay[d])
	}
	sort.Float64s(candidates)
	candidates = trimTop(candidates)

	return RoundToStep(median(candidates), ex.WeightStepKg()), true
}

// trimTop drops the highest candidates: the top tenth (rounded up) when ten
// or more exist, otherwise the single highest when at least four exist.
// Input must be sorted ascending.
func trimTop(sorted []float64) []float64 {
	n := len(sorted)
	switch {
	case n >= 10:
		return sorted[:n-int(math.Ceil(float64(n)/10))]
	case n >= 4:
		return sorted[:n-1]
	default:
		return sorted
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// RoundToStep rounds a weight to the nearest multiple of step.
func RoundToStep(weight, step float64) float64 {
	if step <= 0 {
		return weight
	}
	return math.Round(weight/step) * step
}
