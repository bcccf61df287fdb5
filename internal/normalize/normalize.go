// Package normalize converts raw set-log rows into canonical, comparable Set
// values: parsed calendar day, equipment-adjusted total load, estimated
// one-rep-max, and intensity relative to the athlete's best-ever e1RM.
package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/parse"
)

// BodyWeightLookup resolves the athlete's body weight on a given day from the
// nearest prior entry of an external body-weight log.
type BodyWeightLookup func(day time.Time) (float64, bool)

// SkippedRow records one row dropped during normalization, for diagnosability.
type SkippedRow struct {
	Ref    int64
	Reason string
}

// Normalizer turns raw rows into Sets. Dirty rows are tolerated by design:
// they are skipped and traced, never fatal.
type Normalizer struct {
	exercises  map[string]models.Exercise
	bodyWeight BodyWeightLookup
	th         models.Thresholds
	log        *slog.Logger
}

func New(exercises map[string]models.Exercise, bodyWeight BodyWeightLookup, th models.Thresholds, log *slog.Logger) *Normalizer {
	return &Normalizer{
		exercises:  exercises,
		bodyWeight: bodyWeight,
		th:         th,
		log:        log,
	}
}

// Normalize converts rows into Sets, preserving input order. Rows with an
// unparseable date, non-positive reps, or non-positive total load are dropped
// and reported. Rows referencing an unknown exercise are kept (load taken
// as entered, no e1RM) so the history view never loses data; analytics
// filters them out by exercise lookup.
func (n *Normalizer) Normalize(rows []models.RawSetRow) ([]models.Set, []SkippedRow) {
	sets := make([]models.Set, 0, len(rows))
	var skipped []SkippedRow

	skip := func(ref int64, reason string) {
		skipped = append(skipped, SkippedRow{Ref: ref, Reason: reason})
		n.log.Debug("row skipped", "ref", ref, "reason", reason)
	}

	for _, row := range rows {
		day, ok := parse.Day(row.DateToken)
		if !ok {
			skip(row.Ref, fmt.Sprintf("unparseable date %q", row.DateToken))
			continue
		}

		inputWeight, ok := parse.Decimal(row.InputWeight)
		if !ok {
			inputWeight = 0
		}
		reps, ok := parse.Int(row.Reps)
		if !ok {
			reps = 0
		}
		if reps <= 0 {
			skip(row.Ref, "non-positive reps")
			continue
		}

		ex, resolved := n.exercises[row.ExerciseID]
		totalLoad := inputWeight
		if resolved {
			totalLoad = n.totalLoad(ex, inputWeight, day)
		}
		if totalLoad <= 0 {
			skip(row.Ref, "non-positive total load")
			continue
		}

		s := models.Set{
			Date:            day,
			ExerciseID:      row.ExerciseID,
			InputWeightKg:   inputWeight,
			TotalLoadKg:     totalLoad,
			Reps:            reps,
			SupersetGroupID: row.SupersetGroupID,
			Note:            row.Note,
		}
		if rest, ok := parse.Decimal(row.RestSeconds); ok {
			s.RestSeconds = rest
		}
		if effort, ok := parse.Decimal(row.EffortRating); ok {
			s.EffortRating = &effort
		}
		if order, ok := parse.Int(row.Order); ok {
			s.Order = order
		}
		if resolved && ex.AllowE1RM() {
			s.E1RM = E1RM(totalLoad, reps)
		}
		sets = append(sets, s)
	}

	markIntensity(sets, n.th.HardSetIntensity)
	return sets, skipped
}

func (n *Normalizer) totalLoad(ex models.Exercise, inputWeight float64, day time.Time) float64 {
	return TotalLoad(ex, inputWeight, n.bodyWeightOn(day))
}

// TotalLoad applies the weight-type normalization rules for one entered
// weight, given the athlete's body weight on the day.
func TotalLoad(ex models.Exercise, inputWeight, bodyWeightKg float64) float64 {
	switch ex.WeightType {
	case models.WeightBarbell, models.WeightPlateLoaded:
		mult := ex.WeightMultiplier
		if mult == 0 {
			mult = 1
		}
		return inputWeight*float64(mult) + ex.BaseWeightKg
	case models.WeightAssisted:
		return math.Max(0, bodyWeightKg-inputWeight)
	case models.WeightBodyweight:
		return bodyWeightKg + inputWeight
	default: // Dumbbell, machine-style: entered weight is already the total
		return inputWeight
	}
}

func (n *Normalizer) bodyWeightOn(day time.Time) float64 {
	if n.bodyWeight != nil {
		if bw, ok := n.bodyWeight(day); ok {
			return bw
		}
	}
	return n.th.DefaultBodyWeightKg
}

// E1RM estimates a one-rep-max with the Epley formula, rounded to 1 decimal.
func E1RM(totalLoadKg float64, reps int) float64 {
	e := totalLoadKg * (1 + float64(reps)/30)
	return math.Round(e*10) / 10
}

// markIntensity fills Intensity and HardSet for each set against the best
// e1RM seen for that exercise across the whole stream.
func markIntensity(sets []models.Set, hardSetIntensity float64) {
	best := make(map[string]float64)
	for _, s := range sets {
		if s.E1RM > best[s.ExerciseID] {
			best[s.ExerciseID] = s.E1RM
		}
	}
	for i := range sets {
		if max := best[sets[i].ExerciseID]; max > 0 {
			sets[i].Intensity = sets[i].TotalLoadKg / max
			sets[i].HardSet = sets[i].Intensity >= hardSetIntensity
		}
	}
}
