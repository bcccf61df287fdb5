package models

import "time"

// EquipmentType classifies the implement an exercise is performed with.
type EquipmentType string

const (
	EquipmentBarbell  EquipmentType = "barbell"
	EquipmentDumbbell EquipmentType = "dumbbell"
	EquipmentMachine  EquipmentType = "machine"
)

// ExerciseType distinguishes multi-joint from single-joint movements.
// It selects the rep band used when qualifying baseline candidates.
type ExerciseType string

const (
	ExerciseCompound  ExerciseType = "compound"
	ExerciseIsolation ExerciseType = "isolation"
)

// WeightType describes how the entered weight relates to the load actually moved.
type WeightType string

const (
	WeightBarbell     WeightType = "Barbell"
	WeightDumbbell    WeightType = "Dumbbell"
	WeightPlateLoaded WeightType = "Plate_Loaded"
	WeightAssisted    WeightType = "Assisted"
	WeightBodyweight  WeightType = "Bodyweight"
)

// Exercise is reference data for one movement. Owned externally; the engine
// only reads it.
type Exercise struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	MuscleGroup      string        `json:"muscleGroup"`
	EquipmentType    EquipmentType `json:"equipmentType"`
	ExerciseType     ExerciseType  `json:"exerciseType"`
	WeightType       WeightType    `json:"weightType"`
	BaseWeightKg     float64       `json:"baseWeightKg"`
	WeightMultiplier int           `json:"weightMultiplier"`
	Note             string        `json:"note,omitempty"`
}

// AllowE1RM reports whether a one-rep-max estimate is meaningful for this
// exercise. Bodyweight-relative movements have none.
func (e Exercise) AllowE1RM() bool {
	return e.WeightType != WeightAssisted && e.WeightType != WeightBodyweight
}

// WeightStepKg is the rounding step for recommended weights: 2.5 kg for
// barbell work, 1 kg for everything else.
func (e Exercise) WeightStepKg() float64 {
	if e.EquipmentType == EquipmentBarbell || e.WeightType == WeightBarbell {
		return 2.5
	}
	return 1
}

// RawSetRow is one row of the append-only set log exactly as stored: every
// field a token, no coercion applied. Ref identifies the row for targeted
// corrections.
type RawSetRow struct {
	Ref             int64  `json:"ref"`
	DateToken       string `json:"date"`
	ExerciseID      string `json:"exerciseId"`
	ExerciseName    string `json:"exerciseName"`
	InputWeight     string `json:"inputWeight"`
	TotalWeight     string `json:"totalWeight"`
	Reps            string `json:"reps"`
	RestSeconds     string `json:"restSeconds"`
	SupersetGroupID string `json:"supersetGroupId"`
	Note            string `json:"note"`
	Order           string `json:"order"`
	EffortRating    string `json:"effortRating"`
}

// Set is a normalized, analytics-ready set. Immutable once derived.
type Set struct {
	Date            time.Time `json:"date"` // calendar day, time-of-day discarded
	ExerciseID      string    `json:"exerciseId"`
	InputWeightKg   float64   `json:"inputWeightKg"`
	TotalLoadKg     float64   `json:"totalLoadKg"`
	Reps            int       `json:"reps"`
	RestSeconds     float64   `json:"restSeconds,omitempty"`
	EffortRating    *float64  `json:"effortRating,omitempty"` // reps in reserve
	SupersetGroupID string    `json:"supersetGroupId,omitempty"`
	Order           int       `json:"order"`
	Note            string    `json:"note,omitempty"`

	// Derived values.
	E1RM      float64 `json:"e1rm,omitempty"` // 0 when the exercise disallows 1RM estimation
	Intensity float64 `json:"intensity"`      // totalLoad / best-ever e1RM for the exercise
	HardSet   bool    `json:"hardSet"`
}

// Day returns the calendar day the set belongs to.
func (s Set) Day() time.Time {
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
}
