package models

import "fmt"

// Thresholds collects every statistical constant the engine uses, so they can
// be tuned and tested independently of the computation logic. Zero values are
// never used directly: load a copy from DefaultThresholds and override fields.
type Thresholds struct {
	// HardSetIntensity is the fraction of best-ever e1RM at or above which a
	// set counts as a hard set.
	HardSetIntensity float64 `yaml:"hard_set_intensity"`

	// TrendStabilityPct bounds the "stable" band for the strength trend, in
	// percent either side of zero.
	TrendStabilityPct float64 `yaml:"trend_stability_pct"`

	// Stimulus volume status bands, as ratios against the prior period.
	StimulusLowRatio  float64 `yaml:"stimulus_low_ratio"`
	StimulusHighRatio float64 `yaml:"stimulus_high_ratio"`

	// Fatigue accumulation: epsilon guards the trend divisor, the two bounds
	// split low / moderate / high.
	FatigueEpsilon  float64 `yaml:"fatigue_epsilon"`
	FatigueModerate float64 `yaml:"fatigue_moderate"`
	FatigueHigh     float64 `yaml:"fatigue_high"`

	// EfficiencyNeutral bounds the neutral band for the efficiency index.
	EfficiencyNeutral float64 `yaml:"efficiency_neutral"`

	// Frequency score: weekly session target and the green/yellow cutoffs.
	SessionsPerWeekTarget int     `yaml:"sessions_per_week_target"`
	FrequencyGreen        float64 `yaml:"frequency_green"`
	FrequencyYellow       float64 `yaml:"frequency_yellow"`

	// Max gap banding, in days.
	GapOKDays      int `yaml:"gap_ok_days"`
	GapWarningDays int `yaml:"gap_warning_days"`

	// DefaultBodyWeightKg is used for Assisted/Bodyweight load normalization
	// when the body-weight log has no entry at or before the set's date.
	DefaultBodyWeightKg float64 `yaml:"default_body_weight_kg"`

	// Baseline qualification rep bands by exercise type.
	CompoundRepMin  int `yaml:"compound_rep_min"`
	CompoundRepMax  int `yaml:"compound_rep_max"`
	IsolationRepMin int `yaml:"isolation_rep_min"`
	IsolationRepMax int `yaml:"isolation_rep_max"`

	// Effort-rating (reps in reserve) band for baseline qualification.
	// Only enforced when a rating is present.
	EffortMin float64 `yaml:"effort_min"`
	EffortMax float64 `yaml:"effort_max"`

	// Baseline estimation: how many recent training days to consider and the
	// minimum qualifying days before a baseline exists.
	BaselineWindowDays int `yaml:"baseline_window_days"`
	BaselineMinDays    int `yaml:"baseline_min_days"`

	// ProposalTTLDays is how long a pending proposal stays actionable before
	// the next evaluation pass declines it.
	ProposalTTLDays int `yaml:"proposal_ttl_days"`
}

// Validate rejects threshold combinations the engine cannot compute with.
func (t Thresholds) Validate() error {
	if t.HardSetIntensity <= 0 || t.HardSetIntensity > 1 {
		return fmt.Errorf("hard_set_intensity must be in (0, 1]")
	}
	if t.FatigueEpsilon <= 0 {
		return fmt.Errorf("fatigue_epsilon must be positive")
	}
	if t.SessionsPerWeekTarget <= 0 {
		return fmt.Errorf("sessions_per_week_target must be positive")
	}
	if t.FrequencyYellow > t.FrequencyGreen {
		return fmt.Errorf("frequency_yellow must not exceed frequency_green")
	}
	if t.GapOKDays > t.GapWarningDays {
		return fmt.Errorf("gap_ok_days must not exceed gap_warning_days")
	}
	if t.CompoundRepMin > t.CompoundRepMax || t.IsolationRepMin > t.IsolationRepMax {
		return fmt.Errorf("rep band minimum exceeds maximum")
	}
	if t.BaselineMinDays <= 0 || t.BaselineWindowDays < t.BaselineMinDays {
		return fmt.Errorf("baseline_window_days must cover baseline_min_days")
	}
	if t.ProposalTTLDays <= 0 {
		return fmt.Errorf("proposal_ttl_days must be positive")
	}
	return nil
}

// DefaultThresholds returns the reference constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HardSetIntensity:      0.70,
		TrendStabilityPct:     1.0,
		StimulusLowRatio:      0.7,
		StimulusHighRatio:     1.3,
		FatigueEpsilon:        0.1,
		FatigueModerate:       5,
		FatigueHigh:           20,
		EfficiencyNeutral:     0.1,
		SessionsPerWeekTarget: 3,
		FrequencyGreen:        0.8,
		FrequencyYellow:       0.6,
		GapOKDays:             4,
		GapWarningDays:        7,
		DefaultBodyWeightKg:   90,
		CompoundRepMin:        6,
		CompoundRepMax:        12,
		IsolationRepMin:       8,
		IsolationRepMax:       15,
		EffortMin:             1,
		EffortMax:             3,
		BaselineWindowDays:    8,
		BaselineMinDays:       4,
		ProposalTTLDays:       7,
	}
}
