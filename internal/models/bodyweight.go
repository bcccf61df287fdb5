package models

import "time"

// BodyWeightEntry is one body-weight measurement. Assisted and bodyweight
// exercises are normalized against the nearest prior entry.
type BodyWeightEntry struct {
	Day      time.Time `json:"day"`
	WeightKg float64   `json:"weightKg"`
}
