package models

import "time"

// BaselineStatus tracks where a stored baseline sits in its lifecycle.
type BaselineStatus string

const (
	// BaselineReady: established from data, no decision outstanding.
	BaselineReady BaselineStatus = "ready"
	// BaselineHolding: a pending proposal exists; the stored value is held
	// until the athlete decides.
	BaselineHolding BaselineStatus = "holding"
	// BaselineUpdated: the value was changed through a confirmed proposal.
	BaselineUpdated BaselineStatus = "updated"
	// BaselineLocked: the athlete declined the last proposal; the stored
	// value stands until the next evaluation cycle produces a new candidate.
	BaselineLocked BaselineStatus = "locked"
)

// Baseline is the recommended stable working weight for one exercise.
// Mutated only through the proposal workflow.
type Baseline struct {
	ExerciseID  string         `json:"exerciseId"`
	WeightKg    float64        `json:"weightKg"`
	Status      BaselineStatus `json:"status"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// ProposalStatus is the lifecycle state of a baseline change proposal.
type ProposalStatus string

const (
	ProposalPending ProposalStatus = "PENDING"
	ProposalConfirm ProposalStatus = "CONFIRM"
	ProposalSnooze  ProposalStatus = "SNOOZE"
	ProposalDecline ProposalStatus = "DECLINE"
)

// Proposal is a candidate baseline change awaiting an explicit decision.
// Exactly one of the three actions (or expiry at the next evaluation pass)
// terminates it.
type Proposal struct {
	ID            string         `json:"proposalId"`
	ExerciseID    string         `json:"exerciseId"`
	OldBaselineKg float64        `json:"oldBaseline"`
	NewBaselineKg float64        `json:"newBaseline"`
	StepKg        float64        `json:"step"`
	Evidence      string         `json:"evidence"`
	CreatedAt     time.Time      `json:"createdAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	Status        ProposalStatus `json:"status"`
}

// Expired reports whether the proposal's decision window has passed.
func (p Proposal) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
