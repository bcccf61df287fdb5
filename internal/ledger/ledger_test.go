package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/claude/liftstate/internal/models"
)

func openTestLedger(t *testing.T) *DB {
	t.Helper()
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// Baselines round-trip through the store and replace on conflict.
func TestBaselineUpsert(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	b := models.Baseline{
		ExerciseID:  "ex-squat",
		WeightKg:    100,
		Status:      models.BaselineReady,
		LastUpdated: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := l.UpsertBaseline(ctx, b); err != nil {
		t.Fatalf("UpsertBaseline() error = %v", err)
	}

	b.WeightKg = 102.5
	b.Status = models.BaselineUpdated
	if err := l.UpsertBaseline(ctx, b); err != nil {
		t.Fatalf("UpsertBaseline() second error = %v", err)
	}

	got, err := l.Baselines(ctx)
	if err != nil {
		t.Fatalf("Baselines() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(baselines) = %d, want 1", len(got))
	}
	stored := got["ex-squat"]
	if stored.WeightKg != 102.5 {
		t.Errorf("WeightKg = %v, want 102.5", stored.WeightKg)
	}
	if stored.Status != models.BaselineUpdated {
		t.Errorf("Status = %q, want %q", stored.Status, models.BaselineUpdated)
	}
	if !stored.LastUpdated.Equal(b.LastUpdated) {
		t.Errorf("LastUpdated = %v, want %v", stored.LastUpdated, b.LastUpdated)
	}
}

// Proposals round-trip and status updates stick.
func TestProposalLifecycle(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	p := models.Proposal{
		ID:            "prop-1",
		ExerciseID:    "ex-bench",
		OldBaselineKg: 80,
		NewBaselineKg: 85,
		StepKg:        2.5,
		Evidence:      "trimmed median of 6 qualifying days",
		CreatedAt:     created,
		ExpiresAt:     created.AddDate(0, 0, 7),
		Status:        models.ProposalPending,
	}
	if err := l.InsertProposal(ctx, p); err != nil {
		t.Fatalf("InsertProposal() error = %v", err)
	}

	got, err := l.GetProposal(ctx, "prop-1")
	if err != nil {
		t.Fatalf("GetProposal() error = %v", err)
	}
	if got.NewBaselineKg != 85 || got.Status != models.ProposalPending {
		t.Errorf("GetProposal() = %+v, want new=85 status=PENDING", got)
	}

	if err := l.SetProposalStatus(ctx, "prop-1", models.ProposalConfirm); err != nil {
		t.Fatalf("SetProposalStatus() error = %v", err)
	}
	got, err = l.GetProposal(ctx, "prop-1")
	if err != nil {
		t.Fatalf("GetProposal() after update error = %v", err)
	}
	if got.Status != models.ProposalConfirm {
		t.Errorf("Status = %q, want %q", got.Status, models.ProposalConfirm)
	}
}

// Listing returns proposals newest first.
func TestProposalsOrder(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		p := models.Proposal{
			ID:         id,
			ExerciseID: "ex-row",
			CreatedAt:  base.AddDate(0, 0, i),
			ExpiresAt:  base.AddDate(0, 0, i+7),
			Status:     models.ProposalPending,
		}
		if err := l.InsertProposal(ctx, p); err != nil {
			t.Fatalf("InsertProposal(%s) error = %v", id, err)
		}
	}

	got, err := l.Proposals(ctx)
	if err != nil {
		t.Fatalf("Proposals() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(proposals) = %d, want 3", len(got))
	}
	if got[0].ID != "new" || got[2].ID != "old" {
		t.Errorf("order = [%s %s %s], want [new mid old]", got[0].ID, got[1].ID, got[2].ID)
	}
}

// Updating a missing proposal is an error, not a silent no-op.
func TestSetProposalStatusMissing(t *testing.T) {
	l := openTestLedger(t)
	if err := l.SetProposalStatus(context.Background(), "nope", models.ProposalDecline); err == nil {
		t.Fatal("SetProposalStatus() on missing id, want error")
	}
}
