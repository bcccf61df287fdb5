package baseline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/claude/liftstate/internal/models"
	"github.com/google/uuid"
)

// Workflow action errors, reported to the caller as rejected actions with an
// explicit reason — never silently ignored.
var (
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrProposalNotPending = errors.New("proposal is not pending")
	ErrProposalExpired    = errors.New("proposal has expired")
	ErrUnknownAction      = errors.New("unknown proposal action")
)

// Ledger is the persistence contract for baselines and proposals. It is a
// separate store from the raw set log.
type Ledger interface {
	Baselines(ctx context.Context) (map[string]models.Baseline, error)
	UpsertBaseline(ctx context.Context, b models.Baseline) error
	Proposals(ctx context.Context) ([]models.Proposal, error)
	GetProposal(ctx context.Context, id string) (models.Proposal, error)
	InsertProposal(ctx context.Context, p models.Proposal) error
	SetProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error
}

// Workflow owns the baseline lifecycle: establishing baselines from data,
// proposing changes on divergence, and applying explicit decisions.
// Confirmation is the only path that mutates a stored baseline.
type Workflow struct {
	ledger Ledger
	est    *Estimator
	th     models.Thresholds
	log    *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewWorkflow(ledger Ledger, est *Estimator, th models.Thresholds, log *slog.Logger) *Workflow {
	return &Workflow{
		ledger: ledger,
		est:    est,
		th:     th,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Evaluate runs one pass over all exercises: expires stale pending proposals
// (expiry policy: auto-decline on the next evaluation, nothing fires on a
// timer), establishes baselines once enough qualifying history exists, and
// opens a proposal when the candidate diverges from the stored value by at
// least one equipment step. Returns the stored baselines and the proposals
// still pending after the pass.
func (w *Workflow) Evaluate(ctx context.Context, sets []models.Set, exercises map[string]models.Exercise) ([]models.Baseline, []models.Proposal, error) {
	now := w.now()

	stored, err := w.ledger.Baselines(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading baseline ledger: %w", err)
	}
	proposals, err := w.ledger.Proposals(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading proposal ledger: %w", err)
	}

	// Expire first, so a stale pending proposal never blocks a fresh one.
	latestByExercise := make(map[string]models.Proposal)
	pendingByExercise := make(map[string]models.Proposal)
	for _, p := range proposals {
		if p.Status == models.ProposalPending && p.Expired(now) {
			if err := w.ledger.SetProposalStatus(ctx, p.ID, models.ProposalDecline); err != nil {
				return nil, nil, fmt.Errorf("expiring proposal %s: %w", p.ID, err)
			}
			w.log.Info("proposal expired", "proposal", p.ID, "exercise", p.ExerciseID)
			p.Status = models.ProposalDecline
			if b, ok := stored[p.ExerciseID]; ok && b.Status == models.BaselineHolding {
				b.Status = models.BaselineLocked
				if err := w.ledger.UpsertBaseline(ctx, b); err != nil {
					return nil, nil, fmt.Errorf("locking baseline %s: %w", p.ExerciseID, err)
				}
				stored[p.ExerciseID] = b
			}
		}
		if latest, ok := latestByExercise[p.ExerciseID]; !ok || p.CreatedAt.After(latest.CreatedAt) {
			latestByExercise[p.ExerciseID] = p
		}
		if p.Status == models.ProposalPending {
			pendingByExercise[p.ExerciseID] = p
		}
	}

	for id, ex := range exercises {
		candidate, ok := w.est.Estimate(sets, ex)
		if !ok {
			continue
		}

		current, exists := stored[id]
		if !exists {
			b := models.Baseline{
				ExerciseID:  id,
				WeightKg:    candidate,
				Status:      models.BaselineReady,
				LastUpdated: now,
			}
			if err := w.ledger.UpsertBaseline(ctx, b); err != nil {
				return nil, nil, fmt.Errorf("establishing baseline %s: %w", id, err)
			}
			stored[id] = b
			w.log.Info("baseline established", "exercise", id, "weight_kg", candidate)
			continue
		}

		step := ex.WeightStepKg()
		if math.Abs(candidate-current.WeightKg) < step {
			continue
		}
		if _, pending := pendingByExercise[id]; pending {
			continue
		}
		// A declined candidate stays discarded; only a different value
		// reopens the question.
		if latest, ok := latestByExercise[id]; ok &&
			latest.Status == models.ProposalDecline && latest.NewBaselineKg == candidate {
			continue
		}

		p := models.Proposal{
			ID:            w.newID(),
			ExerciseID:    id,
			OldBaselineKg: current.WeightKg,
			NewBaselineKg: candidate,
			StepKg:        step,
			Evidence: fmt.Sprintf("median of recent qualifying sessions suggests %.1f kg (stored %.1f kg)",
				candidate, current.WeightKg),
			CreatedAt: now,
			ExpiresAt: now.AddDate(0, 0, w.th.ProposalTTLDays),
			Status:    models.ProposalPending,
		}
		if err := w.ledger.InsertProposal(ctx, p); err != nil {
			return nil, nil, fmt.Errorf("creating proposal for %s: %w", id, err)
		}
		pendingByExercise[id] = p

		current.Status = models.BaselineHolding
		if err := w.ledger.UpsertBaseline(ctx, current); err != nil {
			return nil, nil, fmt.Errorf("holding baseline %s: %w", id, err)
		}
		stored[id] = current
		w.log.Info("baseline change proposed", "exercise", id,
			"old_kg", p.OldBaselineKg, "new_kg", p.NewBaselineKg)
	}

	baselines := make([]models.Baseline, 0, len(stored))
	for _, b := range stored {
		baselines = append(baselines, b)
	}
	sort.Slice(baselines, func(i, j int) bool { return baselines[i].ExerciseID < baselines[j].ExerciseID })

	pending := make([]models.Proposal, 0, len(pendingByExercise))
	for _, p := range pendingByExercise {
		pending = append(pending, p)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ExerciseID < pending[j].ExerciseID })

	return baselines, pending, nil
}

// Resolve applies one of the three explicit decisions to a pending proposal.
// CONFIRM is the only action that changes the stored baseline.
func (w *Workflow) Resolve(ctx context.Context, proposalID string, action models.ProposalStatus) (models.Proposal, error) {
	p, err := w.ledger.GetProposal(ctx, proposalID)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("%w: %s", ErrProposalNotFound, proposalID)
	}
	if p.Status != models.ProposalPending {
		return p, fmt.Errorf("%w: %s is %s", ErrProposalNotPending, proposalID, p.Status)
	}
	now := w.now()
	if p.Expired(now) {
		// Late decision on a stale proposal: decline it and say so.
		if err := w.ledger.SetProposalStatus(ctx, p.ID, models.ProposalDecline); err != nil {
			return p, fmt.Errorf("declining expired proposal: %w", err)
		}
		p.Status = models.ProposalDecline
		return p, ErrProposalExpired
	}

	var baselineStatus models.BaselineStatus
	switch action {
	case models.ProposalConfirm:
		baselineStatus = models.BaselineUpdated
	case models.ProposalSnooze:
		baselineStatus = models.BaselineReady
	case models.ProposalDecline:
		baselineStatus = models.BaselineLocked
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if err := w.ledger.SetProposalStatus(ctx, p.ID, action); err != nil {
		return p, fmt.Errorf("recording decision: %w", err)
	}
	p.Status = action

	baselines, err := w.ledger.Baselines(ctx)
	if err != nil {
		return p, fmt.Errorf("reading baseline ledger: %w", err)
	}
	b, ok := baselines[p.ExerciseID]
	if !ok {
		b = models.Baseline{ExerciseID: p.ExerciseID, WeightKg: p.OldBaselineKg}
	}
	b.Status = baselineStatus
	if action == models.ProposalConfirm {
		b.WeightKg = p.NewBaselineKg
		b.LastUpdated = now
	}
	if err := w.ledger.UpsertBaseline(ctx, b); err != nil {
		return p, fmt.Errorf("updating baseline: %w", err)
	}

	w.log.Info("proposal resolved", "proposal", p.ID, "exercise", p.ExerciseID, "action", action)
	return p, nil
}
