// Package analytics orchestrates one full engine pass per request: read the
// set log, normalize, compute metrics, evaluate baselines. It owns the read
// cache and the retry policy around the backing store.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/claude/liftstate/internal/baseline"
	"github.com/claude/liftstate/internal/logcache"
	"github.com/claude/liftstate/internal/metrics"
	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/normalize"
	"github.com/claude/liftstate/internal/parse"
	"github.com/claude/liftstate/internal/session"
	"github.com/claude/liftstate/internal/storage"
	"github.com/google/uuid"
)

// LogTimestampLayout is how logged sets stamp their date token.
const LogTimestampLayout = "2006.01.02, 15:04"

const retryAttempts = 3

// Store is the set-log backing store the service reads and writes.
type Store interface {
	ListSetRows(ctx context.Context, limit int) ([]models.RawSetRow, error)
	AppendSetRow(ctx context.Context, r models.RawSetRow) (int64, error)
	UpdateSetRow(ctx context.Context, r models.RawSetRow) error
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	CreateExercise(ctx context.Context, e models.Exercise) error
	UpdateExercise(ctx context.Context, e models.Exercise) error
	ListBodyWeight(ctx context.Context) ([]models.BodyWeightEntry, error)
	LookupBodyWeight(ctx context.Context, day time.Time) (float64, bool, error)
	AppendBodyWeight(ctx context.Context, e models.BodyWeightEntry) error
}

// TrainingState is the full analytics response: the indicator report plus the
// baseline layer.
type TrainingState struct {
	metrics.Report
	Baselines []models.Baseline `json:"baselines"`
	Proposals []models.Proposal `json:"proposals"`

	// DataUnavailable marks a fail-closed response: the store could not be
	// read and no cached snapshot existed, so the report holds defaults.
	DataUnavailable bool `json:"dataUnavailable,omitempty"`
}

// Service wires the engine packages to the store, cache and ledger.
type Service struct {
	store    Store
	cache    *logcache.Cache
	wf       *baseline.Workflow
	engine   *metrics.Engine
	th       models.Thresholds
	rowLimit int
	log      *slog.Logger

	now func() time.Time
}

// New creates the service. rowLimit bounds how much of the log one analytics
// pass reads; 0 uses the 1000-row default.
func New(store Store, ledger baseline.Ledger, cache *logcache.Cache, th models.Thresholds, rowLimit int, log *slog.Logger) *Service {
	if rowLimit <= 0 {
		rowLimit = 1000
	}
	return &Service{
		store:    store,
		cache:    cache,
		wf:       baseline.NewWorkflow(ledger, baseline.NewEstimator(th), th, log),
		engine:   metrics.NewEngine(th),
		th:       th,
		rowLimit: rowLimit,
		log:      log,
		now:      time.Now,
	}
}

// TrainingState runs one full analytics pass. Storage trouble never surfaces
// as an error: after retries the response degrades to cached data or, failing
// that, the documented empty state.
func (s *Service) TrainingState(ctx context.Context, periodDays int, anchors []string) (TrainingState, error) {
	sets, exercises, err := s.normalizedLog(ctx)
	if err != nil {
		s.log.Error("analytics pass degraded to empty state", "error", err)
		return TrainingState{
			Report:          s.engine.Compute(nil, periodDays, anchors, s.now()),
			Baselines:       []models.Baseline{},
			Proposals:       []models.Proposal{},
			DataUnavailable: true,
		}, nil
	}

	state := TrainingState{
		Report:    s.engine.Compute(s.analyticsEligible(sets, exercises), periodDays, anchors, s.now()),
		Baselines: []models.Baseline{},
		Proposals: []models.Proposal{},
	}

	baselines, proposals, err := s.wf.Evaluate(ctx, sets, exercises)
	if err != nil {
		// The indicator report is still good; only the baseline layer is
		// missing. Degrade rather than fail the whole request.
		s.log.Error("baseline evaluation failed", "error", err)
		return state, nil
	}
	state.Baselines = baselines
	state.Proposals = proposals
	return state, nil
}

// ResolveProposal applies an athlete's decision to a pending proposal.
func (s *Service) ResolveProposal(ctx context.Context, id string, action models.ProposalStatus) (models.Proposal, error) {
	p, err := s.wf.Resolve(ctx, id, action)
	if err != nil {
		return models.Proposal{}, err
	}
	return p, nil
}

// LogSetRequest is one set to append to the log.
type LogSetRequest struct {
	ExerciseID      string   `json:"exerciseId"`
	WeightKg        float64  `json:"weightKg"`
	Reps            int      `json:"reps"`
	RestSeconds     float64  `json:"restSeconds,omitempty"`
	SupersetGroupID string   `json:"supersetGroupId,omitempty"`
	Note            string   `json:"note,omitempty"`
	EffortRating    *float64 `json:"effortRating,omitempty"`
}

// LogSet appends a set with a server timestamp and returns the row ref. The
// read cache is invalidated before the write is acknowledged.
func (s *Service) LogSet(ctx context.Context, req LogSetRequest) (int64, error) {
	if req.ExerciseID == "" {
		return 0, fmt.Errorf("log set: %w", ErrMissingExercise)
	}
	if req.Reps <= 0 {
		return 0, fmt.Errorf("log set: %w", ErrInvalidReps)
	}

	exercises, err := s.exerciseIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("log set: %w", err)
	}
	ex, ok := exercises[req.ExerciseID]
	if !ok {
		return 0, fmt.Errorf("log set %s: %w", req.ExerciseID, ErrMissingExercise)
	}

	now := s.now()
	bw := s.bodyWeightOn(ctx, now)
	row := models.RawSetRow{
		DateToken:       now.Format(LogTimestampLayout),
		ExerciseID:      ex.ID,
		ExerciseName:    ex.Name,
		InputWeight:     formatKg(req.WeightKg),
		TotalWeight:     formatKg(normalize.TotalLoad(ex, req.WeightKg, bw)),
		Reps:            strconv.Itoa(req.Reps),
		SupersetGroupID: req.SupersetGroupID,
		Note:            req.Note,
		Order:           strconv.Itoa(s.nextOrder(ctx, now)),
	}
	if req.RestSeconds > 0 {
		row.RestSeconds = formatKg(req.RestSeconds)
	}
	if req.EffortRating != nil {
		row.EffortRating = formatKg(*req.EffortRating)
	}

	var ref int64
	err = s.retry(ctx, func() error {
		var err error
		ref, err = s.store.AppendSetRow(ctx, row)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("appending set: %w", err)
	}
	s.cache.Invalidate()
	return ref, nil
}

// SetCorrection carries the fields a correction may change. Nil means keep.
type SetCorrection struct {
	WeightKg    *float64 `json:"weightKg,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	RestSeconds *float64 `json:"restSeconds,omitempty"`
	Note        *string  `json:"note,omitempty"`
}

// CorrectSet overwrites fields of a previously logged row. The cache is
// invalidated before the write is acknowledged.
func (s *Service) CorrectSet(ctx context.Context, ref int64, c SetCorrection) error {
	rows, err := s.rawRows(ctx)
	if err != nil {
		return fmt.Errorf("correct set %d: %w", ref, err)
	}
	var row *models.RawSetRow
	for i := range rows {
		if rows[i].Ref == ref {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return fmt.Errorf("correct set %d: %w", ref, storage.ErrNotFound)
	}

	if c.WeightKg != nil {
		row.InputWeight = formatKg(*c.WeightKg)
		exercises, err := s.exerciseIndex(ctx)
		if err != nil {
			return fmt.Errorf("correct set %d: %w", ref, err)
		}
		if ex, ok := exercises[row.ExerciseID]; ok {
			day := s.now()
			if d, ok := parse.Day(row.DateToken); ok {
				day = d
			}
			row.TotalWeight = formatKg(normalize.TotalLoad(ex, *c.WeightKg, s.bodyWeightOn(ctx, day)))
		} else {
			row.TotalWeight = row.InputWeight
		}
	}
	if c.Reps != nil {
		row.Reps = strconv.Itoa(*c.Reps)
	}
	if c.RestSeconds != nil {
		row.RestSeconds = formatKg(*c.RestSeconds)
	}
	if c.Note != nil {
		row.Note = *c.Note
	}

	err = s.retry(ctx, func() error { return s.store.UpdateSetRow(ctx, *row) })
	if err != nil {
		return fmt.Errorf("correct set %d: %w", ref, err)
	}
	s.cache.Invalidate()
	return nil
}

// GlobalHistory returns the day-by-day session view, newest first.
func (s *Service) GlobalHistory(ctx context.Context, limit int) ([]session.Session, error) {
	sets, exercises, err := s.normalizedLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("global history: %w", err)
	}
	sessions := session.Aggregate(sets, exercises)
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// ExerciseHistory returns sessions containing the given exercise, newest
// first, with the other exercises of each day stripped out.
func (s *Service) ExerciseHistory(ctx context.Context, exerciseID string, limit int) ([]session.Session, error) {
	sets, exercises, err := s.normalizedLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("exercise history: %w", err)
	}
	filtered := make([]models.Set, 0, len(sets))
	for _, set := range sets {
		if set.ExerciseID == exerciseID {
			filtered = append(filtered, set)
		}
	}
	sessions := session.Aggregate(filtered, exercises)
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// Exercises lists the reference table.
func (s *Service) Exercises(ctx context.Context) ([]models.Exercise, error) {
	var out []models.Exercise
	err := s.retry(ctx, func() error {
		var err error
		out, err = s.store.ListExercises(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing exercises: %w", err)
	}
	return out, nil
}

// CreateExercise adds a movement to the reference table.
func (s *Service) CreateExercise(ctx context.Context, e models.Exercise) (models.Exercise, error) {
	if e.Name == "" {
		return models.Exercise{}, fmt.Errorf("create exercise: %w", ErrMissingName)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.WeightMultiplier == 0 {
		e.WeightMultiplier = 1
	}
	err := s.retry(ctx, func() error { return s.store.CreateExercise(ctx, e) })
	if err != nil {
		return models.Exercise{}, fmt.Errorf("creating exercise: %w", err)
	}
	s.cache.Invalidate()
	return e, nil
}

// UpdateExercise overwrites a movement's reference data.
func (s *Service) UpdateExercise(ctx context.Context, e models.Exercise) error {
	if e.ID == "" {
		return fmt.Errorf("update exercise: %w", storage.ErrNotFound)
	}
	err := s.retry(ctx, func() error { return s.store.UpdateExercise(ctx, e) })
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	s.cache.Invalidate()
	return nil
}

// RecordBodyWeight appends a body-weight measurement for today.
func (s *Service) RecordBodyWeight(ctx context.Context, weightKg float64) error {
	if weightKg <= 0 {
		return fmt.Errorf("record body weight: %w", ErrInvalidWeight)
	}
	now := s.now()
	entry := models.BodyWeightEntry{
		Day:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		WeightKg: weightKg,
	}
	err := s.retry(ctx, func() error { return s.store.AppendBodyWeight(ctx, entry) })
	if err != nil {
		return fmt.Errorf("recording body weight: %w", err)
	}
	return nil
}

// normalizedLog reads the log and reference data (through the cache) and
// normalizes it into the Set stream plus the exercise index.
func (s *Service) normalizedLog(ctx context.Context) ([]models.Set, map[string]models.Exercise, error) {
	rows, err := s.rawRows(ctx)
	if err != nil {
		return nil, nil, err
	}
	exercises, err := s.exerciseIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	lookup, err := s.bodyWeightLookup(ctx)
	if err != nil {
		// Body weight only affects assisted/bodyweight normalization; the
		// default weight keeps the pass going.
		s.log.Warn("body weight log unavailable, using default", "error", err)
		lookup = nil
	}

	n := normalize.New(exercises, lookup, s.th, s.log)
	sets, skipped := n.Normalize(rows)
	if len(skipped) > 0 {
		s.log.Debug("rows skipped during normalization", "count", len(skipped))
	}
	return sets, exercises, nil
}

// analyticsEligible drops sets whose exercise is unknown: they stay visible
// in history but carry no comparable load.
func (s *Service) analyticsEligible(sets []models.Set, exercises map[string]models.Exercise) []models.Set {
	out := make([]models.Set, 0, len(sets))
	for _, set := range sets {
		if _, ok := exercises[set.ExerciseID]; ok {
			out = append(out, set)
		}
	}
	return out
}

func (s *Service) rawRows(ctx context.Context) ([]models.RawSetRow, error) {
	if rows, ok := s.cache.Rows(); ok {
		return rows, nil
	}
	var rows []models.RawSetRow
	err := s.retry(ctx, func() error {
		var err error
		rows, err = s.store.ListSetRows(ctx, s.rowLimit)
		return err
	})
	if err != nil {
		if stale, ok := s.cache.StaleRows(); ok {
			s.log.Warn("set log read failed, serving last-known snapshot", "error", err)
			return stale, nil
		}
		return nil, fmt.Errorf("reading set log: %w", err)
	}
	if err := s.cache.SetRows(rows); err != nil {
		s.log.Warn("caching set log failed", "error", err)
	}
	return rows, nil
}

func (s *Service) exerciseIndex(ctx context.Context) (map[string]models.Exercise, error) {
	list, ok := s.cache.Exercises()
	if !ok {
		err := s.retry(ctx, func() error {
			var err error
			list, err = s.store.ListExercises(ctx)
			return err
		})
		if err != nil {
			stale, ok := s.cache.StaleExercises()
			if !ok {
				return nil, fmt.Errorf("reading exercises: %w", err)
			}
			s.log.Warn("exercise read failed, serving last-known snapshot", "error", err)
			list = stale
		} else if err := s.cache.SetExercises(list); err != nil {
			s.log.Warn("caching exercises failed", "error", err)
		}
	}
	index := make(map[string]models.Exercise, len(list))
	for _, e := range list {
		index[e.ID] = e
	}
	return index, nil
}

// bodyWeightLookup loads the body-weight log once and answers nearest-prior
// queries from memory.
func (s *Service) bodyWeightLookup(ctx context.Context) (normalize.BodyWeightLookup, error) {
	var entries []models.BodyWeightEntry
	err := s.retry(ctx, func() error {
		var err error
		entries, err = s.store.ListBodyWeight(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Day.Before(entries[j].Day) })
	return func(day time.Time) (float64, bool) {
		// Latest entry on or before day.
		i := sort.Search(len(entries), func(i int) bool { return entries[i].Day.After(day) })
		if i == 0 {
			return 0, false
		}
		return entries[i-1].WeightKg, true
	}, nil
}

// bodyWeightOn answers a single-day query straight from the store. The bulk
// normalization path uses bodyWeightLookup instead of one query per row.
func (s *Service) bodyWeightOn(ctx context.Context, day time.Time) float64 {
	var (
		bw    float64
		found bool
	)
	err := s.retry(ctx, func() error {
		var err error
		bw, found, err = s.store.LookupBodyWeight(ctx, day)
		return err
	})
	if err == nil && found {
		return bw
	}
	if err != nil {
		s.log.Warn("body weight lookup failed", "error", err)
	}
	return s.th.DefaultBodyWeightKg
}

// nextOrder counts today's rows so a logged set lands after them. A read
// failure falls back to 1; ordering within the day degrades, nothing else.
func (s *Service) nextOrder(ctx context.Context, now time.Time) int {
	rows, err := s.rawRows(ctx)
	if err != nil {
		return 1
	}
	prefix := now.Format("2006.01.02")
	n := 0
	for _, r := range rows {
		if len(r.DateToken) >= len(prefix) && r.DateToken[:len(prefix)] == prefix {
			n++
		}
	}
	return n + 1
}

func (s *Service) retry(ctx context.Context, op func() error) error {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retryAttempts-1), ctx)
	return backoff.Retry(op, bo)
}

func formatKg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
