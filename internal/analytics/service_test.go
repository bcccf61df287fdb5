package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/liftstate/internal/logcache"
	"github.com/claude/liftstate/internal/metrics"
	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/storage"
)

var testNow = time.Date(2024, 3, 20, 18, 30, 0, 0, time.UTC)

// fakeStore is an in-memory Store that counts reads and can be forced to
// fail.
type fakeStore struct {
	rows       []models.RawSetRow
	exercises  []models.Exercise
	bodyWeight []models.BodyWeightEntry

	listCalls int
	failReads bool
	nextRef   int64
}

func (f *fakeStore) ListSetRows(ctx context.Context, limit int) ([]models.RawSetRow, error) {
	f.listCalls++
	if f.failReads {
		return nil, errors.New("store down")
	}
	if limit < len(f.rows) {
		return f.rows[len(f.rows)-limit:], nil
	}
	return f.rows, nil
}

func (f *fakeStore) AppendSetRow(ctx context.Context, r models.RawSetRow) (int64, error) {
	if f.failReads {
		return 0, errors.New("store down")
	}
	f.nextRef++
	r.Ref = f.nextRef
	f.rows = append(f.rows, r)
	return r.Ref, nil
}

func (f *fakeStore) UpdateSetRow(ctx context.Context, r models.RawSetRow) error {
	for i := range f.rows {
		if f.rows[i].Ref == r.Ref {
			f.rows[i] = r
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	if f.failReads {
		return nil, errors.New("store down")
	}
	return f.exercises, nil
}

func (f *fakeStore) CreateExercise(ctx context.Context, e models.Exercise) error {
	f.exercises = append(f.exercises, e)
	return nil
}

func (f *fakeStore) UpdateExercise(ctx context.Context, e models.Exercise) error {
	for i := range f.exercises {
		if f.exercises[i].ID == e.ID {
			f.exercises[i] = e
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeStore) ListBodyWeight(ctx context.Context) ([]models.BodyWeightEntry, error) {
	if f.failReads {
		return nil, errors.New("store down")
	}
	return f.bodyWeight, nil
}

func (f *fakeStore) LookupBodyWeight(ctx context.Context, day time.Time) (float64, bool, error) {
	if f.failReads {
		return 0, false, errors.New("store down")
	}
	var (
		best  models.BodyWeightEntry
		found bool
	)
	for _, e := range f.bodyWeight {
		if !e.Day.After(day) && (!found || e.Day.After(best.Day)) {
			best, found = e, true
		}
	}
	return best.WeightKg, found, nil
}

func (f *fakeStore) AppendBodyWeight(ctx context.Context, e models.BodyWeightEntry) error {
	f.bodyWeight = append(f.bodyWeight, e)
	return nil
}

// fakeLedger satisfies baseline.Ledger in memory.
type fakeLedger struct {
	baselines map[string]models.Baseline
	proposals map[string]models.Proposal
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		baselines: make(map[string]models.Baseline),
		proposals: make(map[string]models.Proposal),
	}
}

func (l *fakeLedger) Baselines(ctx context.Context) (map[string]models.Baseline, error) {
	out := make(map[string]models.Baseline, len(l.baselines))
	for k, v := range l.baselines {
		out[k] = v
	}
	return out, nil
}

func (l *fakeLedger) UpsertBaseline(ctx context.Context, b models.Baseline) error {
	l.baselines[b.ExerciseID] = b
	return nil
}

func (l *fakeLedger) Proposals(ctx context.Context) ([]models.Proposal, error) {
	out := make([]models.Proposal, 0, len(l.proposals))
	for _, p := range l.proposals {
		out = append(out, p)
	}
	return out, nil
}

func (l *fakeLedger) GetProposal(ctx context.Context, id string) (models.Proposal, error) {
	p, ok := l.proposals[id]
	if !ok {
		return models.Proposal{}, errors.New("no such proposal")
	}
	return p, nil
}

func (l *fakeLedger) InsertProposal(ctx context.Context, p models.Proposal) error {
	l.proposals[p.ID] = p
	return nil
}

func (l *fakeLedger) SetProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	p, ok := l.proposals[id]
	if !ok {
		return errors.New("no such proposal")
	}
	p.Status = status
	l.proposals[id] = p
	return nil
}

func testExercises() []models.Exercise {
	return []models.Exercise{
		{
			ID: "ex-squat", Name: "Squat", MuscleGroup: "Legs",
			EquipmentType: models.EquipmentBarbell, ExerciseType: models.ExerciseCompound,
			WeightType: models.WeightBarbell, BaseWeightKg: 20, WeightMultiplier: 1,
		},
		{
			ID: "ex-curl", Name: "Curl", MuscleGroup: "Arms",
			EquipmentType: models.EquipmentDumbbell, ExerciseType: models.ExerciseIsolation,
			WeightType: models.WeightDumbbell, WeightMultiplier: 1,
		},
	}
}

// squatRows builds one qualifying squat set per day for n days ending at
// testNow.
func squatRows(n int) []models.RawSetRow {
	rows := make([]models.RawSetRow, 0, n)
	for i := 0; i < n; i++ {
		day := testNow.AddDate(0, 0, -(n - 1 - i))
		rows = append(rows, models.RawSetRow{
			Ref:          int64(i + 1),
			DateToken:    day.Format("2006.01.02") + ", 10:00",
			ExerciseID:   "ex-squat",
			ExerciseName: "Squat",
			InputWeight:  "80",
			TotalWeight:  "100",
			Reps:         "8",
			Order:        "1",
		})
	}
	return rows
}

func newTestService(store *fakeStore, ledger *fakeLedger) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, ledger, logcache.New(time.Minute), models.DefaultThresholds(), 1000, log)
	svc.now = func() time.Time { return testNow }
	return svc
}

// A healthy pass fills the report and establishes baselines from the log.
func TestTrainingState(t *testing.T) {
	store := &fakeStore{rows: squatRows(10), exercises: testExercises(), nextRef: 10}
	svc := newTestService(store, newFakeLedger())

	state, err := svc.TrainingState(context.Background(), metrics.DefaultPeriodDays, nil)
	if err != nil {
		t.Fatalf("TrainingState() error = %v", err)
	}
	if state.DataUnavailable {
		t.Fatal("DataUnavailable = true on healthy store")
	}
	if state.PeriodDays != 14 {
		t.Errorf("PeriodDays = %d, want 14", state.PeriodDays)
	}
	// 10 straight training days: frequency tops out green.
	if state.Frequency.Status != metrics.FrequencyGreen {
		t.Errorf("Frequency.Status = %q, want %q", state.Frequency.Status, metrics.FrequencyGreen)
	}
	// 8 reps at a constant 100 kg qualifies every day: a baseline appears.
	if len(state.Baselines) != 1 {
		t.Fatalf("len(Baselines) = %d, want 1", len(state.Baselines))
	}
	if state.Baselines[0].WeightKg != 100 {
		t.Errorf("Baselines[0].WeightKg = %v, want 100", state.Baselines[0].WeightKg)
	}
}

// Storage failure degrades to the documented empty state instead of an error.
func TestTrainingStateFailsClosed(t *testing.T) {
	store := &fakeStore{failReads: true}
	svc := newTestService(store, newFakeLedger())

	state, err := svc.TrainingState(context.Background(), metrics.DefaultPeriodDays, nil)
	if err != nil {
		t.Fatalf("TrainingState() error = %v, want fail-closed nil", err)
	}
	if !state.DataUnavailable {
		t.Error("DataUnavailable = false, want true")
	}
	if state.StrengthTrend.Value != 0 || state.Mode != metrics.ModeStable {
		t.Errorf("degraded report = trend %v mode %q, want neutral defaults",
			state.StrengthTrend.Value, state.Mode)
	}
	if len(state.Baselines) != 0 || len(state.Proposals) != 0 {
		t.Error("degraded state carries baselines or proposals")
	}
	// Fail-closed still means retried: 3 attempts against the store.
	if store.listCalls != 3 {
		t.Errorf("listCalls = %d, want 3", store.listCalls)
	}
}

// When the fresh cache window has lapsed and the store is down, the engine
// serves the last-known snapshot instead of the empty degraded state.
func TestTrainingStateServesStaleSnapshot(t *testing.T) {
	store := &fakeStore{rows: squatRows(10), exercises: testExercises(), nextRef: 10}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	if _, err := svc.TrainingState(ctx, 14, nil); err != nil {
		t.Fatalf("healthy TrainingState() error = %v", err)
	}

	svc.cache.Invalidate()
	store.failReads = true

	state, err := svc.TrainingState(ctx, 14, nil)
	if err != nil {
		t.Fatalf("TrainingState() during outage error = %v", err)
	}
	if state.DataUnavailable {
		t.Fatal("DataUnavailable = true, want stale snapshot served")
	}
	if len(state.Baselines) != 1 || state.Baselines[0].WeightKg != 100 {
		t.Errorf("Baselines = %+v, want the pre-outage baseline at 100", state.Baselines)
	}
	if state.Frequency.Status != metrics.FrequencyGreen {
		t.Errorf("Frequency.Status = %q, want %q", state.Frequency.Status, metrics.FrequencyGreen)
	}
	// The store was still retried before falling back.
	if store.listCalls != 4 {
		t.Errorf("listCalls = %d, want 1 healthy + 3 outage attempts", store.listCalls)
	}
}

// A second pass within the TTL is served from the cache.
func TestTrainingStateUsesCache(t *testing.T) {
	store := &fakeStore{rows: squatRows(3), exercises: testExercises(), nextRef: 3}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	if _, err := svc.TrainingState(ctx, 14, nil); err != nil {
		t.Fatalf("first TrainingState() error = %v", err)
	}
	if _, err := svc.TrainingState(ctx, 14, nil); err != nil {
		t.Fatalf("second TrainingState() error = %v", err)
	}
	if store.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1 (second pass cached)", store.listCalls)
	}
}

// Logging a set stamps the server time, derives the total load and
// invalidates the cache so the next read sees the row.
func TestLogSet(t *testing.T) {
	store := &fakeStore{rows: squatRows(3), exercises: testExercises(), nextRef: 3}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	// Prime the cache.
	if _, err := svc.TrainingState(ctx, 14, nil); err != nil {
		t.Fatalf("TrainingState() error = %v", err)
	}

	ref, err := svc.LogSet(ctx, LogSetRequest{ExerciseID: "ex-squat", WeightKg: 85, Reps: 5})
	if err != nil {
		t.Fatalf("LogSet() error = %v", err)
	}
	if ref != 4 {
		t.Errorf("ref = %d, want 4", ref)
	}

	row := store.rows[len(store.rows)-1]
	if row.DateToken != "2024.03.20, 18:30" {
		t.Errorf("DateToken = %q, want %q", row.DateToken, "2024.03.20, 18:30")
	}
	if row.InputWeight != "85" || row.TotalWeight != "105" {
		t.Errorf("weights = %q/%q, want 85/105", row.InputWeight, row.TotalWeight)
	}
	// The logged set lands after today's existing row.
	if row.Order != "2" {
		t.Errorf("Order = %q, want %q", row.Order, "2")
	}

	// Cache was invalidated: the next pass reads the store again.
	before := store.listCalls
	if _, err := svc.TrainingState(ctx, 14, nil); err != nil {
		t.Fatalf("TrainingState() after LogSet error = %v", err)
	}
	if store.listCalls != before+1 {
		t.Error("cache not invalidated by LogSet")
	}
}

// Bodyweight-relative input resolves against the recorded body weight on the
// set's day, not the configured default.
func TestLogSetUsesRecordedBodyWeight(t *testing.T) {
	store := &fakeStore{
		exercises: append(testExercises(), models.Exercise{
			ID: "ex-dip", Name: "Dip", MuscleGroup: "Chest",
			EquipmentType: models.EquipmentMachine, ExerciseType: models.ExerciseCompound,
			WeightType: models.WeightBodyweight, WeightMultiplier: 1,
		}),
		bodyWeight: []models.BodyWeightEntry{
			{Day: testNow.AddDate(0, 0, -2), WeightKg: 82},
		},
	}
	svc := newTestService(store, newFakeLedger())

	if _, err := svc.LogSet(context.Background(), LogSetRequest{ExerciseID: "ex-dip", WeightKg: 10, Reps: 8}); err != nil {
		t.Fatalf("LogSet() error = %v", err)
	}

	row := store.rows[len(store.rows)-1]
	if row.TotalWeight != "92" {
		t.Errorf("TotalWeight = %q, want 92 (82 kg body weight + 10 kg added)", row.TotalWeight)
	}
}

func TestLogSetValidation(t *testing.T) {
	store := &fakeStore{exercises: testExercises()}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	if _, err := svc.LogSet(ctx, LogSetRequest{ExerciseID: "ex-squat", Reps: 0}); !errors.Is(err, ErrInvalidReps) {
		t.Errorf("LogSet(reps=0) error = %v, want ErrInvalidReps", err)
	}
	if _, err := svc.LogSet(ctx, LogSetRequest{ExerciseID: "nope", WeightKg: 50, Reps: 5}); !errors.Is(err, ErrMissingExercise) {
		t.Errorf("LogSet(unknown exercise) error = %v, want ErrMissingExercise", err)
	}
}

// Corrections merge into the stored row and recompute the total load.
func TestCorrectSet(t *testing.T) {
	store := &fakeStore{rows: squatRows(3), exercises: testExercises(), nextRef: 3}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	w := 90.0
	reps := 6
	if err := svc.CorrectSet(ctx, 2, SetCorrection{WeightKg: &w, Reps: &reps}); err != nil {
		t.Fatalf("CorrectSet() error = %v", err)
	}

	row := store.rows[1]
	if row.InputWeight != "90" || row.TotalWeight != "110" || row.Reps != "6" {
		t.Errorf("corrected row = %q/%q x %q, want 90/110 x 6",
			row.InputWeight, row.TotalWeight, row.Reps)
	}
	// Untouched fields survive the merge.
	wantDate := testNow.AddDate(0, 0, -1).Format("2006.01.02") + ", 10:00"
	if row.DateToken != wantDate {
		t.Errorf("DateToken = %q, want untouched %q", row.DateToken, wantDate)
	}

	if err := svc.CorrectSet(ctx, 99, SetCorrection{Reps: &reps}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("CorrectSet(missing ref) error = %v, want ErrNotFound", err)
	}
}

// Per-exercise history only contains the asked-for movement.
func TestExerciseHistory(t *testing.T) {
	rows := squatRows(2)
	rows = append(rows, models.RawSetRow{
		Ref:          10,
		DateToken:    testNow.Format("2006.01.02") + ", 11:00",
		ExerciseID:   "ex-curl",
		ExerciseName: "Curl",
		InputWeight:  "15",
		Reps:         "12",
		Order:        "2",
	})
	store := &fakeStore{rows: rows, exercises: testExercises(), nextRef: 10}
	svc := newTestService(store, newFakeLedger())

	sessions, err := svc.ExerciseHistory(context.Background(), "ex-curl", 50)
	if err != nil {
		t.Fatalf("ExerciseHistory() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}
	for _, b := range sessions[0].Blocks {
		for _, ex := range b.Exercises {
			if ex.ExerciseName != "Curl" {
				t.Errorf("history contains %q, want only Curl", ex.ExerciseName)
			}
		}
	}
}

func TestGlobalHistoryLimit(t *testing.T) {
	store := &fakeStore{rows: squatRows(5), exercises: testExercises(), nextRef: 5}
	svc := newTestService(store, newFakeLedger())

	sessions, err := svc.GlobalHistory(context.Background(), 2)
	if err != nil {
		t.Fatalf("GlobalHistory() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if !sessions[0].Date.After(sessions[1].Date) {
		t.Error("sessions not newest first")
	}
}

// Creating an exercise fills defaults and makes it available to logging.
func TestCreateExercise(t *testing.T) {
	store := &fakeStore{exercises: testExercises()}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	e, err := svc.CreateExercise(ctx, models.Exercise{
		Name: "Leg Press", WeightType: models.WeightPlateLoaded,
	})
	if err != nil {
		t.Fatalf("CreateExercise() error = %v", err)
	}
	if e.ID == "" {
		t.Error("CreateExercise() assigned no id")
	}
	if e.WeightMultiplier != 1 {
		t.Errorf("WeightMultiplier = %d, want default 1", e.WeightMultiplier)
	}

	if _, err := svc.CreateExercise(ctx, models.Exercise{}); !errors.Is(err, ErrMissingName) {
		t.Errorf("CreateExercise(no name) error = %v, want ErrMissingName", err)
	}

	if _, err := svc.LogSet(ctx, LogSetRequest{ExerciseID: e.ID, WeightKg: 100, Reps: 10}); err != nil {
		t.Errorf("LogSet() on created exercise error = %v", err)
	}
}

// Body weight feeds assisted-exercise normalization through the nearest
// prior entry.
func TestRecordBodyWeight(t *testing.T) {
	store := &fakeStore{exercises: testExercises()}
	svc := newTestService(store, newFakeLedger())
	ctx := context.Background()

	if err := svc.RecordBodyWeight(ctx, 82.5); err != nil {
		t.Fatalf("RecordBodyWeight() error = %v", err)
	}
	if len(store.bodyWeight) != 1 || store.bodyWeight[0].WeightKg != 82.5 {
		t.Fatalf("bodyWeight = %+v, want one 82.5 entry", store.bodyWeight)
	}
	if got := store.bodyWeight[0].Day; got != time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Day = %v, want 2024-03-20 midnight UTC", got)
	}

	if err := svc.RecordBodyWeight(ctx, 0); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("RecordBodyWeight(0) error = %v, want ErrInvalidWeight", err)
	}
}

func ExampleService_TrainingState() {
	store := &fakeStore{rows: squatRows(10), exercises: testExercises(), nextRef: 10}
	svc := newTestService(store, newFakeLedger())
	state, _ := svc.TrainingState(context.Background(), 14, nil)
	fmt.Println(state.Mode)
	// Output: Stable
}
