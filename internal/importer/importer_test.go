package importer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/storage"
)

type fakeStore struct {
	rows      []models.RawSetRow
	exercises map[string]models.Exercise
}

func newFakeStore() *fakeStore {
	return &fakeStore{exercises: map[string]models.Exercise{}}
}

func (f *fakeStore) AppendSetRow(_ context.Context, r models.RawSetRow) (int64, error) {
	f.rows = append(f.rows, r)
	return int64(len(f.rows)), nil
}

func (f *fakeStore) GetExercise(_ context.Context, id string) (models.Exercise, error) {
	ex, ok := f.exercises[id]
	if !ok {
		return models.Exercise{}, storage.ErrNotFound
	}
	return ex, nil
}

func (f *fakeStore) CreateExercise(_ context.Context, e models.Exercise) error {
	f.exercises[e.ID] = e
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestImportSets loads a semicolon-delimited export. Rows with comma decimals
// and a date serial must come through untouched (tokens are stored raw), and
// rows with a garbage date or missing exercise are skipped, not coerced.
func TestImportSets(t *testing.T) {
	csv := "date;exercise_id;exercise_name;input_weight;total_weight;reps;rest_seconds;superset_group_id;note;order;effort\n" +
		"2024.03.18, 17:55;ex-squat;Squat;102,5;122,5;8;120;;heavy;1;8\n" +
		"45370;ex-squat;Squat;80;100;5;;;;2;\n" +
		"not-a-date;ex-squat;Squat;80;100;5;;;;3;\n" +
		"2024.03.19, 18:02;;Squat;80;100;5;;;;1;\n"
	path := writeFile(t, "sets.csv", csv)

	store := newFakeStore()
	stats, err := New(store, testLogger(), false).ImportSets(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportSets: %v", err)
	}

	if stats.SetRowsInserted != 2 || stats.SetRowsSkipped != 2 {
		t.Errorf("stats = %+v, want 2 inserted 2 skipped", stats)
	}
	if len(store.rows) != 2 {
		t.Fatalf("stored %d rows, want 2", len(store.rows))
	}
	if store.rows[0].InputWeight != "102,5" {
		t.Errorf("comma decimal rewritten: %q", store.rows[0].InputWeight)
	}
	if store.rows[1].DateToken != "45370" {
		t.Errorf("date serial rewritten: %q", store.rows[1].DateToken)
	}
}

// TestImportSetsCommaDelimited exercises delimiter sniffing on the header.
func TestImportSetsCommaDelimited(t *testing.T) {
	csv := "date,exercise_id,exercise_name,input_weight,total_weight,reps,rest_seconds,superset_group_id,note,order,effort\n" +
		"2024.03.18,ex-curl,Curl,12.5,12.5,10,60,,,1,\n"
	path := writeFile(t, "sets.csv", csv)

	store := newFakeStore()
	stats, err := New(store, testLogger(), false).ImportSets(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportSets: %v", err)
	}
	if stats.SetRowsInserted != 1 {
		t.Errorf("inserted = %d, want 1", stats.SetRowsInserted)
	}
}

// TestImportSetsBadHeader rejects a reordered export instead of guessing.
func TestImportSetsBadHeader(t *testing.T) {
	csv := "exercise_id;date;exercise_name;input_weight;total_weight;reps;rest_seconds;superset_group_id;note;order;effort\n"
	path := writeFile(t, "sets.csv", csv)

	if _, err := New(newFakeStore(), testLogger(), false).ImportSets(context.Background(), path); err == nil {
		t.Fatal("expected header error")
	}
}

// TestImportSetsDryRun counts without writing.
func TestImportSetsDryRun(t *testing.T) {
	csv := "date;exercise_id;exercise_name;input_weight;total_weight;reps;rest_seconds;superset_group_id;note;order;effort\n" +
		"2024.03.18;ex-squat;Squat;80;100;5;;;;1;\n"
	path := writeFile(t, "sets.csv", csv)

	store := newFakeStore()
	stats, err := New(store, testLogger(), true).ImportSets(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportSets: %v", err)
	}
	if stats.SetRowsInserted != 1 {
		t.Errorf("inserted = %d, want 1", stats.SetRowsInserted)
	}
	if len(store.rows) != 0 {
		t.Errorf("dry run wrote %d rows", len(store.rows))
	}
}

// TestImportExercises inserts new exercises and skips existing IDs, so the
// import can be re-run after a partial failure.
func TestImportExercises(t *testing.T) {
	csv := "id;name;muscle_group;equipment_type;exercise_type;weight_type;base_weight_kg;weight_multiplier;note\n" +
		"ex-squat;Squat;legs;barbell;compound;Barbell;20;1;\n" +
		"ex-curl;Curl;arms;dumbbell;isolation;Dumbbell;0;2;per hand\n" +
		"ex-existing;Bench;chest;barbell;compound;Barbell;20;1;\n" +
		";No ID;legs;barbell;compound;Barbell;20;1;\n"
	path := writeFile(t, "exercises.csv", csv)

	store := newFakeStore()
	store.exercises["ex-existing"] = models.Exercise{ID: "ex-existing"}

	stats, err := New(store, testLogger(), false).ImportExercises(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportExercises: %v", err)
	}

	if stats.ExercisesInserted != 2 || stats.ExercisesSkipped != 2 {
		t.Errorf("stats = %+v, want 2 inserted 2 skipped", stats)
	}
	curl := store.exercises["ex-curl"]
	if curl.WeightMultiplier != 2 {
		t.Errorf("multiplier = %d, want 2", curl.WeightMultiplier)
	}
	if curl.Note != "per hand" {
		t.Errorf("note = %q", curl.Note)
	}
	squat := store.exercises["ex-squat"]
	if squat.BaseWeightKg != 20 {
		t.Errorf("base weight = %v, want 20", squat.BaseWeightKg)
	}
}
