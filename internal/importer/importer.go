// Package importer loads a CSV export of the legacy training sheet into the
// store. The column layout is fixed and versioned; an export whose header
// does not match is rejected instead of guessed at.
package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/liftstate/internal/models"
	"github.com/claude/liftstate/internal/parse"
	"github.com/claude/liftstate/internal/storage"
)

// setHeader is the expected column layout of a set-log export.
var setHeader = []string{
	"date", "exercise_id", "exercise_name", "input_weight", "total_weight",
	"reps", "rest_seconds", "superset_group_id", "note", "order", "effort",
}

// exerciseHeader is the expected column layout of an exercise-sheet export.
var exerciseHeader = []string{
	"id", "name", "muscle_group", "equipment_type", "exercise_type",
	"weight_type", "base_weight_kg", "weight_multiplier", "note",
}

// Store is what the importer needs from the database.
type Store interface {
	AppendSetRow(ctx context.Context, r models.RawSetRow) (int64, error)
	GetExercise(ctx context.Context, id string) (models.Exercise, error)
	CreateExercise(ctx context.Context, e models.Exercise) error
}

// Stats tracks import progress.
type Stats struct {
	SetRowsInserted   int
	SetRowsSkipped    int
	ExercisesInserted int
	ExercisesSkipped  int
}

// Importer reads legacy sheet CSV exports and inserts rows into the store.
type Importer struct {
	store  Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// ImportExercises loads the exercise reference sheet. Rows whose ID already
// exists in the store are skipped, so re-running an import is safe.
func (imp *Importer) ImportExercises(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := newSheetReader(f, exerciseHeader)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
		}

		ex := exerciseFromRecord(rec)
		if ex.ID == "" || ex.Name == "" {
			imp.stats.ExercisesSkipped++
			continue
		}

		if _, err := imp.store.GetExercise(ctx, ex.ID); err == nil {
			imp.stats.ExercisesSkipped++
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return &imp.stats, fmt.Errorf("checking exercise %s: %w", ex.ID, err)
		}

		if !imp.dryRun {
			if err := imp.store.CreateExercise(ctx, ex); err != nil {
				return &imp.stats, fmt.Errorf("creating exercise %s: %w", ex.ID, err)
			}
		}
		imp.stats.ExercisesInserted++
	}

	return &imp.stats, nil
}

// ImportSets loads the set log sheet. Rows are appended in file order so the
// store's ref sequence preserves the sheet's append order. Rows with an
// unparsable date or a missing exercise reference are skipped and logged,
// never silently coerced.
func (imp *Importer) ImportSets(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := newSheetReader(f, setHeader)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
	}

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &imp.stats, fmt.Errorf("reading %s: %w", path, err)
		}
		line++

		row := setRowFromRecord(rec)
		if _, ok := parse.Day(row.DateToken); !ok || row.ExerciseID == "" {
			imp.log.Info("skipping row", "line", line, "date", row.DateToken, "exercise_id", row.ExerciseID)
			imp.stats.SetRowsSkipped++
			continue
		}

		if !imp.dryRun {
			if _, err := imp.store.AppendSetRow(ctx, row); err != nil {
				return &imp.stats, fmt.Errorf("appending row at line %d: %w", line, err)
			}
		}
		imp.stats.SetRowsInserted++
	}

	return &imp.stats, nil
}

// newSheetReader wraps f in a csv.Reader after sniffing the delimiter from
// the header line and verifying the header matches the expected layout.
func newSheetReader(f *os.File, want []string) (*csv.Reader, error) {
	br := bufio.NewReader(f)
	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	sep := ','
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		sep = ';'
	}

	header := strings.Split(strings.TrimRight(headerLine, "\r\n"), string(sep))
	if err := checkHeader(header, want); err != nil {
		return nil, err
	}

	r := csv.NewReader(br)
	r.Comma = sep
	r.FieldsPerRecord = len(want)
	r.LazyQuotes = true
	return r, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("header has %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return fmt.Errorf("header column %d is %q, want %q", i+1, strings.TrimSpace(got[i]), want[i])
		}
	}
	return nil
}

func setRowFromRecord(rec []string) models.RawSetRow {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return models.RawSetRow{
		DateToken:       rec[0],
		ExerciseID:      rec[1],
		ExerciseName:    rec[2],
		InputWeight:     rec[3],
		TotalWeight:     rec[4],
		Reps:            rec[5],
		RestSeconds:     rec[6],
		SupersetGroupID: rec[7],
		Note:            rec[8],
		Order:           rec[9],
		EffortRating:    rec[10],
	}
}

func exerciseFromRecord(rec []string) models.Exercise {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	base, _ := parse.Decimal(rec[6])
	mult, ok := parse.Int(rec[7])
	if !ok || mult <= 0 {
		mult = 1
	}
	return models.Exercise{
		ID:               rec[0],
		Name:             rec[1],
		MuscleGroup:      rec[2],
		EquipmentType:    models.EquipmentType(rec[3]),
		ExerciseType:     models.ExerciseType(rec[4]),
		WeightType:       models.WeightType(rec[5]),
		BaseWeightKg:     base,
		WeightMultiplier: mult,
		Note:             rec[8],
	}
}
