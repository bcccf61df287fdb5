package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftstate/internal/models"
	"github.com/jackc/pgx/v5"
)

// ListExercises returns the full exercise reference table, sorted by name.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group, equipment_type, exercise_type,
		 weight_type, base_weight_kg, weight_multiplier, note
		 FROM exercises ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise fetches one exercise by id.
func (db *DB) GetExercise(ctx context.Context, id string) (models.Exercise, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, muscle_group, equipment_type, exercise_type,
		 weight_type, base_weight_kg, weight_multiplier, note
		 FROM exercises WHERE id = $1`, id)
	e, err := scanExercise(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Exercise{}, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Exercise{}, fmt.Errorf("exercise %s: %w", id, err)
	}
	return e, nil
}

// CreateExercise inserts a new exercise.
func (db *DB) CreateExercise(ctx context.Context, e models.Exercise) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (id, name, muscle_group, equipment_type,
		 exercise_type, weight_type, base_weight_kg, weight_multiplier, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Name, e.MuscleGroup, string(e.EquipmentType), string(e.ExerciseType),
		string(e.WeightType), e.BaseWeightKg, e.WeightMultiplier, e.Note)
	if err != nil {
		return fmt.Errorf("creating exercise %s: %w", e.ID, err)
	}
	return nil
}

// UpdateExercise overwrites an existing exercise.
func (db *DB) UpdateExercise(ctx context.Context, e models.Exercise) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE exercises SET name = $2, muscle_group = $3, equipment_type = $4,
		 exercise_type = $5, weight_type = $6, base_weight_kg = $7,
		 weight_multiplier = $8, note = $9
		 WHERE id = $1`,
		e.ID, e.Name, e.MuscleGroup, string(e.EquipmentType), string(e.ExerciseType),
		string(e.WeightType), e.BaseWeightKg, e.WeightMultiplier, e.Note)
	if err != nil {
		return fmt.Errorf("updating exercise %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating exercise %s: %w", e.ID, ErrNotFound)
	}
	return nil
}

func scanExercise(scan func(...any) error) (models.Exercise, error) {
	var e models.Exercise
	var equipment, exType, weightType string
	if err := scan(&e.ID, &e.Name, &e.MuscleGroup, &equipment, &exType,
		&weightType, &e.BaseWeightKg, &e.WeightMultiplier, &e.Note); err != nil {
		return models.Exercise{}, err
	}
	e.EquipmentType = models.EquipmentType(equipment)
	e.ExerciseType = models.ExerciseType(exType)
	e.WeightType = models.WeightType(weightType)
	return e, nil
}
