// Package ledger persists baselines and proposals in a local SQLite
// database, deliberately separate from the raw set log: the log is owned by
// the storage collaborator, the ledger by the analytics subsystem.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/liftstate/internal/models"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite ledger.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at dir/ledger.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir %s: %w", dir, err)
	}
	return openPath(filepath.Join(dir, "ledger.db"))
}

// OpenInMemory opens a throwaway in-memory ledger, for tests.
func OpenInMemory() (*DB, error) {
	return openPath(":memory:")
}

func openPath(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS baselines (
		exercise_id  TEXT PRIMARY KEY,
		weight_kg    REAL NOT NULL,
		status       TEXT NOT NULL,
		last_updated TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS proposals (
		id              TEXT PRIMARY KEY,
		exercise_id     TEXT NOT NULL,
		old_baseline_kg REAL NOT NULL,
		new_baseline_kg REAL NOT NULL,
		step_kg         REAL NOT NULL,
		evidence        TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMP NOT NULL,
		expires_at      TIMESTAMP NOT NULL,
		status          TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger tables: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the ledger database.
func (l *DB) Close() error {
	return l.db.Close()
}

// Baselines returns all stored baselines keyed by exercise id.
func (l *DB) Baselines(ctx context.Context) (map[string]models.Baseline, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT exercise_id, weight_kg, status, last_updated FROM baselines`)
	if err != nil {
		return nil, fmt.Errorf("querying baselines: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Baseline)
	for rows.Next() {
		var b models.Baseline
		var status string
		var updated time.Time
		if err := rows.Scan(&b.ExerciseID, &b.WeightKg, &status, &updated); err != nil {
			return nil, fmt.Errorf("scanning baseline: %w", err)
		}
		b.Status = models.BaselineStatus(status)
		b.LastUpdated = updated
		out[b.ExerciseID] = b
	}
	return out, rows.Err()
}

// UpsertBaseline writes a baseline, replacing any stored value for the
// exercise.
func (l *DB) UpsertBaseline(ctx context.Context, b models.Baseline) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO baselines (exercise_id, weight_kg, status, last_updated)
		 VALUES (?, ?, ?, ?)`,
		b.ExerciseID, b.WeightKg, string(b.Status), b.LastUpdated)
	if err != nil {
		return fmt.Errorf("upserting baseline %s: %w", b.ExerciseID, err)
	}
	return nil
}

// Proposals returns every proposal in the ledger, newest first.
func (l *DB) Proposals(ctx context.Context) ([]models.Proposal, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, exercise_id, old_baseline_kg, new_baseline_kg, step_kg,
		        evidence, created_at, expires_at, status
		 FROM proposals ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying proposals: %w", err)
	}
	defer rows.Close()

	var out []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProposal fetches one proposal by id.
func (l *DB) GetProposal(ctx context.Context, id string) (models.Proposal, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, exercise_id, old_baseline_kg, new_baseline_kg, step_kg,
		        evidence, created_at, expires_at, status
		 FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row.Scan)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("proposal %s: %w", id, err)
	}
	return p, nil
}

// InsertProposal stores a new proposal.
func (l *DB) InsertProposal(ctx context.Context, p models.Proposal) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO proposals (id, exercise_id, old_baseline_kg, new_baseline_kg,
		 step_kg, evidence, created_at, expires_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ExerciseID, p.OldBaselineKg, p.NewBaselineKg, p.StepKg,
		p.Evidence, p.CreatedAt, p.ExpiresAt, string(p.Status))
	if err != nil {
		return fmt.Errorf("inserting proposal %s: %w", p.ID, err)
	}
	return nil
}

// SetProposalStatus records a proposal's terminal state.
func (l *DB) SetProposalStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE proposals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating proposal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("proposal %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func scanProposal(scan func(...any) error) (models.Proposal, error) {
	var p models.Proposal
	var status string
	if err := scan(&p.ID, &p.ExerciseID, &p.OldBaselineKg, &p.NewBaselineKg,
		&p.StepKg, &p.Evidence, &p.CreatedAt, &p.ExpiresAt, &status); err != nil {
		return models.Proposal{}, err
	}
	p.Status = models.ProposalStatus(status)
	return p, nil
}
