package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/hawksec/hawk/internal/domain/progress"
	"github.com/hawksec/hawk/internal/pkg/errors"
)

// ProgressRepository stores one JSON document per alert, keyed by
// progress.Key. Every Put replaces the whole document.
type ProgressRepository struct {
	db     *sql.DB
	driver string
}

func NewProgressRepository(db *sql.DB, driver string) progress.Repository {
	return &ProgressRepository{db: db, driver: driver}
}

func (r *ProgressRepository) Get(ctx context.Context, alertID string) (*progress.SolutionProgress, error) {
	query := rebind(r.driver, `SELECT document FROM solution_progress WHERE progress_key = ?`)

	var doc string
	err := r.db.QueryRowContext(ctx, query, progress.Key(alertID)).Scan(&doc)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to load solution progress", err)
	}

	var p progress.SolutionProgress
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, errors.DatabaseError("Stored solution progress is malformed", err)
	}
	if p.CompletedSteps == nil {
		p.CompletedSteps = []int{}
	}
	return &p, nil
}

func (r *ProgressRepository) Put(ctx context.Context, p *progress.SolutionProgress) error {
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return errors.Internal("Failed to encode solution progress", err)
	}

	query := rebind(r.driver, `
		INSERT INTO solution_progress (progress_key, alert_id, document, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (progress_key) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if _, err := r.db.ExecContext(ctx, query, progress.Key(p.AlertID), p.AlertID, string(doc), p.LastUpdated); err != nil {
		return errors.DatabaseError("Failed to save solution progress", err)
	}
	return nil
}

func (r *ProgressRepository) Delete(ctx context.Context, alertID string) error {
	query := rebind(r.driver, `DELETE FROM solution_progress WHERE progress_key = ?`)
	if _, err := r.db.ExecContext(ctx, query, progress.Key(alertID)); err != nil {
		return errors.DatabaseError("Failed to delete solution progress", err)
	}
	return nil
}
