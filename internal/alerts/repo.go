package alerts

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository stores alerts in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Raise(ctx context.Context, a Alert) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM alerts WHERE student_id = $1 AND band <> $2`, a.StudentID, a.Band); err != nil {
		return false, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var inserted bool
	err = tx.QueryRowContext(ctx, `
		INSERT INTO alerts (id, student_id, band, percentage, attended, total, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, band) DO UPDATE
		SET percentage = EXCLUDED.percentage, attended = EXCLUDED.attended,
		    total = EXCLUDED.total, message = EXCLUDED.message
		RETURNING (xmax = 0) AS inserted
	`, a.ID, a.StudentID, a.Band, a.Percentage, a.Attended, a.Total, a.Message, a.CreatedAt).Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, tx.Commit()
}

func (r *Repository) Clear(ctx context.Context, studentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE student_id = $1`, studentID)
	return err
}

func (r *Repository) List(ctx context.Context, unreadOnly bool) ([]Alert, error) {
	q := `SELECT id, student_id, band, percentage, attended, total, message, read, created_at FROM alerts`
	if unreadOnly {
		q += ` WHERE NOT read`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Band, &a.Percentage, &a.Attended, &a.Total, &a.Message, &a.Read, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET read = TRUE WHERE NOT read`)
	return err
}
