package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Repository persists the ledger in Postgres. Session order is insertion
// order (the seq column); (session_date, course_id) is unique.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionSelect = `
	SELECT s.id, s.session_date, s.course_id, s.class_id, s.faculty_id,
	       m.student_id, m.status, m.time_in
	FROM attendance_sessions s
	LEFT JOIN attendance_marks m ON m.session_id = s.id`

// Sessions returns all sessions matching f in ledger order.
func (r *Repository) Sessions(ctx context.Context, f Filter) ([]Session, error) {
	var w where
	w.filter(f)
	return r.query(ctx, w)
}

// StudentSessions returns the sessions holding a mark for the student.
func (r *Repository) StudentSessions(ctx context.Context, studentID string, f Filter) ([]Session, error) {
	var w where
	w.filter(f)
	w.add("s.id IN (SELECT session_id FROM attendance_marks WHERE student_id = %s)", studentID)
	return r.query(ctx, w)
}

// Session returns a single session by id.
func (r *Repository) Session(ctx context.Context, id string) (Session, error) {
	var w where
	w.add("s.id = %s", id)
	res, err := r.query(ctx, w)
	if err != nil {
		return Session{}, err
	}
	if len(res) == 0 {
		return Session{}, ErrNotFound
	}
	return res[0], nil
}

// Upsert writes the session and replaces its marks in one transaction. The
// unique (session_date, course_id) index makes concurrent writers to the
// same key queue up on the row.
func (r *Repository) Upsert(ctx context.Context, s Session) (Session, bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var inserted bool
	row := tx.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (id, session_date, course_id, class_id, faculty_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_date, course_id) DO UPDATE SET
			class_id = EXCLUDED.class_id,
			faculty_id = EXCLUDED.faculty_id,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`, s.ID, s.Date.In(time.UTC), s.CourseID, s.ClassID, s.FacultyID)
	if err := row.Scan(&s.ID, &inserted); err != nil {
		return Session{}, false, fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_marks WHERE session_id = $1`, s.ID); err != nil {
		return Session{}, false, fmt.Errorf("clear marks: %w", err)
	}
	for i, m := range s.Marks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_marks (session_id, position, student_id, status, time_in)
			VALUES ($1, $2, $3, $4, $5)
		`, s.ID, i, m.StudentID, string(m.Status), nullString(m.TimeIn)); err != nil {
			return Session{}, false, fmt.Errorf("insert mark %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Session{}, false, err
	}
	return s, inserted, nil
}

func (r *Repository) query(ctx context.Context, w where) ([]Session, error) {
	query := sessionSelect
	if len(w.clauses) > 0 {
		query += " WHERE " + strings.Join(w.clauses, " AND ")
	}
	query += " ORDER BY s.seq, m.position"

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Session
	for rows.Next() {
		var (
			s               Session
			day             time.Time
			student, status sql.NullString
			timeIn          sql.NullString
		)
		if err := rows.Scan(&s.ID, &day, &s.CourseID, &s.ClassID, &s.FacultyID, &student, &status, &timeIn); err != nil {
			return nil, err
		}
		if n := len(res); n == 0 || res[n-1].ID != s.ID {
			s.Date = civil.DateOf(day)
			s.Marks = []Mark{}
			res = append(res, s)
		}
		if !student.Valid {
			continue
		}
		m := Mark{StudentID: student.String, Status: Status(status.String)}
		if timeIn.Valid {
			t := timeIn.String
			m.TimeIn = &t
		}
		last := &res[len(res)-1]
		last.Marks = append(last.Marks, m)
	}
	return res, rows.Err()
}

// where accumulates numbered-placeholder clauses.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(expr string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(expr, "$"+strconv.Itoa(len(w.args))))
}

func (w *where) filter(f Filter) {
	if f.CourseID != "" {
		w.add("s.course_id = %s", f.CourseID)
	}
	if f.ClassID != "" {
		w.add("s.class_id = %s", f.ClassID)
	}
	if f.FacultyID != "" {
		w.add("s.faculty_id = %s", f.FacultyID)
	}
	if !isZeroDate(f.From) {
		w.add("s.session_date >= %s", f.From.In(time.UTC))
	}
	if !isZeroDate(f.To) {
		w.add("s.session_date <= %s", f.To.In(time.UTC))
	}
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
