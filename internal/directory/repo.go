package directory

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository persists the entity tables in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Snapshot loads every table into an indexed snapshot.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	students, err := queryAll(ctx, r.db, `
		SELECT id, roll_no, name, email, phone, department_id, year, semester, batch, status
		FROM students ORDER BY created_at, id`,
		func(rows *sql.Rows, s *Student) error {
			return rows.Scan(&s.ID, &s.RollNo, &s.Name, &s.Email, &s.Phone, &s.DepartmentID, &s.Year, &s.Semester, &s.Batch, &s.Status)
		})
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	faculty, err := queryAll(ctx, r.db, `
		SELECT id, name, email, phone, department_id, designation, qualification, joining_date, status
		FROM faculty ORDER BY created_at, id`,
		func(rows *sql.Rows, f *Faculty) error {
			return rows.Scan(&f.ID, &f.Name, &f.Email, &f.Phone, &f.DepartmentID, &f.Designation, &f.Qualification, &f.JoiningDate, &f.Status)
		})
	if err != nil {
		return nil, fmt.Errorf("load faculty: %w", err)
	}
	departments, err := queryAll(ctx, r.db, `
		SELECT id, name, code, hod FROM departments ORDER BY created_at, id`,
		func(rows *sql.Rows, d *Department) error {
			return rows.Scan(&d.ID, &d.Name, &d.Code, &d.HOD)
		})
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	courses, err := queryAll(ctx, r.db, `
		SELECT id, code, name, department_id, semester, credits, faculty_id
		FROM courses ORDER BY created_at, id`,
		func(rows *sql.Rows, c *Course) error {
			return rows.Scan(&c.ID, &c.Code, &c.Name, &c.DepartmentID, &c.Semester, &c.Credits, &c.FacultyID)
		})
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	classes, err := queryAll(ctx, r.db, `
		SELECT id, name, department_id, year, semester, total_students
		FROM classes ORDER BY created_at, id`,
		func(rows *sql.Rows, c *Class) error {
			return rows.Scan(&c.ID, &c.Name, &c.DepartmentID, &c.Year, &c.Semester, &c.TotalStudents)
		})
	if err != nil {
		return nil, fmt.Errorf("load classes: %w", err)
	}
	return NewSnapshot(students, faculty, departments, courses, classes), nil
}

func (r *Repository) SaveStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, roll_no, name, email, phone, department_id, year, semester, batch, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			roll_no = EXCLUDED.roll_no, name = EXCLUDED.name, email = EXCLUDED.email,
			phone = EXCLUDED.phone, department_id = EXCLUDED.department_id, year = EXCLUDED.year,
			semester = EXCLUDED.semester, batch = EXCLUDED.batch, status = EXCLUDED.status,
			updated_at = NOW()
	`, s.ID, s.RollNo, s.Name, s.Email, s.Phone, s.DepartmentID, s.Year, s.Semester, s.Batch, s.Status)
	return err
}

func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "students", id)
}

func (r *Repository) SaveFaculty(ctx context.Context, f Faculty) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO faculty (id, name, email, phone, department_id, designation, qualification, joining_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			department_id = EXCLUDED.department_id, designation = EXCLUDED.designation,
			qualification = EXCLUDED.qualification, joining_date = EXCLUDED.joining_date,
			status = EXCLUDED.status, updated_at = NOW()
	`, f.ID, f.Name, f.Email, f.Phone, f.DepartmentID, f.Designation, f.Qualification, f.JoiningDate, f.Status)
	return err
}

func (r *Repository) DeleteFaculty(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "faculty", id)
}

func (r *Repository) SaveDepartment(ctx context.Context, d Department) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, code, hod)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, code = EXCLUDED.code, hod = EXCLUDED.hod, updated_at = NOW()
	`, d.ID, d.Name, d.Code, d.HOD)
	return err
}

func (r *Repository) DeleteDepartment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "departments", id)
}

func (r *Repository) SaveCourse(ctx context.Context, c Course) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, code, name, department_id, semester, credits, faculty_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, name = EXCLUDED.name, department_id = EXCLUDED.department_id,
			semester = EXCLUDED.semester, credits = EXCLUDED.credits, faculty_id = EXCLUDED.faculty_id,
			updated_at = NOW()
	`, c.ID, c.Code, c.Name, c.DepartmentID, c.Semester, c.Credits, c.FacultyID)
	return err
}

func (r *Repository) SaveClass(ctx context.Context, c Class) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classes (id, name, department_id, year, semester, total_students)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, department_id = EXCLUDED.department_id, year = EXCLUDED.year,
			semester = EXCLUDED.semester, total_students = EXCLUDED.total_students, updated_at = NOW()
	`, c.ID, c.Name, c.DepartmentID, c.Year, c.Semester, c.TotalStudents)
	return err
}

// deleteByID only ever receives table names from this file.
func (r *Repository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows, *T) error) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
