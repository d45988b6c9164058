package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository stores users and refresh tokens in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, username, password_hash, name, email, role, faculty_id, status, last_login`

func (r *Repository) UserByUsername(ctx context.Context, username string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
}

func (r *Repository) UserByID(ctx context.Context, id string) (User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repository) scanUser(row *sql.Row) (User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email, &u.Role, &u.FacultyID, &u.Status, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}

func (r *Repository) SaveUser(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, name, email, role, faculty_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username, password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role,
			faculty_id = EXCLUDED.faculty_id, status = EXCLUDED.status
	`, u.ID, u.Username, u.PasswordHash, u.Name, u.Email, u.Role, u.FacultyID, u.Status)
	return err
}

func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec1(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *Repository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec1(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
}

func (r *Repository) exec1(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SaveRefreshToken(ctx context.Context, token, userID string, expires time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`, token, userID, expires)
	return err
}

func (r *Repository) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND NOT revoked AND expires_at > $2
	`, token, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *Repository) RevokeRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	return err
}
