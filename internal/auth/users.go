package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactive           = errors.New("account is inactive")
	ErrTokenRevoked       = errors.New("refresh token revoked or unknown")
)

// Role is what a user may do.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
)

// User is an account that can sign in.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	FacultyID    string     `json:"facultyId,omitempty"`
	Status       string     `json:"status"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// Active reports whether the user may sign in.
func (u User) Active() bool { return u.Status == "" || u.Status == "active" }

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserStore persists users and their refresh tokens.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	SaveUser(ctx context.Context, u User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error

	SaveRefreshToken(ctx context.Context, token, userID string, expires time.Time) error
	// ConsumeRefreshToken revokes token and reports whether it was live.
	ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (bool, error)
	RevokeRefreshTokens(ctx context.Context, userID string) error
}

// MemoryUsers is an in-process UserStore.
type MemoryUsers struct {
	mu     sync.RWMutex
	users  map[string]User
	tokens map[string]refreshToken
}

type refreshToken struct {
	userID  string
	expires time.Time
	revoked bool
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[string]User), tokens: make(map[string]refreshToken)}
}

func (m *MemoryUsers) UserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryUsers) UserByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryUsers) SaveUser(_ context.Context, u User) error {
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return nil
}

func (m *MemoryUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *MemoryUsers) TouchLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *MemoryUsers) SaveRefreshToken(_ context.Context, token, userID string, expires time.Time) error {
	m.mu.Lock()
	m.tokens[token] = refreshToken{userID: userID, expires: expires}
	m.mu.Unlock()
	return nil
}

func (m *MemoryUsers) ConsumeRefreshToken(_ context.Context, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.revoked || !now.Before(t.expires) {
		return false, nil
	}
	t.revoked = true
	m.tokens[token] = t
	return true, nil
}

func (m *MemoryUsers) RevokeRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.userID == userID {
			t.revoked = true
			m.tokens[k] = t
		}
	}
	return nil
}
