// Package alerts records students whose attendance has fallen into the
// warning or low band. Delivering alerts to people is out of its scope.
package alerts

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"collegeattend/internal/aggregate"
)

// ErrNotFound is returned for unknown alert ids.
var ErrNotFound = errors.New("alert not found")

// Alert flags one student in one band. There is at most one alert per
// student at a time.
type Alert struct {
	ID         string         `json:"id"`
	StudentID  string         `json:"studentId"`
	Band       aggregate.Band `json:"band"`
	Percentage int            `json:"percentage"`
	Attended   int            `json:"attended"`
	Total      int            `json:"total"`
	Message    string         `json:"message"`
	Read       bool           `json:"read"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Store persists alerts.
type Store interface {
	// Raise records a for its student, dropping alerts the student holds in
	// other bands. An existing alert in the same band is refreshed in place
	// and Raise reports false.
	Raise(ctx context.Context, a Alert) (bool, error)
	// Clear drops every alert of the student.
	Clear(ctx context.Context, studentID string) error
	List(ctx context.Context, unreadOnly bool) ([]Alert, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Raise(_ context.Context, a Alert) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = slices.DeleteFunc(m.alerts, func(x Alert) bool {
		return x.StudentID == a.StudentID && x.Band != a.Band
	})
	for i, x := range m.alerts {
		if x.StudentID == a.StudentID {
			m.alerts[i].Percentage, m.alerts[i].Attended, m.alerts[i].Total = a.Percentage, a.Attended, a.Total
			m.alerts[i].Message = a.Message
			return false, nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.alerts = append(m.alerts, a)
	return true, nil
}

func (m *Memory) Clear(_ context.Context, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = slices.DeleteFunc(m.alerts, func(x Alert) bool { return x.StudentID == studentID })
	return nil
}

// List returns alerts newest first.
func (m *Memory) List(_ context.Context, unreadOnly bool) ([]Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, 0, len(m.alerts))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if unreadOnly && m.alerts[i].Read {
			continue
		}
		out = append(out, m.alerts[i])
	}
	return out, nil
}

func (m *Memory) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) MarkAllRead(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		m.alerts[i].Read = true
	}
	return nil
}
