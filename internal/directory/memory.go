package directory

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps entity tables in process memory, in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	students    table[Student]
	faculty     table[Faculty]
	departments table[Department]
	courses     table[Course]
	classes     table[Class]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students:    newTable[Student](),
		faculty:     newTable[Faculty](),
		departments: newTable[Department](),
		courses:     newTable[Course](),
		classes:     newTable[Class](),
	}
}

func (m *MemoryStore) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return NewSnapshot(m.students.list(), m.faculty.list(), m.departments.list(), m.courses.list(), m.classes.list()), nil
}

func (m *MemoryStore) SaveStudent(_ context.Context, s Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students.put(s.ID, s)
	return nil
}

func (m *MemoryStore) DeleteStudent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.students.del(id)
}

func (m *MemoryStore) SaveFaculty(_ context.Context, f Faculty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faculty.put(f.ID, f)
	return nil
}

func (m *MemoryStore) DeleteFaculty(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faculty.del(id)
}

func (m *MemoryStore) SaveDepartment(_ context.Context, d Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments.put(d.ID, d)
	return nil
}

func (m *MemoryStore) DeleteDepartment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.departments.del(id)
}

func (m *MemoryStore) SaveCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses.put(c.ID, c)
	return nil
}

func (m *MemoryStore) SaveClass(_ context.Context, c Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes.put(c.ID, c)
	return nil
}

type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) del(id string) error {
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(v string) bool { return v == id })
	return nil
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}
