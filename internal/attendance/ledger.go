package attendance

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Ledger is the ordered collection of attendance sessions. Reads return
// copies so callers can aggregate over a stable snapshot.
type Ledger interface {
	Sessions(ctx context.Context, f Filter) ([]Session, error)
	StudentSessions(ctx context.Context, studentID string, f Filter) ([]Session, error)
	Session(ctx context.Context, id string) (Session, error)
	// Upsert stores s under s.Key(). An existing session keeps its id and has
	// its marks replaced wholesale; the bool reports whether s was created.
	Upsert(ctx context.Context, s Session) (Session, bool, error)
}

// MemoryLedger keeps sessions in insertion order with a key index and a
// per-student index, both maintained on every upsert.
type MemoryLedger struct {
	mu        sync.RWMutex
	sessions  []Session
	byKey     map[Key]int
	byID      map[string]int
	byStudent map[string][]int
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byKey:     make(map[Key]int),
		byID:      make(map[string]int),
		byStudent: make(map[string][]int),
	}
}

// Sessions returns all sessions matching f in ledger order.
func (l *MemoryLedger) Sessions(_ context.Context, f Filter) ([]Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		if f.Match(s) {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

// StudentSessions returns the sessions holding a mark for the student.
func (l *MemoryLedger) StudentSessions(_ context.Context, studentID string, f Filter) ([]Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idxs := l.byStudent[studentID]
	out := make([]Session, 0, len(idxs))
	for _, i := range idxs {
		if s := l.sessions[i]; f.Match(s) {
			out = append(out, s.clone())
		}
	}
	return out, nil
}

// Session returns a single session by id.
func (l *MemoryLedger) Session(_ context.Context, id string) (Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return l.sessions[i].clone(), nil
}

// Upsert inserts or replaces the session for s.Key().
func (l *MemoryLedger) Upsert(_ context.Context, s Session) (Session, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s = s.clone()
	key := s.Key()
	if i, ok := l.byKey[key]; ok {
		old := l.sessions[i]
		s.ID = old.ID
		l.unindexStudents(i, old)
		l.sessions[i] = s
		l.indexStudents(i, s)
		return s.clone(), false, nil
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	i := len(l.sessions)
	l.sessions = append(l.sessions, s)
	l.byKey[key] = i
	l.byID[s.ID] = i
	l.indexStudents(i, s)
	return s.clone(), true, nil
}

// Len returns the number of sessions held.
func (l *MemoryLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

func (l *MemoryLedger) indexStudents(i int, s Session) {
	for _, m := range s.Marks {
		idxs := l.byStudent[m.StudentID]
		pos, found := slices.BinarySearch(idxs, i)
		if found {
			continue
		}
		l.byStudent[m.StudentID] = slices.Insert(idxs, pos, i)
	}
}

func (l *MemoryLedger) unindexStudents(i int, s Session) {
	for _, m := range s.Marks {
		idxs := l.byStudent[m.StudentID]
		pos, found := slices.BinarySearch(idxs, i)
		if !found {
			continue
		}
		idxs = slices.Delete(idxs, pos, pos+1)
		if len(idxs) == 0 {
			delete(l.byStudent, m.StudentID)
			continue
		}
		l.byStudent[m.StudentID] = idxs
	}
}
