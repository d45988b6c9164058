package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"

	"collegeattend/internal/metrics"
	"collegeattend/internal/queue"
)

// Publisher is the part of a queue the service needs.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// MarkRequest is a full attendance submission for one course on one date.
type MarkRequest struct {
	Date      civil.Date
	CourseID  string
	ClassID   string
	FacultyID string
	Marks     []MarkInput
}

// MarkedEvent is the body of a queue.TypeAttendanceMarked message.
type MarkedEvent struct {
	SessionID  string     `json:"sessionId"`
	Date       civil.Date `json:"date"`
	CourseID   string     `json:"courseId"`
	FacultyID  string     `json:"facultyId"`
	StudentIDs []string   `json:"studentIds"`
	Created    bool       `json:"created"`
}

// Service coordinates attendance marking on top of a Ledger.
type Service struct {
	ledger Ledger
	pub    Publisher
	locks  *keyLocker
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a service backed by a ledger. pub may be nil.
func NewService(ledger Ledger, pub Publisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		ledger: ledger,
		pub:    pub,
		locks:  newKeyLocker(),
		loc:    loc,
		now:    time.Now,
	}
}

// Ledger exposes the underlying ledger for read paths.
func (s *Service) Ledger() Ledger { return s.ledger }

// Today returns the current calendar date in the service's location.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

// Mark records attendance for (date, course), replacing any marks already
// stored for that pair. A zero date means today.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (Session, bool, error) {
	if req.CourseID == "" {
		return Session{}, false, errors.New("course id required")
	}
	now := s.now().In(s.loc)
	if isZeroDate(req.Date) {
		req.Date = civil.DateOf(now)
	}
	marks, err := NormalizeMarks(req.Marks, now)
	if err != nil {
		return Session{}, false, err
	}
	return s.write(ctx, Session{
		Date:      req.Date,
		CourseID:  req.CourseID,
		ClassID:   req.ClassID,
		FacultyID: req.FacultyID,
		Marks:     marks,
	})
}

// Replace overwrites the marks of an existing session.
func (s *Service) Replace(ctx context.Context, id string, in []MarkInput) (Session, error) {
	existing, err := s.ledger.Session(ctx, id)
	if err != nil {
		return Session{}, err
	}
	marks, err := NormalizeMarks(in, s.now().In(s.loc))
	if err != nil {
		return Session{}, err
	}
	existing.Marks = marks
	saved, _, err := s.write(ctx, existing)
	return saved, err
}

func (s *Service) write(ctx context.Context, sess Session) (Session, bool, error) {
	unlock := s.locks.Lock(sess.Key())
	previous := s.previousStudents(ctx, sess.Key())
	saved, created, err := s.ledger.Upsert(ctx, sess)
	unlock()
	if err != nil {
		return Session{}, false, err
	}

	result := "updated"
	if created {
		result = "created"
	}
	metrics.SessionsMarked.WithLabelValues(result).Inc()
	for _, m := range saved.Marks {
		metrics.MarksRecorded.WithLabelValues(string(m.Status)).Inc()
	}

	s.publish(ctx, saved, created, previous)
	return saved, created, nil
}

// previousStudents lists the students marked in the stored session for key.
// A failed lookup only narrows the event, so it is logged and ignored.
func (s *Service) previousStudents(ctx context.Context, key Key) []string {
	if s.pub == nil {
		return nil
	}
	stored, err := s.ledger.Sessions(ctx, Filter{From: key.Date, To: key.Date, CourseID: key.CourseID})
	if err != nil {
		slog.Warn("load previous marks failed", "key", key.String(), "error", err)
		return nil
	}
	var ids []string
	for _, prev := range stored {
		if prev.Key() != key {
			continue
		}
		for _, m := range prev.Marks {
			ids = append(ids, m.StudentID)
		}
	}
	return ids
}

// publish announces the write. StudentIDs covers the new marks and any
// student the write dropped from the session, so both get re-evaluated.
func (s *Service) publish(ctx context.Context, sess Session, created bool, previous []string) {
	if s.pub == nil {
		return
	}
	evt := MarkedEvent{
		SessionID: sess.ID,
		Date:      sess.Date,
		CourseID:  sess.CourseID,
		FacultyID: sess.FacultyID,
		Created:   created,
	}
	seen := make(map[string]struct{}, len(sess.Marks))
	for _, m := range sess.Marks {
		seen[m.StudentID] = struct{}{}
		evt.StudentIDs = append(evt.StudentIDs, m.StudentID)
	}
	for _, id := range previous {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		evt.StudentIDs = append(evt.StudentIDs, id)
	}
	msg, err := queue.NewMessage(queue.TypeAttendanceMarked, evt)
	if err == nil {
		err = s.pub.Publish(ctx, msg)
	}
	if err != nil {
		slog.Warn("publish attendance event failed", "session_id", sess.ID, "error", err)
	}
}
