package attendance

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

var (
	// ErrNotFound is returned when a session id is unknown to the ledger.
	ErrNotFound = errors.New("attendance session not found")
	// ErrInvalidStatus is returned for mark statuses outside present/absent/late.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrDuplicateMark is returned when one submission marks a student twice.
	ErrDuplicateMark = errors.New("student marked more than once")
)

// Status is a student's recorded state within a session.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

// ParseStatus maps raw input to a Status. An empty value means absent.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case "":
		return StatusAbsent, nil
	case StatusPresent, StatusAbsent, StatusLate:
		return Status(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Attended reports whether the status counts towards attendance.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusLate
}

// Mark is one student's entry inside a session. TimeIn is nil iff the
// student is absent.
type Mark struct {
	StudentID string  `json:"studentId"`
	Status    Status  `json:"status"`
	TimeIn    *string `json:"timeIn"`
}

// Key identifies a session: at most one session exists per (date, course).
type Key struct {
	Date     civil.Date
	CourseID string
}

func (k Key) String() string {
	return k.Date.String() + "/" + k.CourseID
}

// Session is one attendance-taking event for a course on a date.
type Session struct {
	ID        string     `json:"id"`
	Date      civil.Date `json:"date"`
	CourseID  string     `json:"courseId"`
	ClassID   string     `json:"classId"`
	FacultyID string     `json:"facultyId"`
	Marks     []Mark     `json:"records"`
}

// Key returns the upsert identity of the session.
func (s Session) Key() Key {
	return Key{Date: s.Date, CourseID: s.CourseID}
}

// MarkFor returns the first mark recorded for the student.
func (s Session) MarkFor(studentID string) (Mark, bool) {
	for _, m := range s.Marks {
		if m.StudentID == studentID {
			return m, true
		}
	}
	return Mark{}, false
}

// Counts tallies marks by status.
func (s Session) Counts() (present, absent, late int) {
	for _, m := range s.Marks {
		switch m.Status {
		case StatusPresent:
			present++
		case StatusAbsent:
			absent++
		case StatusLate:
			late++
		}
	}
	return present, absent, late
}

func (s Session) clone() Session {
	out := s
	out.Marks = make([]Mark, len(s.Marks))
	for i, m := range s.Marks {
		if m.TimeIn != nil {
			t := *m.TimeIn
			m.TimeIn = &t
		}
		out.Marks[i] = m
	}
	return out
}

// Filter narrows the sessions considered by queries and aggregations. Zero
// fields do not constrain. The date range is inclusive on both ends.
type Filter struct {
	From      civil.Date
	To        civil.Date
	CourseID  string
	ClassID   string
	FacultyID string
}

// Match reports whether the session satisfies every set constraint.
func (f Filter) Match(s Session) bool {
	if f.CourseID != "" && s.CourseID != f.CourseID {
		return false
	}
	if f.ClassID != "" && s.ClassID != f.ClassID {
		return false
	}
	if f.FacultyID != "" && s.FacultyID != f.FacultyID {
		return false
	}
	if !isZeroDate(f.From) && s.Date.Before(f.From) {
		return false
	}
	if !isZeroDate(f.To) && s.Date.After(f.To) {
		return false
	}
	return true
}

// Apply returns the sessions matching the filter, preserving order.
func (f Filter) Apply(sessions []Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

func isZeroDate(d civil.Date) bool {
	return d == civil.Date{}
}
