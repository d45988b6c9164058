package attendance

import (
	"fmt"
	"time"
)

// TimeOfDayLayout is the format of Mark.TimeIn.
const TimeOfDayLayout = "15:04"

// MarkInput is a mark as submitted by a client, before normalisation.
type MarkInput struct {
	StudentID string  `json:"studentId" binding:"required"`
	Status    string  `json:"status" binding:"omitempty,markstatus"`
	TimeIn    *string `json:"timeIn"`
}

// NormalizeMarks applies the marking rules: a missing status means absent,
// absent marks never carry a time, and present/late marks without a time
// get the time of now. A student may appear only once.
func NormalizeMarks(in []MarkInput, now time.Time) ([]Mark, error) {
	out := make([]Mark, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, raw := range in {
		if _, dup := seen[raw.StudentID]; dup {
			return nil, fmt.Errorf("mark %d (%s): %w", i, raw.StudentID, ErrDuplicateMark)
		}
		seen[raw.StudentID] = struct{}{}
		status, err := ParseStatus(raw.Status)
		if err != nil {
			return nil, fmt.Errorf("mark %d (%s): %w", i, raw.StudentID, err)
		}
		m := Mark{StudentID: raw.StudentID, Status: status}
		if status.Attended() {
			if raw.TimeIn != nil && *raw.TimeIn != "" {
				t := *raw.TimeIn
				m.TimeIn = &t
			} else {
				t := now.Format(TimeOfDayLayout)
				m.TimeIn = &t
			}
		}
		out = append(out, m)
	}
	return out, nil
}
