// Package report shapes aggregate results into the report views served by
// the API.
package report

import (
	"sort"

	"cloud.google.com/go/civil"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
)

// DateRow summarises one session.
type DateRow struct {
	SessionID  string     `json:"id"`
	Date       civil.Date `json:"date"`
	CourseID   string     `json:"courseId"`
	Course     *string    `json:"course"`
	CourseCode *string    `json:"courseCode"`
	ClassID    string     `json:"classId"`
	Class      *string    `json:"class"`
	FacultyID  string     `json:"facultyId"`
	Faculty    *string    `json:"faculty"`
	Present    int        `json:"present"`
	Absent     int        `json:"absent"`
	Late       int        `json:"late"`
	Total      int        `json:"total"`
	Percentage int        `json:"percentage"`
}

// DateWise returns one row per matching session, newest date first. Rows
// sharing a date keep ledger order.
func DateWise(sessions []attendance.Session, f attendance.Filter, lookup directory.Lookup) []DateRow {
	rows := make([]DateRow, 0, len(sessions))
	for _, s := range sessions {
		if !f.Match(s) {
			continue
		}
		rows = append(rows, dateRow(s, lookup))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.After(rows[j].Date)
	})
	return rows
}

func dateRow(s attendance.Session, lookup directory.Lookup) DateRow {
	present, absent, late := s.Counts()
	row := DateRow{
		SessionID:  s.ID,
		Date:       s.Date,
		CourseID:   s.CourseID,
		ClassID:    s.ClassID,
		FacultyID:  s.FacultyID,
		Present:    present,
		Absent:     absent,
		Late:       late,
		Total:      len(s.Marks),
		Percentage: aggregate.Percentage(present+late, len(s.Marks)),
	}
	if c, ok := lookup.Course(s.CourseID); ok {
		row.Course, row.CourseCode = ptr(c.Name), ptr(c.Code)
	}
	if c, ok := lookup.Class(s.ClassID); ok {
		row.Class = ptr(c.Name)
	}
	if fac, ok := lookup.Faculty(s.FacultyID); ok {
		row.Faculty = ptr(fac.Name)
	}
	return row
}

// StudentRow is one student's attendance across the matching sessions.
type StudentRow struct {
	StudentID  string  `json:"studentId"`
	RollNo     *string `json:"rollNo"`
	Name       *string `json:"name"`
	Attended   int     `json:"attended"`
	Missed     int     `json:"missed"`
	Late       int     `json:"late"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
}

// StudentWise groups marks by student, lowest percentage first. Ties keep
// the order in which students were first encountered.
func StudentWise(sessions []attendance.Session, f attendance.Filter, lookup directory.Lookup) []StudentRow {
	tallies := aggregate.Tallies(f.Apply(sessions))
	rows := make([]StudentRow, 0, len(tallies))
	for _, t := range tallies {
		row := StudentRow{
			StudentID:  t.StudentID,
			Attended:   t.Attended(),
			Missed:     t.Absent,
			Late:       t.Late,
			Total:      t.Total(),
			Percentage: t.Percentage(),
		}
		if st, ok := lookup.Student(t.StudentID); ok {
			row.RollNo, row.Name = ptr(st.RollNo), ptr(st.Name)
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Percentage < rows[j].Percentage
	})
	return rows
}

// Summary is the headline view over a set of sessions.
type Summary struct {
	TotalClasses          int             `json:"totalClasses"`
	AvgAttendance         int             `json:"avgAttendance"`
	LowAttendanceStudents int             `json:"lowAttendanceStudents"`
	WarningStudents       int             `json:"warningStudents"`
	PerfectAttendance     int             `json:"perfectAttendance"`
	Breakdown             aggregate.Tally `json:"breakdown"`
}

// BuildSummary aggregates the sessions taken by facultyID, or all sessions
// when facultyID is empty. Students are classified on their rounded
// percentage; perfect attendance means no absences at all.
func BuildSummary(sessions []attendance.Session, facultyID string, th aggregate.Thresholds) Summary {
	scoped := attendance.Filter{FacultyID: facultyID}.Apply(sessions)
	overall := aggregate.Overall(scoped)
	sum := Summary{
		TotalClasses:  len(scoped),
		AvgAttendance: overall.Percentage(),
		Breakdown:     overall,
	}
	for _, t := range aggregate.Tallies(scoped) {
		if t.Total() == 0 {
			continue
		}
		switch aggregate.Classify(t.Percentage(), th) {
		case aggregate.BandLow:
			sum.LowAttendanceStudents++
		case aggregate.BandWarning:
			sum.WarningStudents++
		}
		if t.Attended() == t.Total() {
			sum.PerfectAttendance++
		}
	}
	return sum
}

// DepartmentRow is one department's pooled attendance.
type DepartmentRow struct {
	DepartmentID   string `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	Code           string `json:"code"`
	StudentCount   int    `json:"studentCount"`
	Attended       int    `json:"attended"`
	Total          int    `json:"total"`
	Attendance     int    `json:"attendance"`
}

// DepartmentWise returns a row for every department in directory order.
func DepartmentWise(sessions []attendance.Session, f attendance.Filter, lookup directory.Lookup) []DepartmentRow {
	scoped := f.Apply(sessions)
	students := lookup.Students()
	depts := lookup.Departments()
	rows := make([]DepartmentRow, 0, len(depts))
	for _, d := range depts {
		agg := aggregate.Department(d.ID, scoped, students)
		rows = append(rows, DepartmentRow{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
			Code:           d.Code,
			StudentCount:   agg.StudentCount,
			Attended:       agg.Attended,
			Total:          agg.Total,
			Attendance:     agg.Attendance,
		})
	}
	return rows
}

// HistoryEntry is one of a student's marks with its session context.
type HistoryEntry struct {
	SessionID string            `json:"sessionId"`
	Date      civil.Date        `json:"date"`
	CourseID  string            `json:"courseId"`
	Course    *string           `json:"course"`
	Status    attendance.Status `json:"status"`
	TimeIn    *string           `json:"timeIn"`
}

// StudentHistory lists the student's marks in the matching sessions, newest
// first.
func StudentHistory(studentID string, sessions []attendance.Session, f attendance.Filter, lookup directory.Lookup) []HistoryEntry {
	var out []HistoryEntry
	for _, s := range sessions {
		if !f.Match(s) {
			continue
		}
		m, ok := s.MarkFor(studentID)
		if !ok {
			continue
		}
		e := HistoryEntry{
			SessionID: s.ID,
			Date:      s.Date,
			CourseID:  s.CourseID,
			Status:    m.Status,
			TimeIn:    m.TimeIn,
		}
		if c, ok := lookup.Course(s.CourseID); ok {
			e.Course = ptr(c.Name)
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func ptr(s string) *string { return &s }
