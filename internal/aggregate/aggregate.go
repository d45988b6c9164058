// Package aggregate turns attendance sessions into attendance rates.
//
// Every function here is pure: it reads the sessions it is given and never
// fails. Missing data degrades to zero counts, and a zero total always
// yields a zero percentage.
package aggregate

import (
	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
)

// Percentage returns attended/total as a whole percentage rounded half up,
// or 0 when total is 0.
func Percentage(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return (attended*200 + total) / (2 * total)
}

// Tally counts marks by status.
type Tally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

// Add counts one mark.
func (t *Tally) Add(s attendance.Status) {
	switch s {
	case attendance.StatusPresent:
		t.Present++
	case attendance.StatusAbsent:
		t.Absent++
	case attendance.StatusLate:
		t.Late++
	}
}

// Attended counts present and late marks.
func (t Tally) Attended() int { return t.Present + t.Late }

// Total counts every mark.
func (t Tally) Total() int { return t.Present + t.Absent + t.Late }

// Percentage is the rounded attendance rate of the tally.
func (t Tally) Percentage() int { return Percentage(t.Attended(), t.Total()) }

// Overall tallies every mark of every session.
func Overall(sessions []attendance.Session) Tally {
	var t Tally
	for _, s := range sessions {
		for _, m := range s.Marks {
			t.Add(m.Status)
		}
	}
	return t
}

// StudentAttendance is one student's attended and total classes.
type StudentAttendance struct {
	StudentID  string `json:"studentId"`
	Attended   int    `json:"attended"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// Student computes one student's attendance over the sessions matching f.
// Each session contributes the student's first mark, if any; a session
// without a mark for the student is not counted as an absence.
func Student(studentID string, sessions []attendance.Session, f attendance.Filter) StudentAttendance {
	res := StudentAttendance{StudentID: studentID}
	for _, s := range sessions {
		if !f.Match(s) {
			continue
		}
		m, ok := s.MarkFor(studentID)
		if !ok {
			continue
		}
		res.Total++
		if m.Status.Attended() {
			res.Attended++
		}
	}
	res.Percentage = Percentage(res.Attended, res.Total)
	return res
}

// CourseAttendance summarises every mark recorded for a course.
type CourseAttendance struct {
	CourseID      string `json:"courseId"`
	TotalClasses  int    `json:"totalClasses"`
	Attended      int    `json:"attended"`
	Total         int    `json:"total"`
	AvgAttendance int    `json:"avgAttendance"`
}

// Course counts the course's sessions and its pooled attendance rate.
func Course(courseID string, sessions []attendance.Session) CourseAttendance {
	res := CourseAttendance{CourseID: courseID}
	for _, s := range sessions {
		if s.CourseID != courseID {
			continue
		}
		res.TotalClasses++
		for _, m := range s.Marks {
			res.Total++
			if m.Status.Attended() {
				res.Attended++
			}
		}
	}
	res.AvgAttendance = Percentage(res.Attended, res.Total)
	return res
}

// DepartmentAttendance pools the marks of a department's students.
type DepartmentAttendance struct {
	DepartmentID string `json:"departmentId"`
	StudentCount int    `json:"studentCount"`
	Attended     int    `json:"attended"`
	Total        int    `json:"total"`
	Attendance   int    `json:"attendance"`
}

// Department pools the attended and total counts of every student in the
// department into one ratio, so students with few sessions do not weigh
// as much as students with many.
func Department(departmentID string, sessions []attendance.Session, students []directory.Student) DepartmentAttendance {
	res := DepartmentAttendance{DepartmentID: departmentID}
	members := make(map[string]struct{})
	for _, st := range students {
		if st.DepartmentID == departmentID {
			members[st.ID] = struct{}{}
		}
	}
	res.StudentCount = len(members)
	if len(members) == 0 {
		return res
	}

	for _, s := range sessions {
		var seen map[string]struct{}
		for _, m := range s.Marks {
			if _, ok := members[m.StudentID]; !ok {
				continue
			}
			if _, dup := seen[m.StudentID]; dup {
				continue
			}
			if seen == nil {
				seen = make(map[string]struct{})
			}
			seen[m.StudentID] = struct{}{}
			res.Total++
			if m.Status.Attended() {
				res.Attended++
			}
		}
	}
	res.Attendance = Percentage(res.Attended, res.Total)
	return res
}

// FacultyAttendance covers the sessions taken by one faculty member.
type FacultyAttendance struct {
	FacultyID    string `json:"facultyId"`
	TotalClasses int    `json:"totalClasses"`
	Attended     int    `json:"attended"`
	Total        int    `json:"total"`
	Percentage   int    `json:"percentage"`
}

// Faculty pools every mark in the sessions a faculty member took.
func Faculty(facultyID string, sessions []attendance.Session, f attendance.Filter) FacultyAttendance {
	f.FacultyID = facultyID
	res := FacultyAttendance{FacultyID: facultyID}
	for _, s := range sessions {
		if !f.Match(s) {
			continue
		}
		res.TotalClasses++
		for _, m := range s.Marks {
			res.Total++
			if m.Status.Attended() {
				res.Attended++
			}
		}
	}
	res.Percentage = Percentage(res.Attended, res.Total)
	return res
}

// StudentTally is a per-student count of every mark seen.
type StudentTally struct {
	StudentID string
	Tally
}

// Tallies groups all marks by student, in order of first appearance.
func Tallies(sessions []attendance.Session) []StudentTally {
	var out []StudentTally
	pos := make(map[string]int)
	for _, s := range sessions {
		for _, m := range s.Marks {
			i, ok := pos[m.StudentID]
			if !ok {
				i = len(out)
				pos[m.StudentID] = i
				out = append(out, StudentTally{StudentID: m.StudentID})
			}
			out[i].Add(m.Status)
		}
	}
	return out
}
