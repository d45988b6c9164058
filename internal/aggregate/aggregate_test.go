package aggregate

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
)

func session(date string, course, faculty string, marks ...attendance.Mark) attendance.Session {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return attendance.Session{ID: date + course, Date: d, CourseID: course, FacultyID: faculty, Marks: marks}
}

func mark(student string, s attendance.Status) attendance.Mark {
	return attendance.Mark{StudentID: student, Status: s}
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	cases := []struct {
		attended, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{3, 3, 100},
		{0, 5, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Percentage(c.attended, c.total), "%d/%d", c.attended, c.total)
	}
}

func TestStudentCountsFirstMarkOnly(t *testing.T) {
	sessions := []attendance.Session{
		session("2026-02-23", "C1", "F1", mark("S1", attendance.StatusPresent), mark("S1", attendance.StatusAbsent)),
		session("2026-02-24", "C1", "F1", mark("S1", attendance.StatusLate)),
		session("2026-02-25", "C2", "F1", mark("S1", attendance.StatusAbsent)),
		session("2026-02-25", "C3", "F1", mark("S2", attendance.StatusPresent)),
	}

	got := Student("S1", sessions, attendance.Filter{})
	assert.Equal(t, StudentAttendance{StudentID: "S1", Attended: 2, Total: 3, Percentage: 67}, got)

	got = Student("S1", sessions, attendance.Filter{CourseID: "C1"})
	assert.Equal(t, 100, got.Percentage)

	got = Student("S9", sessions, attendance.Filter{})
	assert.Equal(t, 0, got.Total)
	assert.Equal(t, 0, got.Percentage)
}

func TestCourseCountsEveryMark(t *testing.T) {
	sessions := []attendance.Session{
		session("2026-02-23", "C1", "F1", mark("S1", attendance.StatusPresent), mark("S2", attendance.StatusAbsent)),
		session("2026-02-24", "C1", "F1", mark("S1", attendance.StatusLate), mark("S2", attendance.StatusPresent)),
		session("2026-02-24", "C2", "F1", mark("S1", attendance.StatusAbsent)),
	}
	got := Course("C1", sessions)
	assert.Equal(t, 2, got.TotalClasses)
	assert.Equal(t, 3, got.Attended)
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 75, got.AvgAttendance)

	assert.Equal(t, CourseAttendance{CourseID: "C9"}, Course("C9", sessions))
}

func TestDepartmentPoolsCounts(t *testing.T) {
	students := []directory.Student{
		{ID: "A", DepartmentID: "D1"},
		{ID: "B", DepartmentID: "D1"},
		{ID: "X", DepartmentID: "D2"},
	}
	// A attends 0 of 1, B attends 2 of 100: the pooled rate is 2/101.
	sessions := []attendance.Session{session("2026-01-01", "C1", "F1", mark("A", attendance.StatusAbsent), mark("X", attendance.StatusPresent))}
	for i := 0; i < 100; i++ {
		st := attendance.StatusAbsent
		if i < 2 {
			st = attendance.StatusPresent
		}
		sessions = append(sessions, session("2026-01-02", "C2", "F1", mark("B", st)))
	}

	got := Department("D1", sessions, students)
	assert.Equal(t, 2, got.StudentCount)
	assert.Equal(t, 2, got.Attended)
	assert.Equal(t, 101, got.Total)
	assert.Equal(t, 2, got.Attendance)

	empty := Department("D9", sessions, students)
	assert.Equal(t, DepartmentAttendance{DepartmentID: "D9"}, empty)
}

func TestDepartmentCountsStudentOncePerSession(t *testing.T) {
	students := []directory.Student{{ID: "A", DepartmentID: "D1"}}
	sessions := []attendance.Session{
		session("2026-01-01", "C1", "F1", mark("A", attendance.StatusPresent), mark("A", attendance.StatusAbsent)),
	}
	got := Department("D1", sessions, students)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 100, got.Attendance)
}

func TestFacultyFiltersByOwner(t *testing.T) {
	sessions := []attendance.Session{
		session("2026-02-23", "C1", "F1", mark("S1", attendance.StatusPresent), mark("S2", attendance.StatusAbsent)),
		session("2026-02-24", "C2", "F2", mark("S1", attendance.StatusPresent)),
	}
	got := Faculty("F1", sessions, attendance.Filter{FacultyID: "ignored"})
	assert.Equal(t, FacultyAttendance{FacultyID: "F1", TotalClasses: 1, Attended: 1, Total: 2, Percentage: 50}, got)
}

func TestTalliesKeepFirstAppearanceOrder(t *testing.T) {
	sessions := []attendance.Session{
		session("2026-02-23", "C1", "F1", mark("S2", attendance.StatusLate), mark("S1", attendance.StatusAbsent)),
		session("2026-02-24", "C1", "F1", mark("S1", attendance.StatusPresent), mark("S3", attendance.StatusPresent)),
	}
	got := Tallies(sessions)
	assert.Equal(t, []StudentTally{
		{StudentID: "S2", Tally: Tally{Late: 1}},
		{StudentID: "S1", Tally: Tally{Present: 1, Absent: 1}},
		{StudentID: "S3", Tally: Tally{Present: 1}},
	}, got)

	overall := Overall(sessions)
	assert.Equal(t, 4, overall.Total())
	assert.Equal(t, 3, overall.Attended())
	assert.Equal(t, 75, overall.Percentage())
}

func TestClassify(t *testing.T) {
	th := Thresholds{MinAttendance: 75, WarningThreshold: 80}
	assert.Equal(t, BandLow, Classify(74, th))
	assert.Equal(t, BandWarning, Classify(75, th))
	assert.Equal(t, BandWarning, Classify(77, th))
	assert.Equal(t, BandNormal, Classify(80, th))
	assert.Equal(t, BandNormal, Classify(90, th))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds.Validate())
	assert.NoError(t, Thresholds{MinAttendance: 0, WarningThreshold: 100}.Validate())

	for _, bad := range []Thresholds{
		{MinAttendance: 80, WarningThreshold: 80},
		{MinAttendance: 85, WarningThreshold: 80},
		{MinAttendance: -1, WarningThreshold: 50},
		{MinAttendance: 50, WarningThreshold: 101},
	} {
		assert.ErrorIs(t, bad.Validate(), ErrInvalidThresholds, "%+v", bad)
	}
}
