package api

import (
	"errors"
	"net/http"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/directory"
	"collegeattend/internal/report"
)

// facultyID returns the faculty member behind the request. Faculty accounts
// without a linked profile are refused.
func facultyID(c *gin.Context) (string, bool) {
	claims, _ := auth.ClaimsFrom(c)
	if claims.FacultyID == "" {
		fail(c, http.StatusForbidden, "account has no faculty profile")
		return "", false
	}
	return claims.FacultyID, true
}

type courseWithStats struct {
	directory.Course
	Faculty *string                    `json:"faculty"`
	ClassID *string                    `json:"classId"`
	Class   *string                    `json:"class"`
	Stats   aggregate.CourseAttendance `json:"stats"`
}

func courseStats(snap *directory.Snapshot, crs directory.Course, sessions []attendance.Session) courseWithStats {
	out := courseWithStats{Course: crs, Stats: aggregate.Course(crs.ID, sessions)}
	if f, ok := snap.Faculty(crs.FacultyID); ok {
		out.Faculty = &f.Name
	}
	if cls, ok := snap.ClassForCourse(crs); ok {
		out.ClassID, out.Class = &cls.ID, &cls.Name
	}
	return out
}

func (h *Handler) FacultyDashboard(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	me, found := snap.Faculty(fid)
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{FacultyID: fid})
	if !ok {
		return
	}
	courses := snap.CoursesTaughtBy(fid)
	today := h.Attendance.Today()

	marked := make(map[string]bool)
	students := make(map[string]struct{})
	for _, s := range sessions {
		if s.Date == today {
			marked[s.CourseID] = true
		}
	}
	type scheduleItem struct {
		CourseID         string `json:"courseId"`
		CourseName       string `json:"courseName"`
		CourseCode       string `json:"courseCode"`
		AttendanceMarked bool   `json:"attendanceMarked"`
	}
	schedule := make([]scheduleItem, 0, len(courses))
	for _, crs := range courses {
		if cls, ok := snap.ClassForCourse(crs); ok {
			for _, st := range snap.Roster(cls) {
				students[st.ID] = struct{}{}
			}
		}
		schedule = append(schedule, scheduleItem{
			CourseID:         crs.ID,
			CourseName:       crs.Name,
			CourseCode:       crs.Code,
			AttendanceMarked: marked[crs.ID],
		})
	}

	recent := report.DateWise(sessions, attendance.Filter{}, snap)
	if len(recent) > 5 {
		recent = recent[:5]
	}
	respond(c, http.StatusOK, gin.H{
		"faculty": me,
		"stats": gin.H{
			"totalCourses":          len(courses),
			"totalStudents":         len(students),
			"attendanceMarkedToday": len(marked),
			"pendingAttendance":     max(len(courses)-len(marked), 0),
			"overall":               aggregate.Faculty(fid, sessions, attendance.Filter{}),
		},
		"recentRecords": recent,
		"todaySchedule": schedule,
	})
}

func (h *Handler) FacultyProfile(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	me, found := snap.Faculty(fid)
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	var dept *string
	if d, ok := snap.Department(me.DepartmentID); ok {
		dept = &d.Name
	}
	respond(c, http.StatusOK, gin.H{"faculty": me, "department": dept, "courses": snap.CoursesTaughtBy(fid)})
}

// UpdateFacultyProfile lets faculty edit their own contact details only.
func (h *Handler) UpdateFacultyProfile(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	var req struct {
		Phone         *string `json:"phone"`
		Qualification *string `json:"qualification"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	me, found := snap.Faculty(fid)
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	if req.Phone != nil {
		me.Phone = *req.Phone
	}
	if req.Qualification != nil {
		me.Qualification = *req.Qualification
	}
	if err := h.Directory.SaveFaculty(c.Request.Context(), me); err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, me)
}

func (h *Handler) FacultyCourses(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{FacultyID: fid})
	if !ok {
		return
	}
	courses := snap.CoursesTaughtBy(fid)
	out := make([]courseWithStats, 0, len(courses))
	for _, crs := range courses {
		out = append(out, courseStats(snap, crs, sessions))
	}
	respond(c, http.StatusOK, gin.H{"courses": out})
}

// ownCourse loads a course taught by the caller, answering 404 otherwise.
func ownCourse(c *gin.Context, snap *directory.Snapshot, fid, courseID string) (directory.Course, bool) {
	crs, found := snap.Course(courseID)
	if !found || crs.FacultyID != fid {
		failErr(c, directory.ErrNotFound)
		return directory.Course{}, false
	}
	return crs, true
}

func (h *Handler) FacultyCourse(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	crs, ok := ownCourse(c, snap, fid, c.Param("id"))
	if !ok {
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{CourseID: crs.ID})
	if !ok {
		return
	}
	var roster []directory.Student
	if cls, ok := snap.ClassForCourse(crs); ok {
		roster = snap.Roster(cls)
	}
	respond(c, http.StatusOK, gin.H{
		"course":   courseStats(snap, crs, sessions),
		"students": roster,
		"sessions": report.DateWise(sessions, attendance.Filter{}, snap),
	})
}

func (h *Handler) FacultyAttendance(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	f, ok := filter(c)
	if !ok {
		return
	}
	f.FacultyID = fid
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	sessions, ok := h.sessions(c, f)
	if !ok {
		return
	}
	page, limit := paging(c)
	items, p := paginate(report.DateWise(sessions, f, snap), page, limit)
	respond(c, http.StatusOK, gin.H{"records": items, "pagination": p})
}

type markView struct {
	attendance.Mark
	RollNo *string `json:"rollNo"`
	Name   *string `json:"name"`
}

// ownSession loads a session taken by the caller, answering 404 otherwise.
func (h *Handler) ownSession(c *gin.Context, fid, id string) (attendance.Session, bool) {
	s, err := h.Attendance.Ledger().Session(c.Request.Context(), id)
	if err == nil && s.FacultyID != fid {
		err = attendance.ErrNotFound
	}
	if err != nil {
		failErr(c, err)
		return attendance.Session{}, false
	}
	return s, true
}

func (h *Handler) FacultySession(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	s, ok := h.ownSession(c, fid, c.Param("id"))
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	marks := make([]markView, 0, len(s.Marks))
	for _, m := range s.Marks {
		v := markView{Mark: m}
		if st, ok := snap.Student(m.StudentID); ok {
			v.RollNo, v.Name = &st.RollNo, &st.Name
		}
		marks = append(marks, v)
	}
	respond(c, http.StatusOK, gin.H{
		"session": report.DateWise([]attendance.Session{s}, attendance.Filter{}, snap)[0],
		"records": marks,
	})
}

type markRequest struct {
	Date     string                 `json:"date" binding:"omitempty,isodate"`
	CourseID string                 `json:"courseId" binding:"required"`
	ClassID  string                 `json:"classId"`
	Records  []attendance.MarkInput `json:"records" binding:"required,unique=StudentID,dive"`
}

// MarkAttendance records attendance for one of the caller's courses. A
// second submission for the same course and date replaces the first.
func (h *Handler) MarkAttendance(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	crs, found := snap.Course(req.CourseID)
	if !found {
		fail(c, http.StatusBadRequest, "unknown course")
		return
	}
	if crs.FacultyID != fid {
		fail(c, http.StatusForbidden, "course is not assigned to you")
		return
	}
	classID := req.ClassID
	if classID == "" {
		if cls, ok := snap.ClassForCourse(crs); ok {
			classID = cls.ID
		}
	} else if _, found := snap.Class(classID); !found {
		fail(c, http.StatusBadRequest, "unknown class")
		return
	}
	var date civil.Date
	if req.Date != "" {
		date, _ = civil.ParseDate(req.Date)
	}

	sess, created, err := h.Attendance.Mark(c.Request.Context(), attendance.MarkRequest{
		Date:      date,
		CourseID:  crs.ID,
		ClassID:   classID,
		FacultyID: fid,
		Marks:     req.Records,
	})
	if err != nil {
		failMark(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(c, status, gin.H{"session": sess, "created": created})
}

func (h *Handler) ReplaceAttendance(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	var req struct {
		Records []attendance.MarkInput `json:"records" binding:"required,unique=StudentID,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	if _, ok := h.ownSession(c, fid, c.Param("id")); !ok {
		return
	}
	sess, err := h.Attendance.Replace(c.Request.Context(), c.Param("id"), req.Records)
	if err != nil {
		failMark(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"session": sess})
}

func failMark(c *gin.Context, err error) {
	if errors.Is(err, attendance.ErrInvalidStatus) || errors.Is(err, attendance.ErrDuplicateMark) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	failErr(c, err)
}

func (h *Handler) ClassRoster(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	cls, found := snap.Class(c.Param("classId"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	roster := snap.Roster(cls)
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].RollNo < roster[j].RollNo })
	respond(c, http.StatusOK, gin.H{"class": cls, "students": roster})
}

// FacultyStudent shows a student's attendance within the caller's courses.
func (h *Handler) FacultyStudent(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	st, found := findStudent(snap, c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	sessions, err := h.Attendance.Ledger().StudentSessions(c.Request.Context(), st.ID, attendance.Filter{FacultyID: fid})
	if err != nil {
		failErr(c, err)
		return
	}
	th, err := h.Settings.Thresholds(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}

	type perCourse struct {
		CourseID string  `json:"courseId"`
		Course   *string `json:"course"`
		aggregate.StudentAttendance
	}
	var courses []perCourse
	for _, crs := range snap.CoursesTaughtBy(fid) {
		sa := aggregate.Student(st.ID, sessions, attendance.Filter{CourseID: crs.ID})
		if sa.Total == 0 {
			continue
		}
		name := crs.Name
		courses = append(courses, perCourse{CourseID: crs.ID, Course: &name, StudentAttendance: sa})
	}
	overall := aggregate.Student(st.ID, sessions, attendance.Filter{})
	respond(c, http.StatusOK, gin.H{
		"student":    st,
		"attendance": overall,
		"band":       aggregate.Classify(overall.Percentage, th),
		"courses":    courses,
		"history":    report.StudentHistory(st.ID, sessions, attendance.Filter{}, snap),
	})
}
