package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
	"collegeattend/internal/report"
)

// newID returns a short prefixed identifier such as STU1A2B3C4D5E.
func newID(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	today := h.Attendance.Today()
	todays, ok := h.sessions(c, attendance.Filter{From: today, To: today})
	if !ok {
		return
	}
	activeStudents := 0
	for _, s := range snap.Students() {
		if s.Status == directory.StatusActive {
			activeStudents++
		}
	}
	activeFaculty := 0
	for _, f := range snap.AllFaculty() {
		if f.Status == directory.StatusActive {
			activeFaculty++
		}
	}
	unread := 0
	if list, err := h.Alerts.List(c.Request.Context(), true); err == nil {
		unread = len(list)
	}
	respond(c, http.StatusOK, gin.H{
		"stats": gin.H{
			"totalStudents":    len(snap.Students()),
			"activeStudents":   activeStudents,
			"totalFaculty":     len(snap.AllFaculty()),
			"activeFaculty":    activeFaculty,
			"totalDepartments": len(snap.Departments()),
			"totalCourses":     len(snap.Courses()),
			"todayAttendance":  aggregate.Overall(todays).Percentage(),
			"todaySessions":    len(todays),
			"unreadAlerts":     unread,
		},
	})
}

// ---------- Faculty ----------

func (h *Handler) ListFaculty(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	dept, status := c.Query("department"), c.Query("status")
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	var out []directory.Faculty
	for _, f := range snap.AllFaculty() {
		if dept != "" && f.DepartmentID != dept {
			continue
		}
		if status != "" && f.Status != status {
			continue
		}
		if search != "" && !containsFold(search, f.Name, f.Email, f.Designation) {
			continue
		}
		out = append(out, f)
	}
	page, limit := paging(c)
	items, p := paginate(out, page, limit)
	respond(c, http.StatusOK, gin.H{"faculty": items, "pagination": p})
}

func (h *Handler) GetFaculty(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	f, found := snap.Faculty(c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{FacultyID: f.ID})
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{
		"faculty":    f,
		"courses":    snap.CoursesTaughtBy(f.ID),
		"attendance": aggregate.Faculty(f.ID, sessions, attendance.Filter{}),
	})
}

func (h *Handler) CreateFaculty(c *gin.Context) {
	var f directory.Faculty
	if err := c.ShouldBindJSON(&f); err != nil {
		failBind(c, err)
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if _, found := snap.Department(f.DepartmentID); !found {
		fail(c, http.StatusBadRequest, "unknown department")
		return
	}
	for _, x := range snap.AllFaculty() {
		if strings.EqualFold(x.Email, f.Email) {
			fail(c, http.StatusConflict, "faculty with this email already exists")
			return
		}
	}
	f.ID = newID("FAC")
	if f.Status == "" {
		f.Status = directory.StatusActive
	}
	if err := h.Directory.SaveFaculty(c.Request.Context(), f); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusCreated, f)
}

func (h *Handler) UpdateFaculty(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	f, found := snap.Faculty(c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	if err := c.ShouldBindJSON(&f); err != nil {
		failBind(c, err)
		return
	}
	f.ID = c.Param("id")
	if err := h.Directory.SaveFaculty(c.Request.Context(), f); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusOK, f)
}

func (h *Handler) DeleteFaculty(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if len(snap.CoursesTaughtBy(c.Param("id"))) > 0 {
		fail(c, http.StatusConflict, "faculty still has courses assigned")
		return
	}
	if err := h.Directory.DeleteFaculty(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respondMessage(c, "faculty deleted")
}

// ---------- Students ----------

type studentWithAttendance struct {
	directory.Student
	Attendance int `json:"attendance"`
}

func (h *Handler) ListStudents(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	dept, status := c.Query("department"), c.Query("status")
	year, _ := strconv.Atoi(c.Query("year"))
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	var matched []directory.Student
	for _, s := range snap.Students() {
		if dept != "" && s.DepartmentID != dept {
			continue
		}
		if year > 0 && s.Year != year {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		if search != "" && !containsFold(search, s.Name, s.Email, s.RollNo) {
			continue
		}
		matched = append(matched, s)
	}
	page, limit := paging(c)
	items, p := paginate(matched, page, limit)

	sessions, ok := h.sessions(c, attendance.Filter{})
	if !ok {
		return
	}
	out := make([]studentWithAttendance, 0, len(items))
	for _, s := range items {
		out = append(out, studentWithAttendance{
			Student:    s,
			Attendance: aggregate.Student(s.ID, sessions, attendance.Filter{}).Percentage,
		})
	}
	respond(c, http.StatusOK, gin.H{"students": out, "pagination": p})
}

// GetStudent accepts a student id or roll number.
func (h *Handler) GetStudent(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	st, found := findStudent(snap, c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	sessions, err := h.Attendance.Ledger().StudentSessions(c.Request.Context(), st.ID, attendance.Filter{})
	if err != nil {
		failErr(c, err)
		return
	}
	th, err := h.Settings.Thresholds(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	sa := aggregate.Student(st.ID, sessions, attendance.Filter{})
	respond(c, http.StatusOK, gin.H{
		"student":    st,
		"attendance": sa,
		"band":       aggregate.Classify(sa.Percentage, th),
		"history":    report.StudentHistory(st.ID, sessions, attendance.Filter{}, snap),
	})
}

func findStudent(snap *directory.Snapshot, idOrRoll string) (directory.Student, bool) {
	if st, ok := snap.Student(idOrRoll); ok {
		return st, true
	}
	for _, st := range snap.Students() {
		if strings.EqualFold(st.RollNo, idOrRoll) {
			return st, true
		}
	}
	return directory.Student{}, false
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var s directory.Student
	if err := c.ShouldBindJSON(&s); err != nil {
		failBind(c, err)
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if _, found := snap.Department(s.DepartmentID); !found {
		fail(c, http.StatusBadRequest, "unknown department")
		return
	}
	for _, x := range snap.Students() {
		if strings.EqualFold(x.RollNo, s.RollNo) || strings.EqualFold(x.Email, s.Email) {
			fail(c, http.StatusConflict, "student with this roll number or email already exists")
			return
		}
	}
	s.ID = newID("STU")
	if s.Status == "" {
		s.Status = directory.StatusActive
	}
	if err := h.Directory.SaveStudent(c.Request.Context(), s); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusCreated, s)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	s, found := snap.Student(c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	if err := c.ShouldBindJSON(&s); err != nil {
		failBind(c, err)
		return
	}
	s.ID = c.Param("id")
	if err := h.Directory.SaveStudent(c.Request.Context(), s); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusOK, s)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.Directory.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respondMessage(c, "student deleted")
}

// ---------- Departments ----------

func (h *Handler) ListDepartments(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{})
	if !ok {
		return
	}
	respond(c, http.StatusOK, gin.H{"departments": report.DepartmentWise(sessions, attendance.Filter{}, snap)})
}

func (h *Handler) GetDepartment(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	d, found := snap.Department(c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{})
	if !ok {
		return
	}
	var fac []directory.Faculty
	for _, f := range snap.AllFaculty() {
		if f.DepartmentID == d.ID {
			fac = append(fac, f)
		}
	}
	respond(c, http.StatusOK, gin.H{
		"department": d,
		"attendance": aggregate.Department(d.ID, sessions, snap.Students()),
		"faculty":    fac,
	})
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	var d directory.Department
	if err := c.ShouldBindJSON(&d); err != nil {
		failBind(c, err)
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	for _, x := range snap.Departments() {
		if strings.EqualFold(x.Code, d.Code) {
			fail(c, http.StatusConflict, "department with this code already exists")
			return
		}
	}
	d.ID = newID("DEP")
	if err := h.Directory.SaveDepartment(c.Request.Context(), d); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusCreated, d)
}

func (h *Handler) UpdateDepartment(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	d, found := snap.Department(c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	if err := c.ShouldBindJSON(&d); err != nil {
		failBind(c, err)
		return
	}
	d.ID = c.Param("id")
	if err := h.Directory.SaveDepartment(c.Request.Context(), d); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusOK, d)
}

// DeleteDepartment refuses while students or faculty still belong to it.
func (h *Handler) DeleteDepartment(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	id := c.Param("id")
	hasFaculty := slices.ContainsFunc(snap.AllFaculty(), func(f directory.Faculty) bool { return f.DepartmentID == id })
	if len(snap.StudentsIn(id)) > 0 || hasFaculty {
		fail(c, http.StatusConflict, "department still has students or faculty")
		return
	}
	if err := h.Directory.DeleteDepartment(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respondMessage(c, "department deleted")
}

// ---------- Courses and classes ----------

func (h *Handler) ListCourses(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	sessions, ok := h.sessions(c, attendance.Filter{})
	if !ok {
		return
	}
	dept := c.Query("department")
	out := make([]courseWithStats, 0, len(snap.Courses()))
	for _, crs := range snap.Courses() {
		if dept != "" && crs.DepartmentID != dept {
			continue
		}
		out = append(out, courseStats(snap, crs, sessions))
	}
	respond(c, http.StatusOK, gin.H{"courses": out})
}

func (h *Handler) CreateCourse(c *gin.Context) {
	var crs directory.Course
	if err := c.ShouldBindJSON(&crs); err != nil {
		failBind(c, err)
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if msg := checkCourseRefs(snap, crs); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	for _, x := range snap.Courses() {
		if strings.EqualFold(x.Code, crs.Code) {
			fail(c, http.StatusConflict, "course with this code already exists")
			return
		}
	}
	crs.ID = newID("CRS")
	if err := h.Directory.SaveCourse(c.Request.Context(), crs); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusCreated, crs)
}

func (h *Handler) UpdateCourse(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	crs, found := snap.Course(c.Param("id"))
	if !found {
		failErr(c, directory.ErrNotFound)
		return
	}
	if err := c.ShouldBindJSON(&crs); err != nil {
		failBind(c, err)
		return
	}
	crs.ID = c.Param("id")
	if msg := checkCourseRefs(snap, crs); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	if err := h.Directory.SaveCourse(c.Request.Context(), crs); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	respond(c, http.StatusOK, crs)
}

func checkCourseRefs(snap *directory.Snapshot, crs directory.Course) string {
	if _, found := snap.Department(crs.DepartmentID); !found {
		return "unknown department"
	}
	if crs.FacultyID != "" {
		if _, found := snap.Faculty(crs.FacultyID); !found {
			return "unknown faculty"
		}
	}
	return ""
}

func (h *Handler) ListClasses(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	dept := c.Query("department")
	var out []directory.Class
	for _, cls := range snap.Classes() {
		if dept == "" || cls.DepartmentID == dept {
			out = append(out, cls)
		}
	}
	respond(c, http.StatusOK, gin.H{"classes": out})
}

// ---------- Attendance ----------

func (h *Handler) AdminAttendance(c *gin.Context) {
	f, ok := filter(c)
	if !ok {
		return
	}
	f.FacultyID = c.Query("facultyId")
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	sessions, ok := h.sessions(c, f)
	if !ok {
		return
	}
	rows := report.DateWise(sessions, f, snap)
	page, limit := paging(c)
	items, p := paginate(rows, page, limit)
	respond(c, http.StatusOK, gin.H{"records": items, "pagination": p})
}

// AdminAttendanceReport is the institution-wide summary with a per
// department breakdown.
func (h *Handler) AdminAttendanceReport(c *gin.Context) {
	f, ok := filter(c)
	if !ok {
		return
	}
	type adminReport struct {
		Summary     report.Summary         `json:"summary"`
		Departments []report.DepartmentRow `json:"departmentStats"`
	}
	data, err := cached(h, c, "admin-report", func() (adminReport, error) {
		snap, err := h.Directory.Snapshot(c.Request.Context())
		if err != nil {
			return adminReport{}, err
		}
		sessions, err := h.Attendance.Ledger().Sessions(c.Request.Context(), f)
		if err != nil {
			return adminReport{}, err
		}
		th, err := h.Settings.Thresholds(c.Request.Context())
		if err != nil {
			return adminReport{}, err
		}
		rows := report.DepartmentWise(sessions, f, snap)
		if dept := c.Query("departmentId"); dept != "" {
			rows = slices.DeleteFunc(rows, func(r report.DepartmentRow) bool { return r.DepartmentID != dept })
		}
		return adminReport{
			Summary:     report.BuildSummary(f.Apply(sessions), "", th),
			Departments: rows,
		}, nil
	})
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, data)
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
