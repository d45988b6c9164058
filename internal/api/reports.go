package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/alerts"
	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/metrics"
	"collegeattend/internal/queue"
	"collegeattend/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// cached serves a report from the report cache, building and storing it on
// a miss. The cache key covers the caller's faculty scope and the query.
func cached[T any](h *Handler, c *gin.Context, name string, build func() (T, error)) (T, error) {
	claims, _ := auth.ClaimsFrom(c)
	params := claims.FacultyID + "?" + c.Request.URL.RawQuery

	var v T
	key, hit := h.Cache.Get(c.Request.Context(), name, params, &v)
	if hit {
		return v, nil
	}
	timer := prometheus.NewTimer(metrics.ReportDuration.WithLabelValues(name))
	v, err := build()
	timer.ObserveDuration()
	if err != nil {
		return v, err
	}
	h.Cache.Set(c.Request.Context(), key, v)
	return v, nil
}

type facultyReport struct {
	Type    string              `json:"type"`
	Dates   []report.DateRow    `json:"dateReports,omitempty"`
	Student []report.StudentRow `json:"studentReports,omitempty"`
}

// FacultyReports returns the date-wise (type=date, default) or student-wise
// (type=student) report over the caller's sessions.
func (h *Handler) FacultyReports(c *gin.Context) {
	data, ok := h.facultyReport(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, data)
}

func (h *Handler) facultyReport(c *gin.Context) (facultyReport, bool) {
	fid, ok := facultyID(c)
	if !ok {
		return facultyReport{}, false
	}
	f, ok := filter(c)
	if !ok {
		return facultyReport{}, false
	}
	f.FacultyID = fid
	typ := c.DefaultQuery("type", "date")
	if typ != "date" && typ != "student" {
		fail(c, http.StatusBadRequest, "type must be date or student")
		return facultyReport{}, false
	}

	data, err := cached(h, c, "faculty-"+typ, func() (facultyReport, error) {
		snap, err := h.Directory.Snapshot(c.Request.Context())
		if err != nil {
			return facultyReport{}, err
		}
		sessions, err := h.Attendance.Ledger().Sessions(c.Request.Context(), f)
		if err != nil {
			return facultyReport{}, err
		}
		out := facultyReport{Type: typ}
		if typ == "date" {
			out.Dates = report.DateWise(sessions, f, snap)
		} else {
			out.Student = report.StudentWise(sessions, f, snap)
		}
		return out, nil
	})
	if err != nil {
		failErr(c, err)
		return facultyReport{}, false
	}
	return data, true
}

func (h *Handler) FacultySummary(c *gin.Context) {
	fid, ok := facultyID(c)
	if !ok {
		return
	}
	f, ok := filter(c)
	if !ok {
		return
	}
	data, err := cached(h, c, "faculty-summary", func() (report.Summary, error) {
		sessions, err := h.Attendance.Ledger().Sessions(c.Request.Context(), f)
		if err != nil {
			return report.Summary{}, err
		}
		th, err := h.Settings.Thresholds(c.Request.Context())
		if err != nil {
			return report.Summary{}, err
		}
		return report.BuildSummary(sessions, fid, th), nil
	})
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, data)
}

// ExportReport writes the faculty report as an XLSX workbook. With
// upload=true the workbook is stored in Cloudinary and its URL returned.
func (h *Handler) ExportReport(c *gin.Context) {
	data, ok := h.facultyReport(c)
	if !ok {
		return
	}
	table := report.DateWiseTable(data.Dates)
	if data.Type == "student" {
		table = report.StudentWiseTable(data.Student)
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, table); err != nil {
		failErr(c, err)
		return
	}
	filename := fmt.Sprintf("attendance-%s-%s.xlsx", data.Type, h.Attendance.Today())

	if upload, _ := strconv.ParseBool(c.Query("upload")); upload {
		if !h.Uploader.Enabled() {
			fail(c, http.StatusServiceUnavailable, "report storage not configured")
			return
		}
		res, err := h.Uploader.UploadRaw(c.Request.Context(), buf.Bytes(), filename, "")
		if err != nil {
			slog.Error("report upload failed", "error", err)
			fail(c, http.StatusBadGateway, "report upload failed")
			return
		}
		respond(c, http.StatusOK, gin.H{"url": res.SecureURL, "publicId": res.PublicID, "bytes": res.Bytes})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ---------- Settings ----------

func (h *Handler) GetSettings(c *gin.Context) {
	th, err := h.Settings.Thresholds(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"attendance": th})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req struct {
		Attendance aggregate.Thresholds `json:"attendance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failBind(c, err)
		return
	}
	if err := h.Settings.SaveThresholds(c.Request.Context(), req.Attendance); err != nil {
		failErr(c, err)
		return
	}
	h.Cache.Bump(c.Request.Context())
	h.announceThresholds(c, req.Attendance)
	respond(c, http.StatusOK, gin.H{"attendance": req.Attendance})
}

// announceThresholds asks the alerts worker to re-classify every student.
// The new thresholds are already saved, so a failed publish is only logged.
func (h *Handler) announceThresholds(c *gin.Context, th aggregate.Thresholds) {
	if h.Events == nil {
		return
	}
	msg, err := queue.NewMessage(queue.TypeThresholdsChanged, th)
	if err == nil {
		err = h.Events.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		slog.Warn("publish thresholds change failed", "error", err)
	}
}

// ---------- Alerts ----------

func (h *Handler) ListAlerts(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.Query("unread"))
	list, err := h.Alerts.List(c.Request.Context(), unread)
	if err != nil {
		failErr(c, err)
		return
	}
	if claims, _ := auth.ClaimsFrom(c); claims.Role == auth.RoleFaculty {
		list, err = h.scopeAlerts(c, claims.FacultyID, list)
		if err != nil {
			failErr(c, err)
			return
		}
	}
	page, limit := paging(c)
	items, p := paginate(list, page, limit)
	respond(c, http.StatusOK, gin.H{"alerts": items, "pagination": p})
}

// scopeAlerts keeps alerts for students the faculty member has marked.
func (h *Handler) scopeAlerts(c *gin.Context, fid string, list []alerts.Alert) ([]alerts.Alert, error) {
	sessions, err := h.Attendance.Ledger().Sessions(c.Request.Context(), attendance.Filter{FacultyID: fid})
	if err != nil {
		return nil, err
	}
	mine := make(map[string]struct{})
	for _, s := range sessions {
		for _, m := range s.Marks {
			mine[m.StudentID] = struct{}{}
		}
	}
	return slices.DeleteFunc(list, func(a alerts.Alert) bool {
		_, ok := mine[a.StudentID]
		return !ok
	}), nil
}

// ReadAlert marks one alert read. Faculty only reach alerts of students
// they have marked; anything else is reported as not found.
func (h *Handler) ReadAlert(c *gin.Context) {
	id := c.Param("id")
	if claims, _ := auth.ClaimsFrom(c); claims.Role == auth.RoleFaculty {
		mine, ok := h.facultyAlerts(c, claims.FacultyID, false)
		if !ok {
			return
		}
		if !slices.ContainsFunc(mine, func(a alerts.Alert) bool { return a.ID == id }) {
			failErr(c, alerts.ErrNotFound)
			return
		}
	}
	if err := h.Alerts.MarkRead(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	respondMessage(c, "alert marked as read")
}

// ReadAllAlerts marks every alert read for admin, and only the caller's
// scoped alerts for faculty.
func (h *Handler) ReadAllAlerts(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	if claims.Role != auth.RoleFaculty {
		if err := h.Alerts.MarkAllRead(c.Request.Context()); err != nil {
			failErr(c, err)
			return
		}
		respondMessage(c, "all alerts marked as read")
		return
	}
	mine, ok := h.facultyAlerts(c, claims.FacultyID, true)
	if !ok {
		return
	}
	for _, a := range mine {
		// An alert cleared since the listing is already gone.
		if err := h.Alerts.MarkRead(c.Request.Context(), a.ID); err != nil && !errors.Is(err, alerts.ErrNotFound) {
			failErr(c, err)
			return
		}
	}
	respondMessage(c, "all alerts marked as read")
}

func (h *Handler) facultyAlerts(c *gin.Context, fid string, unread bool) ([]alerts.Alert, bool) {
	list, err := h.Alerts.List(c.Request.Context(), unread)
	if err == nil {
		list, err = h.scopeAlerts(c, fid, list)
	}
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return list, true
}
