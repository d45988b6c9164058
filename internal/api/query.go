package api

import (
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"collegeattend/internal/attendance"
	"collegeattend/internal/directory"
)

// filterFromQuery reads date=, startDate=, endDate=, courseId= and
// classId=. date= pins both ends of the range.
func filterFromQuery(c *gin.Context) (attendance.Filter, error) {
	var f attendance.Filter
	var err error
	if f.From, err = queryDate(c, "startDate"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "endDate"); err != nil {
		return f, err
	}
	day, err := queryDate(c, "date")
	if err != nil {
		return f, err
	}
	if day.IsValid() {
		f.From, f.To = day, day
	}
	f.CourseID = strings.TrimSpace(c.Query("courseId"))
	f.ClassID = strings.TrimSpace(c.Query("classId"))
	return f, nil
}

func queryDate(c *gin.Context, name string) (civil.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s must be a YYYY-MM-DD date", name)
	}
	return d, nil
}

// filter parses the query filter, answering 400 on failure.
func filter(c *gin.Context) (attendance.Filter, bool) {
	f, err := filterFromQuery(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return f, false
	}
	return f, true
}

func (h *Handler) snapshot(c *gin.Context) (*directory.Snapshot, bool) {
	snap, err := h.Directory.Snapshot(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return snap, true
}

func (h *Handler) sessions(c *gin.Context, f attendance.Filter) ([]attendance.Session, bool) {
	sessions, err := h.Attendance.Ledger().Sessions(c.Request.Context(), f)
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return sessions, true
}
