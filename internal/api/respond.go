package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"collegeattend/internal/aggregate"
	"collegeattend/internal/alerts"
	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/directory"
)

// envelope is the shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: msg})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: msg})
}

// failErr maps domain errors to status codes. Unknown errors are logged and
// reported as a generic 500.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, alerts.ErrNotFound),
		errors.Is(err, auth.ErrNotFound):
		fail(c, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, aggregate.ErrInvalidThresholds):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenRevoked):
		fail(c, http.StatusUnauthorized, rootMessage(err))
	case errors.Is(err, auth.ErrInactive):
		fail(c, http.StatusForbidden, err.Error())
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func notFoundMessage(err error) string {
	for _, sentinel := range []error{attendance.ErrNotFound, directory.ErrNotFound, alerts.ErrNotFound, auth.ErrNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "not found"
}

func rootMessage(err error) string {
	if errors.Is(err, auth.ErrTokenRevoked) {
		return auth.ErrTokenRevoked.Error()
	}
	return auth.ErrInvalidCredentials.Error()
}

// failBind reports a request body that did not bind or validate.
func failBind(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		fail(c, http.StatusBadRequest, strings.Join(msgs, "; "))
		return
	}
	if errors.Is(err, attendance.ErrInvalidStatus) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	fail(c, http.StatusBadRequest, "invalid request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "isodate":
		return fe.Field() + " must be a YYYY-MM-DD date"
	case "markstatus":
		return fmt.Sprintf("%s %q is not one of present, absent, late", fe.Field(), fe.Value())
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "unique":
		return fe.Field() + " must not mark a student more than once"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Pagination describes one page of a list response.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// paging reads ?page= and ?limit=, clamping to sane bounds.
func paging(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if limit <= 0 {
		limit = defaultPerPage
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) ([]T, Pagination) {
	p := Pagination{Total: len(items), Page: page, Limit: limit}
	p.TotalPages = (len(items) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}, p
	}
	end := min(start+limit, len(items))
	return items[start:end], p
}
