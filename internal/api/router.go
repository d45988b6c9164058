// Package api exposes the attendance service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"collegeattend/internal/alerts"
	"collegeattend/internal/attendance"
	"collegeattend/internal/auth"
	"collegeattend/internal/cache"
	"collegeattend/internal/cloudinary"
	"collegeattend/internal/directory"
	"collegeattend/internal/httpmiddleware"
	"collegeattend/internal/settings"
)

// Deps are the collaborators the handlers use. Events carries settings
// changes to the alerts worker. Cache, Events, Uploader and Limiter may be
// nil.
type Deps struct {
	Auth       *auth.Service
	Directory  directory.Store
	Attendance *attendance.Service
	Settings   settings.Store
	Alerts     alerts.Store
	Cache      *cache.Reports
	Events     attendance.Publisher
	Uploader   *cloudinary.Client
	Limiter    httpmiddleware.Limiter
	// Health maps a dependency name to its probe for /healthz.
	Health map[string]func(context.Context) bool
}

// Handler holds the route handlers.
type Handler struct {
	Deps
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps, allowedOrigins []string) *gin.Engine {
	registerValidations()
	h := &Handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	signer := d.Auth.Signer()
	limit := func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limit = httpmiddleware.RateLimit(d.Limiter)
	}

	api := r.Group("/api")

	pub := api.Group("/auth", limit)
	pub.POST("/login", h.Login)
	pub.POST("/refresh", h.Refresh)

	authed := api.Group("/auth", auth.Required(signer), limit)
	authed.POST("/logout", h.Logout)
	authed.GET("/verify", h.Verify)
	authed.POST("/change-password", h.ChangePassword)

	admin := api.Group("/admin", auth.Required(signer), limit, auth.RequireRole(auth.RoleAdmin))
	admin.GET("/dashboard", h.AdminDashboard)
	admin.GET("/faculty", h.ListFaculty)
	admin.GET("/faculty/:id", h.GetFaculty)
	admin.POST("/faculty", h.CreateFaculty)
	admin.PUT("/faculty/:id", h.UpdateFaculty)
	admin.DELETE("/faculty/:id", h.DeleteFaculty)
	admin.GET("/students", h.ListStudents)
	admin.GET("/students/:id", h.GetStudent)
	admin.POST("/students", h.CreateStudent)
	admin.PUT("/students/:id", h.UpdateStudent)
	admin.DELETE("/students/:id", h.DeleteStudent)
	admin.GET("/departments", h.ListDepartments)
	admin.GET("/departments/:id", h.GetDepartment)
	admin.POST("/departments", h.CreateDepartment)
	admin.PUT("/departments/:id", h.UpdateDepartment)
	admin.DELETE("/departments/:id", h.DeleteDepartment)
	admin.GET("/courses", h.ListCourses)
	admin.POST("/courses", h.CreateCourse)
	admin.PUT("/courses/:id", h.UpdateCourse)
	admin.GET("/classes", h.ListClasses)
	admin.GET("/attendance", h.AdminAttendance)
	admin.GET("/attendance/report", h.AdminAttendanceReport)
	admin.GET("/settings", h.GetSettings)
	admin.PUT("/settings", h.UpdateSettings)
	admin.GET("/alerts", h.ListAlerts)
	admin.PUT("/alerts/read-all", h.ReadAllAlerts)
	admin.PUT("/alerts/:id/read", h.ReadAlert)

	fac := api.Group("/faculty", auth.Required(signer), limit, auth.RequireRole(auth.RoleFaculty))
	fac.GET("/dashboard", h.FacultyDashboard)
	fac.GET("/profile", h.FacultyProfile)
	fac.PUT("/profile", h.UpdateFacultyProfile)
	fac.GET("/courses", h.FacultyCourses)
	fac.GET("/courses/:id", h.FacultyCourse)
	fac.GET("/attendance", h.FacultyAttendance)
	fac.GET("/attendance/:id", h.FacultySession)
	fac.POST("/attendance", h.MarkAttendance)
	fac.PUT("/attendance/:id", h.ReplaceAttendance)
	fac.GET("/students/:classId", h.ClassRoster)
	fac.GET("/student/:id", h.FacultyStudent)
	fac.GET("/reports", h.FacultyReports)
	fac.GET("/reports/summary", h.FacultySummary)
	fac.GET("/reports/export", h.ExportReport)
	fac.GET("/settings", h.GetSettings)
	fac.GET("/alerts", h.ListAlerts)
	fac.PUT("/alerts/read-all", h.ReadAllAlerts)
	fac.PUT("/alerts/:id/read", h.ReadAlert)

	return r
}

// Healthz probes every registered dependency.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"status": "ok"}
	for name, probe := range h.Health {
		healthy := probe(ctx)
		checks[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			checks["status"] = "degraded"
		}
	}
	c.JSON(status, checks)
}
