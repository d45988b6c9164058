// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "sessions_marked_total",
		Help:      "Attendance sessions written, by result (created or updated).",
	}, []string{"result"})

	MarksRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "marks_recorded_total",
		Help:      "Student marks written, by status.",
	}, []string{"status"})

	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "report_build_seconds",
		Help:      "Time spent building reports, by report type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"report"})

	ReportCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "report_cache_total",
		Help:      "Report cache lookups, by result (hit, miss, error).",
	}, []string{"result"})

	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "alerts_raised_total",
		Help:      "Low-attendance alerts recorded, by band.",
	}, []string{"band"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)
