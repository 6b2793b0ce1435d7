package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"cafereport/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			s.logger.WarnContext(ctx, "Readiness check failed",
				"check", name,
				log.FieldError, err)
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	reports := s.reports.Metrics()
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	inFlight := 0
	if s.reports.InFlight() {
		inFlight = 1
	}

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP reports_submitted_total Reports confirmed by the report backend\n")
	fmt.Fprintf(w, "# TYPE reports_submitted_total counter\n")
	fmt.Fprintf(w, "reports_submitted_total %d\n\n", reports.Submitted)

	fmt.Fprintf(w, "# HELP reports_failed_total Report submissions that did not go through\n")
	fmt.Fprintf(w, "# TYPE reports_failed_total counter\n")
	fmt.Fprintf(w, "reports_failed_total{reason=\"validation\"} %d\n", reports.ValidationFailed)
	fmt.Fprintf(w, "reports_failed_total{reason=\"delivery\"} %d\n", reports.DeliveryFailed)
	fmt.Fprintf(w, "reports_failed_total{reason=\"in_flight\"} %d\n\n", reports.Rejected)

	fmt.Fprintf(w, "# HELP report_events_total Report submitted events sent to the broker\n")
	fmt.Fprintf(w, "# TYPE report_events_total counter\n")
	fmt.Fprintf(w, "report_events_total{result=\"published\"} %d\n", reports.EventsPublished)
	fmt.Fprintf(w, "report_events_total{result=\"failed\"} %d\n\n", reports.EventsFailed)

	fmt.Fprintf(w, "# HELP report_submission_in_flight Whether a submission is running\n")
	fmt.Fprintf(w, "# TYPE report_submission_in_flight gauge\n")
	fmt.Fprintf(w, "report_submission_in_flight %d\n\n", inFlight)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
