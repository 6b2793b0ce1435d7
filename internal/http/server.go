package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"cafereport/internal/backend"
	"cafereport/internal/core"
	"cafereport/internal/draft"
	"cafereport/internal/log"
	"cafereport/internal/middleware/ratelimit"
	"cafereport/internal/middleware/security"
	"cafereport/internal/middleware/trace"
	"cafereport/internal/services"
	appweb "cafereport/web"
)

// Server serves the report form, its htmx partials and the JSON API.
type Server struct {
	http.Server

	drafts    *draft.Store
	reports   *services.ReportService
	builder   *core.ReportBuilder
	catalog   core.Catalog
	checks    map[string]backend.HealthCheck
	templates *template.Template
	logger    *log.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// Options configure NewServer. Checks and Logger are optional.
type Options struct {
	Addr                string
	Drafts              *draft.Store
	Reports             *services.ReportService
	Builder             *core.ReportBuilder
	Checks              map[string]backend.HealthCheck
	SubmitRatePerMinute int
	// TrustedProxies are added to the detector's default private networks.
	TrustedProxies []string
	Logger         *log.Logger
}

// NewServer configures routes, middleware and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	catalog := opts.Builder.Catalog
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}

	s := &Server{
		drafts:      opts.Drafts,
		reports:     opts.Reports,
		builder:     opts.Builder,
		catalog:     catalog,
		checks:      opts.Checks,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.SubmitRatePerMinute}),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := parseTemplates()
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldComponent, log.ComponentTemplate,
			log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/form", s.handleFormPartial)
	mux.HandleFunc("GET /ui/total", s.handleTotalPartial)
	mux.HandleFunc("GET /ui/previous-total", s.handlePreviousTotalPartial)

	mux.HandleFunc("POST /draft/header", s.handleSetHeader)
	mux.HandleFunc("POST /draft/rows", s.handleAddRow)
	mux.HandleFunc("POST /draft/rows/{id}", s.handleUpdateRow)
	mux.HandleFunc("DELETE /draft/rows/{id}", s.handleRemoveRow)
	mux.HandleFunc("POST /draft/reset", s.handleResetDraft)

	// Only submission is limited. Draft edits fire on every keystroke pause.
	submit := s.rateLimiter.Middleware(s.detector.ExtractClientIP)(http.HandlerFunc(s.handleSubmitReport))
	mux.Handle("POST /reports", submit)

	mux.HandleFunc("GET /api/draft", s.handleAPIDraft)
	mux.HandleFunc("GET /api/payload", s.handleAPIPayload)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"label": func(field string) string { return fieldLabels[field] },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
