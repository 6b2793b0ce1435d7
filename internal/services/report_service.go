package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"cafereport/internal/amqp"
	"cafereport/internal/cache"
	"cafereport/internal/core"
	"cafereport/internal/draft"
	"cafereport/internal/log"
	"cafereport/internal/reporting"
)

// absentPreviousTTL keeps an absent previous total around briefly so a
// transient outage doesn't hide the panel for the full TTL.
const (
	absentPreviousTTL = 30 * time.Second
	previousTotalKey  = "previous_total"
)

var (
	// ErrSubmitInFlight is returned while another submission is running.
	ErrSubmitInFlight = errors.New("a report submission is already in progress")
	// ErrDeliveryFailed wraps any failure of the report sink.
	ErrDeliveryFailed = errors.New("report delivery failed")
)

// DraftStore is the part of the draft store the service needs.
type DraftStore interface {
	Get() core.ReportDraft
	ResetIfUnchanged(ctx context.Context, snapshot core.ReportDraft) (core.ReportDraft, error)
}

// EventPublisher announces delivered reports.
type EventPublisher interface {
	PublishReportSubmitted(ctx context.Context, msg *amqp.ReportSubmittedMessage) error
}

// SubmitResult describes a submission attempt.
type SubmitResult struct {
	// Snapshot is the draft that was validated and, on success, delivered.
	// It is set for validation failures too.
	Snapshot core.ReportDraft
	Payload  core.ReportPayload
	Total    decimal.Decimal
	// Draft is the draft after delivery: the default draft, or the edited
	// draft when DraftChanged is set.
	Draft core.ReportDraft
	// DraftChanged is set when the draft was edited while the report was in
	// flight. Those edits were not sent and the draft was kept.
	DraftChanged bool
	// ResetErr is set when the report was delivered but the draft could not be cleared.
	ResetErr error
}

// Metrics are the service's counters.
type Metrics struct {
	Submitted        int64
	ValidationFailed int64
	DeliveryFailed   int64
	Rejected         int64
	EventsPublished  int64
	EventsFailed     int64
}

// ReportService validates the current draft, delivers it to the report sink,
// clears the draft once delivery is confirmed and announces the result.
type ReportService struct {
	drafts   DraftStore
	builder  *core.ReportBuilder
	sink     reporting.ReportSubmitter
	previous reporting.PreviousTotalReader
	events   EventPublisher
	backend  string
	logger   *log.Logger

	previousCache *cache.Loader[core.PreviousTotal]
	previousTTL   time.Duration

	inFlight atomic.Bool
	metrics  Metrics
}

// Options configure a ReportService. Events, Caches and Logger are optional.
type Options struct {
	Drafts      DraftStore
	Builder     *core.ReportBuilder
	Sink        reporting.ReportSubmitter
	Previous    reporting.PreviousTotalReader
	Events      EventPublisher
	Backend     string
	PreviousTTL time.Duration
	// Caches sweeps expired previous totals in the background.
	Caches *cache.Manager
	Logger *log.Logger
}

func NewReportService(opts Options) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	ttl := opts.PreviousTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	previous := cache.NewLRUCache[core.PreviousTotal](1, ttl)
	if opts.Caches != nil {
		opts.Caches.Register(previous)
	}
	return &ReportService{
		drafts:        opts.Drafts,
		builder:       opts.Builder,
		sink:          opts.Sink,
		previous:      opts.Previous,
		events:        opts.Events,
		backend:       opts.Backend,
		logger:        logger.WithComponent(log.ComponentReport),
		previousCache: cache.NewLoader[core.PreviousTotal](previous),
		previousTTL:   ttl,
	}
}

// Preview validates the current draft and returns the payload that would be sent.
func (s *ReportService) Preview() (core.ReportPayload, error) {
	return s.builder.Build(s.drafts.Get())
}

// InFlight reports whether a submission is running.
func (s *ReportService) InFlight() bool {
	return s.inFlight.Load()
}

// Submit delivers the current draft. Validation failures return a
// *core.ValidationError and make no network call. Sink failures wrap
// ErrDeliveryFailed and keep the draft. The draft is reset only after the
// sink confirmed delivery, and only if it was not edited in the meantime.
func (s *ReportService) Submit(ctx context.Context) (SubmitResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		atomic.AddInt64(&s.metrics.Rejected, 1)
		return SubmitResult{}, ErrSubmitInFlight
	}
	defer s.inFlight.Store(false)

	d := s.drafts.Get()
	payload, err := s.builder.Build(d)
	if err != nil {
		atomic.AddInt64(&s.metrics.ValidationFailed, 1)
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			s.logger.InfoContext(ctx, "Report rejected by validation",
				log.FieldOperation, log.OpValidate,
				log.FieldIssues, len(verr.Issues))
		}
		return SubmitResult{Snapshot: d}, err
	}
	total := core.CalculateTotal(d)

	if err := s.sink.Submit(ctx, payload); err != nil {
		atomic.AddInt64(&s.metrics.DeliveryFailed, 1)
		fields := log.NewFields().
			WithReport(payload.Date, len(payload.Expenses), total.StringFixed(2)).
			WithErrorType(log.ErrorTypeNetwork)
		fields[log.FieldBackend] = s.backend
		log.NewStructuredLogger(s.logger).LogError(ctx, "Report delivery failed", err, log.ComponentReport, log.OpSubmit, fields)
		return SubmitResult{Snapshot: d}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	atomic.AddInt64(&s.metrics.Submitted, 1)

	res := SubmitResult{Snapshot: d, Payload: payload, Total: total}
	res.Draft, err = s.drafts.ResetIfUnchanged(ctx, d)
	switch {
	case errors.Is(err, draft.ErrDraftChanged):
		res.DraftChanged = true
		s.logger.InfoContext(ctx, "Draft edited during submission, keeping it",
			log.FieldOperation, log.OpReset,
			log.FieldRowCount, len(res.Draft.Rows))
	case err != nil:
		res.ResetErr = err
		s.logger.ErrorContext(ctx, "Report delivered but draft reset failed",
			log.FieldOperation, log.OpReset,
			log.FieldError, err)
	}

	s.previousCache.Forget(previousTotalKey)
	s.publish(ctx, payload)

	log.NewStructuredLogger(s.logger).LogReportSubmitted(ctx, payload.Date, len(payload.Expenses), total.StringFixed(2), s.backend)
	return res, nil
}

func (s *ReportService) publish(ctx context.Context, p core.ReportPayload) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReportSubmitted(ctx, amqp.NewReportSubmittedMessage(p, s.backend)); err != nil {
		atomic.AddInt64(&s.metrics.EventsFailed, 1)
		s.logger.WarnContext(ctx, "Failed to publish report submitted event",
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
		return
	}
	atomic.AddInt64(&s.metrics.EventsPublished, 1)
}

// PreviousTotal returns the prior period's total, cached. Absence is a
// normal result, not an error.
func (s *ReportService) PreviousTotal(ctx context.Context) core.PreviousTotal {
	if s.previous == nil {
		return core.NoPreviousTotal
	}
	return s.previousCache.GetOrLoad(ctx, previousTotalKey, func(ctx context.Context) (core.PreviousTotal, time.Duration) {
		pt := s.previous.PreviousTotal(ctx)
		if !pt.Present {
			s.logger.DebugContext(ctx, "No previous total available", log.FieldOperation, log.OpPreviousTotal)
			return pt, absentPreviousTTL
		}
		return pt, s.previousTTL
	})
}

// Metrics returns a snapshot of the counters.
func (s *ReportService) Metrics() Metrics {
	return Metrics{
		Submitted:        atomic.LoadInt64(&s.metrics.Submitted),
		ValidationFailed: atomic.LoadInt64(&s.metrics.ValidationFailed),
		DeliveryFailed:   atomic.LoadInt64(&s.metrics.DeliveryFailed),
		Rejected:         atomic.LoadInt64(&s.metrics.Rejected),
		EventsPublished:  atomic.LoadInt64(&s.metrics.EventsPublished),
		EventsFailed:     atomic.LoadInt64(&s.metrics.EventsFailed),
	}
}
