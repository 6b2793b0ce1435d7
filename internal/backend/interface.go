package backend

import (
	"context"

	"cafereport/internal/draft"
	"cafereport/internal/reporting"
	"cafereport/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthCheck reports whether a dependency is usable. Used by /readyz.
type HealthCheck func(ctx context.Context) error

// BackendResult holds everything the server needs from the outside world
type BackendResult struct {
	Drafts draft.Repository
	Sink   reporting.Sink
	// Events is nil when AMQP is not configured or unreachable at startup.
	Events  services.EventPublisher
	Checks  map[string]HealthCheck
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates the draft repository, report sink and event publisher
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
