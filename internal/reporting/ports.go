// Package reporting defines where finished reports go and where the previous
// period's total comes from.
package reporting

import (
	"context"

	"cafereport/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportSubmitter delivers a validated report. A nil error means the
	// receiver confirmed it; there is no retry.
	ReportSubmitter interface {
		Submit(ctx context.Context, p core.ReportPayload) error
	}

	// PreviousTotalReader fetches the prior period's total. Failures are
	// reported as an absent total, never as an error.
	PreviousTotalReader interface {
		PreviousTotal(ctx context.Context) core.PreviousTotal
	}

	// Sink is a backend that both accepts reports and knows the previous total.
	Sink interface {
		ReportSubmitter
		PreviousTotalReader
	}
)
