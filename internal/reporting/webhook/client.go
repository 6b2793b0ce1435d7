// Package webhook talks to the report webhook: a GET endpoint returning the
// previous total and a POST endpoint accepting the report payload.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cafereport/internal/core"
	"cafereport/internal/log"
	"cafereport/internal/reporting"
)

// maxErrorBody bounds how much of a failed response is kept for logs.
const maxErrorBody = 512

var _ reporting.Sink = (*Client)(nil)

// ErrNoEndpoint is returned by Submit when no POST URL is configured.
var ErrNoEndpoint = errors.New("webhook endpoint not configured")

// StatusError is returned by Submit when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
}

// Client is the webhook report sink.
type Client struct {
	httpClient *http.Client
	getURL     string
	postURL    string
	logger     *log.Logger
}

// New returns a client for the given endpoints. A zero timeout leaves the
// http.Client without one.
func New(getURL, postURL string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		getURL:     getURL,
		postURL:    postURL,
		logger:     logger.WithComponent(log.ComponentWebhook),
	}
}

// previousTotalEntry is element 0 of the GET response.
type previousTotalEntry struct {
	PreviousIncome json.RawMessage `json:"previous_income"`
}

// PreviousTotal implements reporting.PreviousTotalReader.
func (c *Client) PreviousTotal(ctx context.Context) core.PreviousTotal {
	if c.getURL == "" {
		return core.NoPreviousTotal
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.getURL, nil)
	if err != nil {
		c.warn(ctx, "Failed to build previous total request", err)
		return core.NoPreviousTotal
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.warn(ctx, "Failed to fetch previous total", err)
		return core.NoPreviousTotal
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.warn(ctx, "Previous total endpoint returned an error status",
			&StatusError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)})
		return core.NoPreviousTotal
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.warn(ctx, "Failed to read previous total response", err)
		return core.NoPreviousTotal
	}

	total, err := parsePreviousTotal(body)
	if err != nil {
		c.warn(ctx, "Failed to decode previous total response", err)
		return core.NoPreviousTotal
	}
	return total
}

// parsePreviousTotal reads previous_income from element 0 of a JSON array.
// An empty array, a missing field or a zero value mean there is no total.
func parsePreviousTotal(body []byte) (core.PreviousTotal, error) {
	var entries []previousTotalEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return core.NoPreviousTotal, fmt.Errorf("decode response: %w", err)
	}
	if len(entries) == 0 || len(entries[0].PreviousIncome) == 0 {
		return core.NoPreviousTotal, nil
	}

	raw := entries[0].PreviousIncome
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		// Some sheet-backed webhooks send numbers as strings.
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return core.NoPreviousTotal, nil
		}
		d, ok := core.ParseAmount(s)
		if !ok {
			return core.NoPreviousTotal, nil
		}
		v = d.InexactFloat64()
	}

	if v == 0 {
		return core.NoPreviousTotal, nil
	}
	return core.NewPreviousTotal(v), nil
}

// Submit implements reporting.ReportSubmitter. Any 2xx status is success.
func (c *Client) Submit(ctx context.Context, p core.ReportPayload) error {
	if c.postURL == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.InfoContext(ctx, "Report delivered to webhook",
		log.FieldOperation, log.OpSubmit,
		log.FieldReportDate, p.Date,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (c *Client) warn(ctx context.Context, msg string, err error) {
	c.logger.WarnContext(ctx, msg,
		log.FieldOperation, log.OpPreviousTotal,
		log.FieldEndpoint, c.getURL,
		log.FieldError, err)
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
