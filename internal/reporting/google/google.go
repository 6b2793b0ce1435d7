// Package google stores submitted reports as rows of a Google Sheet and reads
// the previous total back from the last row.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cafereport/internal/core"
	"cafereport/internal/log"
	"cafereport/internal/reporting"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var _ reporting.Sink = (*Client)(nil)

// Options configure the Sheets sink.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials, inline JSON or a file path.
	CredentialsJSON string
	CredentialsFile string
	// OAuth user credentials, used when no service account is given.
	// The token is produced by cmd/sheets-auth.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account or an
// OAuth user token.
func New(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Reports"
	}

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets Service from whichever credentials opts carries.
func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	clientOpt, err := credentialsOption(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx, clientOpt, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// Submit appends the report as one row of the reports sheet.
func (c *Client) Submit(ctx context.Context, p core.ReportPayload) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, err := reportRow(p)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report to %s: %w", c.sheetName, err)
	}

	updated := ""
	if resp.Updates != nil {
		updated = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Report appended to sheet",
		log.FieldOperation, log.OpSubmit,
		log.FieldReportDate, p.Date,
		"range", updated)
	return nil
}

// PreviousTotal returns the total of the last report in the sheet.
func (c *Client) PreviousTotal(ctx context.Context) core.PreviousTotal {
	if c.svc == nil {
		return core.NoPreviousTotal
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read previous total",
			log.FieldOperation, log.OpPreviousTotal,
			log.FieldError, err)
		return core.NoPreviousTotal
	}
	return parsePreviousTotal(resp.Values)
}
