package backend

import (
	"context"
	"errors"
	"fmt"

	"cafereport/internal/amqp"
	"cafereport/internal/draft"
	"cafereport/internal/log"
	"cafereport/internal/reporting"
	gsheet "cafereport/internal/reporting/google"
	"cafereport/internal/reporting/memory"
	"cafereport/internal/reporting/webhook"
	"cafereport/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &BackendResult{Checks: map[string]HealthCheck{}}
	var closers []func() error

	drafts, closeDrafts, err := f.createDraftRepository(config, res)
	if err != nil {
		return nil, err
	}
	res.Drafts = drafts
	if closeDrafts != nil {
		closers = append(closers, closeDrafts)
	}

	sink, err := f.createSink(ctx, config)
	if err != nil {
		runClosers(closers)
		return nil, err
	}
	res.Sink = sink

	// AMQP is optional: a broker that is down at startup must not keep the form offline.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
			res.Events = client
			closers = append(closers, client.Close)
		}
	}

	res.Cleanup = func() error { return runClosers(closers) }
	return res, nil
}

func (f *DefaultFactory) createDraftRepository(config Config, res *BackendResult) (draft.Repository, func() error, error) {
	switch config.Drafts {
	case SQLiteDrafts:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.DraftKey, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Checks["sqlite"] = repo.Ping
		f.logger.Info("Initialized SQLite draft storage", "db_path", config.SQLiteDBPath, log.FieldDraftKey, config.DraftKey)
		return repo, repo.Close, nil
	case MemoryDrafts:
		f.logger.Info("Initialized memory draft storage")
		return draft.NewMemoryRepository(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported draft backend: %s", config.Drafts)
	}
}

func (f *DefaultFactory) createSink(ctx context.Context, config Config) (reporting.Sink, error) {
	switch config.Reports {
	case WebhookReports:
		f.logger.Info("Initialized webhook report backend",
			"previous_total_enabled", config.WebhookGetURL != "",
			"timeout", config.WebhookTimeout.String())
		return webhook.New(config.WebhookGetURL, config.WebhookPostURL, config.WebhookTimeout, f.logger), nil
	case SheetsReports:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets report backend", "sheet", config.GoogleSheetName)
		return cli, nil
	case MemoryReports:
		f.logger.Info("Initialized memory report backend")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported report backend: %s", config.Reports)
	}
}

func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
