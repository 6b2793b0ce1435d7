package backend

import (
	"fmt"
	"time"

	"cafereport/internal/config"
)

// DraftType selects where the draft is persisted
type DraftType string

// ReportType selects where submitted reports go
type ReportType string

const (
	SQLiteDrafts DraftType = config.DraftBackendSQLite
	MemoryDrafts DraftType = config.DraftBackendMemory

	WebhookReports ReportType = config.ReportBackendWebhook
	SheetsReports  ReportType = config.ReportBackendSheets
	MemoryReports  ReportType = config.ReportBackendMemory
)

// IsValid returns true if the draft type is known
func (t DraftType) IsValid() bool {
	return t == SQLiteDrafts || t == MemoryDrafts
}

// IsValid returns true if the report type is known
func (t ReportType) IsValid() bool {
	switch t {
	case WebhookReports, SheetsReports, MemoryReports:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Drafts  DraftType
	Reports ReportType

	// SQLite drafts
	SQLiteDBPath string
	DraftKey     string

	// Webhook reports
	WebhookGetURL  string
	WebhookPostURL string
	WebhookTimeout time.Duration

	// Google Sheets reports
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Optional submission events
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	endpoints := appConfig.Endpoints()
	cfg := Config{
		Drafts:  DraftType(appConfig.DraftBackend),
		Reports: ReportType(appConfig.ReportBackend),

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DraftKey:     appConfig.DraftKey,

		WebhookGetURL:  endpoints.Get,
		WebhookPostURL: endpoints.Post,
		WebhookTimeout: appConfig.WebhookTimeout,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Drafts.IsValid() {
		return fmt.Errorf("invalid draft backend: %s", c.Drafts)
	}
	if !c.Reports.IsValid() {
		return fmt.Errorf("invalid report backend: %s", c.Reports)
	}

	if c.Drafts == SQLiteDrafts && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite drafts")
	}

	switch c.Reports {
	case WebhookReports:
		if c.WebhookPostURL == "" {
			return fmt.Errorf("webhook POST URL is required for webhook reports")
		}
	case SheetsReports:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets reports")
		}
		serviceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		oauthClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		oauthToken := c.GoogleOAuthTokenJSON != "" || c.GoogleOAuthTokenFile != ""
		if !serviceAccount && !(oauthClient && oauthToken) {
			return fmt.Errorf("service account or OAuth credentials are required for sheets reports")
		}
	}

	return nil
}
