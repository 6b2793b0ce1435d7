package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Environments selecting the webhook endpoint pair.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Draft persistence backends.
const (
	DraftBackendMemory = "memory"
	DraftBackendSQLite = "sqlite"
)

// Report submission backends.
const (
	ReportBackendWebhook = "webhook"
	ReportBackendSheets  = "sheets"
	ReportBackendMemory  = "memory"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Webhook endpoints per environment
	Environment        string
	WebhookDevGetURL   string
	WebhookDevPostURL  string
	WebhookProdGetURL  string
	WebhookProdPostURL string
	WebhookTimeout     time.Duration

	// Draft persistence
	DraftBackend string
	SQLiteDBPath string
	DraftKey     string

	// Report rules
	MinRowAmount decimal.Decimal

	// Report backend selection
	ReportBackend string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// AMQP (optional submission events)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Previous total cache
	PreviousTotalTTL time.Duration

	// Rate limiting
	SubmitRatePerMinute int

	// Extra reverse proxy networks (CIDR) whose forwarding headers are trusted.
	TrustedProxies []string
}

// Endpoints is the pair of webhook URLs the report client talks to.
type Endpoints struct {
	Get  string
	Post string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Environment:        strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		WebhookDevGetURL:   getEnv("WEBHOOK_DEV_GET_URL", ""),
		WebhookDevPostURL:  getEnv("WEBHOOK_DEV_POST_URL", ""),
		WebhookProdGetURL:  getEnv("WEBHOOK_PROD_GET_URL", ""),
		WebhookProdPostURL: getEnv("WEBHOOK_PROD_POST_URL", ""),
		WebhookTimeout:     getEnvDuration("WEBHOOK_TIMEOUT", 15*time.Second),

		DraftBackend: getEnv("DRAFT_BACKEND", DraftBackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cafereport.db"),
		DraftKey:     getEnv("DRAFT_KEY", "cafe-expenses-form-storage"),

		MinRowAmount: getEnvDecimal("MIN_ROW_AMOUNT", decimal.NewFromInt(1)),

		ReportBackend: getEnv("REPORT_BACKEND", ReportBackendWebhook),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Reports"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", "./data/sheets-token.json"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "cafereport"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "report.submitted"),

		PreviousTotalTTL: getEnvDuration("PREVIOUS_TOTAL_TTL", 10*time.Minute),

		SubmitRatePerMinute: getEnvInt("SUBMIT_RATE_PER_MINUTE", 10),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}

	return cfg
}

// Endpoints returns the webhook URLs for the configured environment.
func (c *Config) Endpoints() Endpoints {
	if c.Environment == EnvProduction {
		return Endpoints{Get: c.WebhookProdGetURL, Post: c.WebhookProdPostURL}
	}
	return Endpoints{Get: c.WebhookDevGetURL, Post: c.WebhookDevPostURL}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate environment
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		errors = append(errors, fmt.Sprintf("invalid environment '%s': must be '%s' or '%s'", c.Environment, EnvDevelopment, EnvProduction))
	}

	// Validate draft backend
	switch c.DraftBackend {
	case DraftBackendMemory:
	case DraftBackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite draft backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid draft backend '%s': must be one of %v", c.DraftBackend, []string{DraftBackendMemory, DraftBackendSQLite}))
	}

	if strings.TrimSpace(c.DraftKey) == "" {
		errors = append(errors, "draft key cannot be empty")
	}

	if c.MinRowAmount.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid minimum row amount %s: must not be negative", c.MinRowAmount))
	}

	// Validate report backend
	switch c.ReportBackend {
	case ReportBackendMemory:
	case ReportBackendWebhook:
		endpoints := c.Endpoints()
		if endpoints.Post == "" {
			errors = append(errors, fmt.Sprintf("webhook POST URL is required for the %s environment when using webhook report backend", c.Environment))
		} else if err := validateHTTPURL(endpoints.Post); err != nil {
			errors = append(errors, fmt.Sprintf("invalid webhook POST URL '%s': %v", endpoints.Post, err))
		}
		// The GET endpoint is optional: without it the previous total panel stays hidden.
		if endpoints.Get != "" {
			if err := validateHTTPURL(endpoints.Get); err != nil {
				errors = append(errors, fmt.Sprintf("invalid webhook GET URL '%s': %v", endpoints.Get, err))
			}
		}
	case ReportBackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets report backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets report backend")
		}
		if !c.HasServiceAccount() && !c.HasOAuthCredentials() {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets report backend (or an OAuth client with a token from sheets-auth)")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid report backend '%s': must be one of %v", c.ReportBackend, []string{ReportBackendWebhook, ReportBackendSheets, ReportBackendMemory}))
	}

	if c.WebhookTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid webhook timeout %v: must not be negative", c.WebhookTimeout))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.PreviousTotalTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid previous total TTL %v: must be at least 1 second", c.PreviousTotalTTL))
	}

	if c.SubmitRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid submit rate %d: must be at least 1 per minute", c.SubmitRatePerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR like 10.1.0.0/16", cidr))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(value), ",", ".")); err == nil {
			return d
		}
	}
	return defaultValue
}

// HasServiceAccount reports whether service account credentials are set.
func (c *Config) HasServiceAccount() bool {
	return c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
}

// HasOAuthCredentials reports whether both an OAuth client and a stored
// user token are available. A token file counts only once it exists.
func (c *Config) HasOAuthCredentials() bool {
	client := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
	token := c.GoogleOAuthTokenJSON != ""
	if !token && c.GoogleOAuthTokenFile != "" {
		if _, err := os.Stat(c.GoogleOAuthTokenFile); err == nil {
			token = true
		}
	}
	return client && token
}
