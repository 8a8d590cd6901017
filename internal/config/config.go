package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Backend selection
	DataBackend string

	// Dues schedule
	FeeCents      int
	ScheduleStart string
	ScheduleEnd   string

	// Bootstrap admin allowlist (comma-separated emails)
	AdminEmails string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google OAuth sign-in
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string
	OAuthRedirectURL      string

	// Google Sheets export
	GoogleSpreadsheetID    string
	GoogleRosterSheetName  string
	GoogleSummarySheetName string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/quote.db"),
		DataBackend:  getEnv("DATA_BACKEND", "memory"),

		FeeCents:      getEnvInt("FEE_CENTS", 2500),
		ScheduleStart: getEnv("SCHEDULE_START", "2025-08"),
		ScheduleEnd:   getEnv("SCHEDULE_END", "2028-07"),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),

		// No default broker URL: AMQP is opt-in, and a boot without a
		// broker must not fail at dial time.
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "quote"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "roster_changed"),

		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		OAuthRedirectURL:      getEnv("OAUTH_REDIRECT_URL", ""),

		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleRosterSheetName:  getEnv("GOOGLE_ROSTER_SHEET_NAME", "Roster"),
		GoogleSummarySheetName: getEnv("GOOGLE_SUMMARY_SHEET_NAME", "Summary"),
	}

	return cfg
}

// AdminEmailList returns the bootstrap admin emails, trimmed and
// lowercased, with empty entries dropped.
func (c *Config) AdminEmailList() []string {
	var emails []string
	for _, raw := range strings.Split(c.AdminEmails, ",") {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
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

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate dues configuration
	if c.FeeCents < 1 {
		errors = append(errors, fmt.Sprintf("invalid fee %d: must be at least 1 cent", c.FeeCents))
	}

	start, startErr := time.Parse("2006-01", c.ScheduleStart)
	if startErr != nil {
		errors = append(errors, fmt.Sprintf("invalid schedule start '%s': must be YYYY-MM", c.ScheduleStart))
	}
	end, endErr := time.Parse("2006-01", c.ScheduleEnd)
	if endErr != nil {
		errors = append(errors, fmt.Sprintf("invalid schedule end '%s': must be YYYY-MM", c.ScheduleEnd))
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		errors = append(errors, fmt.Sprintf("invalid schedule: end '%s' is before start '%s'", c.ScheduleEnd, c.ScheduleStart))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate OAuth client file if specified
	if c.GoogleOAuthClientFile != "" {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
