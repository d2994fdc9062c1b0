package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/shopspring/decimal"

	"apfeed/internal/logger"
)

// ErrInvalidSettings is returned when configuration values are out of range.
var ErrInvalidSettings = errors.New("invalid settings")

// ValidationError describes one rejected configuration value.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets callers match ErrInvalidSettings.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidSettings
}

type Config struct {
	// Feed files
	SettingsPath string
	FeedDir      string
	ArchiveDir   string
	InputDir     string
	ParseWorkers int

	// Acquisitions REST API
	AlmaAPIURL   string
	AlmaAPIKey   string
	AlmaPageSize int
	FetchWorkers int

	// Ledger
	LedgerDatabaseURL string
	LedgerQuery       string

	// Reconciliation
	AmountTolerance decimal.Decimal

	// OpenAI conflict resolution
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Sheets report
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		SettingsPath:         getEnv("APFEED_SETTINGS", "apfeed.yaml"),
		FeedDir:              getEnv("APFEED_DIR", "apfeed"),
		ArchiveDir:           getEnv("APFEED_ARCHIVE_DIR", "archive"),
		InputDir:             getEnv("APFEED_INPUT_DIR", "xml"),
		ParseWorkers:         getEnvInt("PARSE_WORKERS", runtime.NumCPU()),
		AlmaAPIURL:           getEnv("ALMA_API_URL", "https://api-na.hosted.exlibrisgroup.com/almaws/v1"),
		AlmaAPIKey:           getEnv("ALMA_API_KEY", ""),
		AlmaPageSize:         getEnvInt("ALMA_PAGE_SIZE", 100),
		FetchWorkers:         getEnvInt("FETCH_WORKERS", 20),
		LedgerDatabaseURL:    getEnv("LEDGER_DATABASE_URL", ""),
		LedgerQuery:          getEnv("LEDGER_QUERY", ""),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "apfeed"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	tolerance, err := decimal.NewFromString(getEnv("AMOUNT_TOLERANCE", "0"))
	if err != nil {
		return nil, &ValidationError{Field: "AMOUNT_TOLERANCE", Value: os.Getenv("AMOUNT_TOLERANCE"), Message: "is not a decimal"}
	}
	config.AmountTolerance = tolerance

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ParseWorkers <= 0 {
		return &ValidationError{Field: "PARSE_WORKERS", Value: c.ParseWorkers, Message: "must be positive"}
	}
	if c.FetchWorkers <= 0 {
		return &ValidationError{Field: "FETCH_WORKERS", Value: c.FetchWorkers, Message: "must be positive"}
	}
	if c.AlmaPageSize <= 0 || c.AlmaPageSize > 100 {
		return &ValidationError{Field: "ALMA_PAGE_SIZE", Value: c.AlmaPageSize, Message: "must be between 1 and 100"}
	}
	if c.AmountTolerance.IsNegative() {
		return &ValidationError{Field: "AMOUNT_TOLERANCE", Value: c.AmountTolerance, Message: "must not be negative"}
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
