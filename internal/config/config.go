package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"finance/internal/core"
)

type Config struct {
	// HTTP Server
	Port      string
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath  string
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret    string
	JWTTTL       time.Duration
	CookieSecure bool

	// Rate limiting
	RateLimitBackend       string
	RedisAddr              string
	RedisPassword          string
	LoginMaxAttempts       int
	LoginWindow            time.Duration
	WriteRequestsPerMinute int

	// Ledger
	ReferenceDate  string
	OpeningBalance string
	CacheTTL       time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleBudgetsSheetName   string
	GooglePotsSheetName      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	ExportInterval           time.Duration
}

var (
	validBackends          = []string{"memory", "sqlite", "mongo"}
	validRateLimitBackends = []string{"memory", "redis"}
)

func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/finance.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "finance"),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTTTL:       getEnvDuration("JWT_TTL", 24*time.Hour),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		RateLimitBackend:       getEnv("RATE_LIMIT_BACKEND", "memory"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		LoginMaxAttempts:       getEnvInt("LOGIN_MAX_ATTEMPTS", 4),
		LoginWindow:            getEnvDuration("LOGIN_WINDOW", 60*time.Second),
		WriteRequestsPerMinute: getEnvInt("WRITE_REQUESTS_PER_MINUTE", 60),

		ReferenceDate:  getEnv("REFERENCE_DATE", ""),
		OpeningBalance: getEnv("OPENING_BALANCE", "0"),
		CacheTTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finance"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_export"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleBudgetsSheetName:   getEnv("GOOGLE_BUDGETS_SHEET_NAME", "Budgets"),
		GooglePotsSheetName:      getEnv("GOOGLE_POTS_SHEET_NAME", "Pots"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		ExportInterval:           getEnvDuration("EXPORT_INTERVAL", 10*time.Minute),
	}

	return cfg
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

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
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
	}

	if c.DataBackend == "mongo" {
		if parsedURL, err := url.Parse(c.MongoURI); err != nil || c.MongoURI == "" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI '%s'", c.MongoURI))
		} else if parsedURL.Scheme != "mongodb" && parsedURL.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", parsedURL.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "Mongo database name cannot be empty when using mongo backend")
		}
	}

	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 characters (set JWT_SECRET)")
	}
	if c.JWTTTL < time.Minute || c.JWTTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid JWT TTL %v: must be between 1 minute and 30 days", c.JWTTTL))
	}

	if !slices.Contains(validRateLimitBackends, c.RateLimitBackend) {
		errors = append(errors, fmt.Sprintf("invalid rate limit backend '%s': must be one of %v", c.RateLimitBackend, validRateLimitBackends))
	}
	if c.RateLimitBackend == "redis" && c.RedisAddr == "" {
		errors = append(errors, "Redis address cannot be empty when using redis rate limit backend")
	}
	if c.LoginMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid login max attempts %d: must be at least 1", c.LoginMaxAttempts))
	}
	if c.LoginWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid login window %v: must be at least 1 second", c.LoginWindow))
	}
	if c.WriteRequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid write requests per minute %d: must be at least 1", c.WriteRequestsPerMinute))
	}

	if c.ReferenceDate != "" {
		if _, err := parseReferenceDate(c.ReferenceDate); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reference date '%s': use RFC3339 or YYYY-MM-DD", c.ReferenceDate))
		}
	}
	if _, err := core.ParseSignedDecimalToCents(c.OpeningBalance); err != nil {
		errors = append(errors, fmt.Sprintf("invalid opening balance '%s': must be a decimal amount", c.OpeningBalance))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleBudgetsSheetName == "" || c.GooglePotsSheetName == "" {
			errors = append(errors, "Google budgets and pots sheet names are required when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Clock returns the reference clock used for bill classification.
// With REFERENCE_DATE set, "now" is pinned to that instant.
func (c *Config) Clock() func() time.Time {
	if c.ReferenceDate != "" {
		if t, err := parseReferenceDate(c.ReferenceDate); err == nil {
			return func() time.Time { return t }
		}
	}
	return time.Now
}

// OpeningBalanceMoney returns OPENING_BALANCE as money, zero when unparsable.
func (c *Config) OpeningBalanceMoney() core.Money {
	cents, err := core.ParseSignedDecimalToCents(c.OpeningBalance)
	if err != nil {
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

func parseReferenceDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
