// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Default file locations.
const (
	ClientSecretFile = "data/client_secret.json"
	TokenFile        = "data/token.json"
	SQLiteFile       = "data/spendwise.db"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// Store selects the store driver: memory, sqlite or postgres.
	// Environment variable: SPENDWISE_STORE
	Store string `koanf:"SPENDWISE_STORE"`

	// SQLitePath is the database file for the sqlite driver.
	// Environment variable: SQLITE_PATH
	SQLitePath string `koanf:"SQLITE_PATH"`

	// PostgreSQL configuration for the postgres driver.
	Postgres PostgresConfig `koanf:",squash"`

	// HTTPAddr is the listen address of the API server.
	// Environment variable: HTTP_ADDR
	HTTPAddr string `koanf:"HTTP_ADDR"`

	// JWTSecret signs and verifies bearer tokens (HS256).
	// Environment variable: JWT_SECRET
	JWTSecret string `koanf:"JWT_SECRET"`

	// CORSOrigin is the comma-separated list of allowed browser origins.
	// Environment variable: CORS_ORIGIN
	CORSOrigin string `koanf:"CORS_ORIGIN"`

	// WriteRateLimit caps write requests per owner per minute. Zero disables it.
	// Environment variable: WRITE_RATE_LIMIT
	WriteRateLimit int `koanf:"WRITE_RATE_LIMIT"`

	// SMSTimezone is the IANA zone SMS dates are interpreted in.
	// Environment variable: SMS_TIMEZONE
	SMSTimezone string `koanf:"SMS_TIMEZONE"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	// Environment variable: LOG_LEVEL
	LogLevel string `koanf:"LOG_LEVEL"`

	// LogJSON switches log output to JSON.
	// Environment variable: LOG_JSON
	LogJSON bool `koanf:"LOG_JSON"`

	// Google OAuth files used by the Gmail importer and Sheets exporter.
	// Environment variables: GOOGLE_CLIENT_SECRET_FILE, GOOGLE_TOKEN_FILE
	ClientSecretFile string `koanf:"GOOGLE_CLIENT_SECRET_FILE"`
	TokenFile        string `koanf:"GOOGLE_TOKEN_FILE"`

	// GmailQuery selects the messages imported by gmail-import.
	// Environment variable: GMAIL_QUERY
	GmailQuery string `koanf:"GMAIL_QUERY"`

	// GSheetsTitle is the title for a new Google Sheet (used when creating).
	// Environment variable: GSHEETS_TITLE
	GSheetsTitle string `koanf:"GSHEETS_TITLE"`

	// GSheetsID is the ID of an existing Google Sheet to use.
	// Environment variable: GSHEETS_ID
	GSheetsID string `koanf:"GSHEETS_ID"`

	// GSheetsName is the name of the sheet/tab within the spreadsheet.
	// Environment variable: GSHEETS_NAME
	GSheetsName string `koanf:"GSHEETS_NAME"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN             string        `koanf:"POSTGRES_DSN"`
	Host            string        `koanf:"POSTGRES_HOST"`
	Port            int           `koanf:"POSTGRES_PORT"`
	Database        string        `koanf:"POSTGRES_DB"`
	User            string        `koanf:"POSTGRES_USER"`
	Password        string        `koanf:"POSTGRES_PASSWORD"`
	SSLMode         string        `koanf:"POSTGRES_SSLMODE"`
	MaxPoolSize     int           `koanf:"POSTGRES_MAX_POOL_SIZE"`
	ConnectAttempts uint          `koanf:"POSTGRES_CONNECT_ATTEMPTS"`
	ConnectDelay    time.Duration `koanf:"POSTGRES_CONNECT_DELAY"`
}

// Defaults returns the configuration used when no variables are set.
func Defaults() Config {
	return Config{
		Store:            "sqlite",
		SQLitePath:       SQLiteFile,
		HTTPAddr:         ":8080",
		CORSOrigin:       "*",
		WriteRateLimit:   60,
		SMSTimezone:      "UTC",
		LogLevel:         "INFO",
		ClientSecretFile: ClientSecretFile,
		TokenFile:        TokenFile,
		GmailQuery:       "is:unread",
	}
}

// Load reads the given dotenv files (missing files are skipped) and then the
// process environment on top of Defaults. Variables already set in the
// environment win over dotenv values.
func Load(dotenvFiles ...string) (Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Location resolves SMSTimezone.
func (c Config) Location() (*time.Location, error) {
	if c.SMSTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.SMSTimezone)
	if err != nil {
		return nil, fmt.Errorf("SMS_TIMEZONE: %w", err)
	}
	return loc, nil
}
