// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/pkordes/visitbook/internal/domain"
)

// Config holds all configuration values for the server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins for the
	// JSON endpoints. Empty by default: pages are served same-origin.
	CORSOrigins []string

	// SessionSecret signs session tokens. Required.
	SessionSecret string

	// SessionTTL is how long a login stays valid. Defaults to 12h.
	SessionTTL time.Duration

	// VisitPolicy selects append or merge recording. Defaults to append.
	VisitPolicy domain.VisitPolicy

	// ArchiveSchedule is a cron expression for the archival sweep.
	// Empty disables the scheduled sweep.
	ArchiveSchedule string

	// Location defines the calendar day "today" refers to. Defaults to UTC.
	Location *time.Location

	// AutoMigrate applies pending migrations at startup. Defaults to true.
	AutoMigrate bool

	// BootstrapAdminUsername and BootstrapAdminPassword, when both set,
	// create an admin account at startup unless the username exists.
	BootstrapAdminUsername string
	BootstrapAdminPassword string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads an optional .env file from the working directory, then
// configuration from environment variables. Variables already set in the
// environment take precedence over the file.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit env file path. A missing file is not an error.
// Returns one error listing every required variable that is missing and
// every value that failed to parse.
func LoadFrom(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		CORSOrigins:            splitCSV(os.Getenv("CORS_ORIGINS")),
		ArchiveSchedule:        strings.TrimSpace(os.Getenv("ARCHIVE_SCHEDULE")),
		BootstrapAdminUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_USERNAME")),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	var (
		missing []string
		invalid []string
	)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	if !validLogLevel(cfg.LogLevel) {
		invalid = append(invalid, fmt.Sprintf("LOG_LEVEL=%q", cfg.LogLevel))
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil || ttl <= 0 {
		invalid = append(invalid, fmt.Sprintf("SESSION_TTL=%q", os.Getenv("SESSION_TTL")))
	}
	cfg.SessionTTL = ttl

	policy, err := domain.ParseVisitPolicy(getEnv("VISIT_POLICY", string(domain.PolicyAppend)))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("VISIT_POLICY=%q", os.Getenv("VISIT_POLICY")))
	}
	cfg.VisitPolicy = policy

	if cfg.ArchiveSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ArchiveSchedule); err != nil {
			invalid = append(invalid, fmt.Sprintf("ARCHIVE_SCHEDULE=%q", cfg.ArchiveSchedule))
		}
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("TIMEZONE=%q", os.Getenv("TIMEZONE")))
	}
	cfg.Location = loc

	autoMigrate, err := strconv.ParseBool(getEnv("AUTO_MIGRATE", "true"))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("AUTO_MIGRATE=%q", os.Getenv("AUTO_MIGRATE")))
	}
	cfg.AutoMigrate = autoMigrate

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || maxBody <= 0 {
		invalid = append(invalid, fmt.Sprintf("MAX_BODY_BYTES=%q", os.Getenv("MAX_BODY_BYTES")))
	}
	cfg.MaxBodyBytes = maxBody

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid values: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// Today returns the current calendar date in cfg.Location.
func (c Config) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return domain.CivilDate(time.Now().In(loc))
}

func validLogLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
