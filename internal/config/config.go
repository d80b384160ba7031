// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable; required variables are enforced by must() and missing
// values stop the process at startup.
type Config struct {
	Env       string // application environment (dev/test/prod)
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign JWTs

	// Token lifetimes in days. The shipped defaults mirror the deployed
	// system: access 365, refresh 30. Access outliving refresh is inverted
	// relative to common practice but is kept as-is; override via env if a
	// deployment wants saner values.
	AccessTTLDays  int
	RefreshTTLDays int

	BcryptCost int // bcrypt cost for password hashing
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLDays:  intOr("ACCESS_TOKEN_TTL_DAYS", DefaultAccessTTLDays),
		RefreshTTLDays: intOr("REFRESH_TOKEN_TTL_DAYS", DefaultRefreshTTLDays),
		BcryptCost:     intOr("BCRYPT_COST", 12),
	}
}

// Default token lifetimes, in days.
const (
	DefaultAccessTTLDays  = 365
	DefaultRefreshTTLDays = 30
)

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr returns the integer value of an environment variable, or the default
// when unset. An unparseable value is a fatal configuration error.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
