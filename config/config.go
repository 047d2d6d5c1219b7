// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverPG  = "pg"
	DriverPGX = "pgx"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string
	DBDriver    string

	// JWT signing secret (required in production).
	JWTSecret string
	// Operators allowed to mint password hashes, and how long a signin token lasts.
	AdminUsers []string
	TokenTTL   time.Duration

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// Render result times as HH:MM:SS.mmm instead of HH:MM:SS.
	ResultsMillis bool

	// MySQL – used only by cmd/migrate.
	MySQLDSN string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	cfg, err := load(true)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// LoadDB reads only what a database tool needs; JWT_SECRET may be unset.
func LoadDB() *Config {
	cfg, err := load(false)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func load(needJWT bool) (*Config, error) {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "racereg")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "racereg")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_DRIVER", DriverPG)
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("RESULTS_MILLIS", false)
	v.SetDefault("ADMIN_USERS", "admin")
	v.SetDefault("TOKEN_TTL", "720h")

	cfg := &Config{
		DatabaseURL:   v.GetString("DATABASE_URL"),
		DBUser:        v.GetString("DB_USER"),
		DBPass:        v.GetString("DB_PASS"),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBName:        v.GetString("DB_NAME"),
		DBSSLMode:     v.GetString("DB_SSLMODE"),
		DBDriver:      strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		JWTSecret:     v.GetString("JWT_SECRET"),
		AdminUsers:    splitTrimmed(v.GetString("ADMIN_USERS")),
		TokenTTL:      v.GetDuration("TOKEN_TTL"),
		Debug:         v.GetBool("DEBUG"),
		Port:          v.GetString("PORT"),
		TLSDomains:    splitTrimmed(v.GetString("TLS_DOMAINS")),
		ResultsMillis: v.GetBool("RESULTS_MILLIS"),
		MySQLDSN:      v.GetString("MYSQL_DSN"),
	}

	if err := cfg.validate(needJWT); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

func (c *Config) validate(needJWT bool) error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return fmt.Errorf("config: DATABASE_URL or DB_PASS must be set")
	}
	if needJWT && c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must be set")
	}
	if needJWT && c.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be a positive duration")
	}
	if c.DBDriver != DriverPG && c.DBDriver != DriverPGX {
		return fmt.Errorf("config: DB_DRIVER must be %q or %q, got %q", DriverPG, DriverPGX, c.DBDriver)
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
