// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything main needs to wire the API.
type Config struct {
	Port     string
	GRPCPort string // empty disables the gRPC health server

	MongoURI      string
	MongoDatabase string

	JWTSecret    string
	JWTKeys      map[string]string // kid -> secret, used for key rotation
	JWTActiveKid string
	JWTTTL       time.Duration

	AuthRateRPM int // per-key limit on signup/login
	APIRateRPM  int // per-IP limit on all /api routes

	QueryTimeout time.Duration
	QueryRetries int
	Location     *time.Location

	TLSCert     string
	TLSKey      string
	CORSOrigins string

	Log LogConfig
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using the supplied lookup function, which lets
// tests supply a map instead of mutating the process environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	e := env{lookup: lookup}

	cfg := &Config{
		Port:          e.str("PORT", "8080"),
		GRPCPort:      e.str("GRPC_PORT", "50051"),
		MongoURI:      e.str("MONGODB_URI", ""),
		MongoDatabase: e.str("MONGODB_DATABASE", "wasteconnect"),
		JWTSecret:     e.str("JWT_SECRET", ""),
		JWTActiveKid:  e.str("JWT_ACTIVE_KID", ""),
		JWTTTL:        e.duration("JWT_TTL", 24*time.Hour),
		AuthRateRPM:   e.positiveInt("RATE_LIMIT_RPM", 10),
		APIRateRPM:    e.positiveInt("API_RATE_LIMIT_RPM", 100),
		QueryTimeout:  e.duration("QUERY_TIMEOUT", 5*time.Second),
		QueryRetries:  e.nonNegativeInt("QUERY_RETRIES", 1),
		TLSCert:       e.str("TLS_CERT", ""),
		TLSKey:        e.str("TLS_KEY", ""),
		CORSOrigins:   e.str("CORS_ORIGINS", "*"),
		Log: LogConfig{
			File:       e.str("LOG_FILE", ""),
			MaxSizeMB:  e.positiveInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: e.nonNegativeInt("LOG_MAX_BACKUPS", 30),
			MaxAgeDays: e.nonNegativeInt("LOG_MAX_AGE_DAYS", 90),
			Compress:   e.bool("LOG_COMPRESS", true),
		},
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI must be set")
	}

	keys, err := parseKeys(e.str("JWT_KEYS", ""))
	if err != nil {
		return nil, err
	}
	cfg.JWTKeys = keys
	if len(cfg.JWTKeys) == 0 && cfg.JWTSecret == "" {
		return nil, errors.New("either JWT_SECRET or JWT_KEYS must be set")
	}
	if len(cfg.JWTKeys) > 0 {
		if cfg.JWTActiveKid == "" {
			return nil, errors.New("JWT_ACTIVE_KID must be set when JWT_KEYS is used")
		}
		if _, ok := cfg.JWTKeys[cfg.JWTActiveKid]; !ok {
			return nil, fmt.Errorf("JWT_ACTIVE_KID %q not present in JWT_KEYS", cfg.JWTActiveKid)
		}
	}

	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, errors.New("TLS_CERT and TLS_KEY must be set together")
	}

	tz := e.str("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// TLSEnabled reports whether certificate files were configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// parseKeys parses "kid:secret,kid2:secret2".
func parseKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

type env struct {
	lookup func(string) (string, bool)
}

func (e env) str(key, fallback string) string {
	if value, exists := e.lookup(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (e env) positiveInt(key string, fallback int) int {
	if n, err := strconv.Atoi(e.str(key, "")); err == nil && n > 0 {
		return n
	}
	return fallback
}

func (e env) nonNegativeInt(key string, fallback int) int {
	if n, err := strconv.Atoi(e.str(key, "")); err == nil && n >= 0 {
		return n
	}
	return fallback
}

func (e env) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.str(key, "")); err == nil && d > 0 {
		return d
	}
	return fallback
}

func (e env) bool(key string, fallback bool) bool {
	switch strings.ToLower(e.str(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
