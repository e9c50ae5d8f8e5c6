package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures portal level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
	Environment string
	LogLevel    string

	// RegistryBaseURL is prefixed to every registry API endpoint.
	RegistryBaseURL string
	// DocumentBaseURL is prefixed to a record's authorization_document path.
	DocumentBaseURL string
	// RegistryTimeout of zero leaves the transport default in place.
	RegistryTimeout time.Duration

	DisplayTimezone    string
	RateLimitPerMinute int
	// TrustedProxies lists CIDRs allowed to set X-Forwarded-For, comma separated.
	TrustedProxies string
	MaxUploadBytes     int64
}

const (
	DefaultAddr            = ":8080"
	DefaultRegistryBaseURL = "https://servertest1.me/api"
	DefaultDocumentBaseURL = "https://servertest1.me/"
	DefaultTimezone        = "America/Tegucigalpa"
	DefaultRateLimit       = 120
	DefaultMaxUploadBytes  = 10 << 20
)

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func FromEnv() Server {
	_ = godotenv.Load()

	cfg := Server{
		Addr:               getEnv("PORTAL_ADDR", DefaultAddr),
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RegistryBaseURL:    getEnv("REGISTRY_BASE_URL", DefaultRegistryBaseURL),
		DocumentBaseURL:    getEnv("DOCUMENT_BASE_URL", DefaultDocumentBaseURL),
		DisplayTimezone:    getEnv("DISPLAY_TIMEZONE", DefaultTimezone),
		TrustedProxies:     os.Getenv("TRUSTED_PROXIES"),
		RateLimitPerMinute: DefaultRateLimit,
		MaxUploadBytes:     DefaultMaxUploadBytes,
	}

	if v := os.Getenv("REGISTRY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.RegistryTimeout = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}

	return cfg
}

// Location resolves DisplayTimezone, falling back to UTC-6 (Honduras, no DST)
// when the zone database is unavailable.
func (s Server) Location() *time.Location {
	if loc, err := time.LoadLocation(s.DisplayTimezone); err == nil {
		return loc
	}
	return time.FixedZone("CST", -6*60*60)
}

// Mock captures configuration of the in-memory registry used for local runs and tests.
type Mock struct {
	Addr           string
	Environment    string
	LogLevel       string
	MaxUploadBytes int64
}

// DefaultMockAddr is where the mock registry listens by default.
const DefaultMockAddr = ":8081"

// MockFromEnv builds the mock registry config, loading .env the same way FromEnv does.
func MockFromEnv() Mock {
	_ = godotenv.Load()

	cfg := Mock{
		Addr:           getEnv("REGISTRY_MOCK_ADDR", DefaultMockAddr),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
