package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Scan      ScanConfig
	Progress  ProgressConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Environment     string
}

// BackendConfig describes the hosted backend the dashboard talks to.
type BackendConfig struct {
	URL            string
	AnonKey        string
	JWTSecret      string // optional; access tokens are verified when set
	RequestTimeout time.Duration

	RealtimeHeartbeat  time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// ScanConfig contains vulnerability scan settings
type ScanConfig struct {
	NVDResultsLimit   int
	AutoScanEnabled   bool
	AutoScanSchedule  string
	NotifyMinSeverity string
}

// ProgressConfig selects where solution progress documents are kept
type ProgressConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// RateLimitConfig configures the per-client token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// MetricsConfig toggles the prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv reads configuration from the environment without validating it.
// The CLI overlays its own settings before calling Validate.
func FromEnv() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("PORT", getEnvAsInt("SERVER_PORT", 8080)),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Backend: BackendConfig{
			URL:                strings.TrimRight(getEnv("HAWK_BACKEND_URL", ""), "/"),
			AnonKey:            getEnv("HAWK_BACKEND_ANON_KEY", ""),
			JWTSecret:          getEnv("HAWK_BACKEND_JWT_SECRET", ""),
			RequestTimeout:     getEnvAsDuration("HAWK_BACKEND_TIMEOUT", 30*time.Second),
			RealtimeHeartbeat:  getEnvAsDuration("HAWK_REALTIME_HEARTBEAT", 30*time.Second),
			ReconnectBaseDelay: getEnvAsDuration("HAWK_REALTIME_RECONNECT_BASE", time.Second),
			ReconnectMaxDelay:  getEnvAsDuration("HAWK_REALTIME_RECONNECT_MAX", 30*time.Second),
		},
		Scan: ScanConfig{
			NVDResultsLimit:   getEnvAsInt("HAWK_NVD_RESULTS_LIMIT", 10),
			AutoScanEnabled:   getEnvAsBool("AUTO_SCAN_ENABLED", true),
			AutoScanSchedule:  getEnv("AUTO_SCAN_CHECK_SCHEDULE", "@every 15m"),
			NotifyMinSeverity: getEnv("SCAN_NOTIFY_MIN_SEVERITY", "high"),
		},
		Progress: ProgressConfig{
			Driver: getEnv("PROGRESS_DB_DRIVER", "sqlite"),
			DSN:    getEnv("PROGRESS_DB_DSN", "hawk-progress.db"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("HAWK_BACKEND_URL must be set")
	}
	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q", c.Backend.URL)
	}
	if c.Backend.AnonKey == "" {
		return fmt.Errorf("HAWK_BACKEND_ANON_KEY must be set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Scan.NVDResultsLimit <= 0 {
		return fmt.Errorf("HAWK_NVD_RESULTS_LIMIT must be positive, got %d", c.Scan.NVDResultsLimit)
	}

	if c.Progress.Driver != "sqlite" && c.Progress.Driver != "postgres" {
		return fmt.Errorf("unsupported progress database driver: %s", c.Progress.Driver)
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions. Unset or unparsable values fall back to the default.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvAsInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvAsBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, strconv.ParseBool)
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	return parseEnv(key, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
}
