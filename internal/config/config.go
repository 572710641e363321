// Package config provides configuration loading and validation for the gate API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Store backend identifiers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all configuration values for the gate API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Persistence
	StoreBackend string `koanf:"store_backend"` // "memory" or "postgres"
	DatabaseURL  string `koanf:"database_url"`  // required when store_backend=postgres

	// Staff authentication
	JWTSecret         string `koanf:"jwt_secret"`
	DashboardUser     string `koanf:"dashboard_user"`
	DashboardPassword string `koanf:"dashboard_password"`

	// Redis (optional; backs the rate limiter when set)
	RedisURL string `koanf:"redis_url"`

	// CORS
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Identity photo object storage (S3-compatible; optional)
	PhotoBucketName      string `koanf:"photo_bucket_name"`
	PhotoAccessKeyID     string `koanf:"photo_access_key_id"`
	PhotoSecretAccessKey string `koanf:"photo_secret_access_key"`
	PhotoEndpoint        string `koanf:"photo_endpoint"`
	PhotoMaxUploadSizeMB int    `koanf:"photo_max_upload_size_mb"`

	// Tracing
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	TracingExporter string  `koanf:"tracing_exporter"` // "otlp-http" or "otlp-grpc"
	TracingEndpoint string  `koanf:"tracing_endpoint"`
	TracingSampling float64 `koanf:"tracing_sampling"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret       = errors.New("JWT_SECRET is required")
	ErrMissingDashboardUser   = errors.New("DASHBOARD_USER is required")
	ErrMissingDashboardPass   = errors.New("DASHBOARD_PASSWORD is required")
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
	ErrInvalidStoreBackend    = errors.New("STORE_BACKEND must be \"memory\" or \"postgres\"")
	ErrMissingPhotoBucket     = errors.New("PHOTO_BUCKET_NAME is required")
	ErrMissingPhotoAccessKey  = errors.New("PHOTO_ACCESS_KEY_ID is required")
	ErrMissingPhotoSecretKey  = errors.New("PHOTO_SECRET_ACCESS_KEY is required")
	ErrMissingPhotoEndpoint   = errors.New("PHOTO_ENDPOINT is required")
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
	ErrInvalidTracingSampling = errors.New("TRACING_SAMPLING must be between 0 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort                 = 8080
	DefaultEnv                  = "development"
	DefaultStoreBackend         = StoreMemory
	DefaultPhotoMaxUploadSizeMB = 5
	DefaultTracingExporter      = "otlp-http"
	DefaultTracingSampling      = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	maxUploadSize, uploadSizeErr := getEnvIntOrDefault("PHOTO_MAX_UPLOAD_SIZE_MB", k.Int("photo_max_upload_size_mb"), DefaultPhotoMaxUploadSizeMB)
	if uploadSizeErr != nil {
		loadErrs = append(loadErrs, uploadSizeErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			tracingEnabled = true
		case "false", "0", "no", "off":
			tracingEnabled = false
		}
	}

	sampling, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING", k.Float64("tracing_sampling"), DefaultTracingSampling)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	cfg := &Config{
		Port:                 port,
		Env:                  getEnvOrDefaultMulti([]string{"GATEWATCH_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		StoreBackend:         getEnvOrDefault("STORE_BACKEND", k.String("store_backend"), DefaultStoreBackend),
		DatabaseURL:          getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:            getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		DashboardUser:        getEnvOrKoanf("DASHBOARD_USER", k, "dashboard_user"),
		DashboardPassword:    getEnvOrKoanf("DASHBOARD_PASSWORD", k, "dashboard_password"),
		RedisURL:             getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		CORSAllowedOrigins:   getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		PhotoBucketName:      getEnvOrKoanf("PHOTO_BUCKET_NAME", k, "photo_bucket_name"),
		PhotoAccessKeyID:     getEnvOrKoanf("PHOTO_ACCESS_KEY_ID", k, "photo_access_key_id"),
		PhotoSecretAccessKey: getEnvOrKoanf("PHOTO_SECRET_ACCESS_KEY", k, "photo_secret_access_key"),
		PhotoEndpoint:        getEnvOrKoanf("PHOTO_ENDPOINT", k, "photo_endpoint"),
		PhotoMaxUploadSizeMB: maxUploadSize,
		TracingEnabled:       tracingEnabled,
		TracingExporter:      getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint:      getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSampling:      sampling,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf returns a comma-separated environment variable as a list
// if set, otherwise the koanf string slice.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.DashboardUser == "" {
		errs = append(errs, ErrMissingDashboardUser)
	}
	if c.DashboardPassword == "" {
		errs = append(errs, ErrMissingDashboardPass)
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	default:
		errs = append(errs, ErrInvalidStoreBackend)
	}

	if c.TracingSampling < 0 || c.TracingSampling > 1 {
		errs = append(errs, ErrInvalidTracingSampling)
	}

	// Photo storage is optional. Only validate fields if any photo value is set.
	if c.PhotoBucketName != "" || c.PhotoAccessKeyID != "" || c.PhotoSecretAccessKey != "" || c.PhotoEndpoint != "" {
		if c.PhotoBucketName == "" {
			errs = append(errs, ErrMissingPhotoBucket)
		}
		if c.PhotoAccessKeyID == "" {
			errs = append(errs, ErrMissingPhotoAccessKey)
		}
		if c.PhotoSecretAccessKey == "" {
			errs = append(errs, ErrMissingPhotoSecretKey)
		}
		if c.PhotoEndpoint == "" {
			errs = append(errs, ErrMissingPhotoEndpoint)
		}
	}

	return errs
}

// PhotoStorageConfigured reports whether the identity photo bucket is configured.
func (c *Config) PhotoStorageConfigured() bool {
	return c.PhotoBucketName != "" && c.PhotoAccessKeyID != "" &&
		c.PhotoSecretAccessKey != "" && c.PhotoEndpoint != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"store_backend":            c.StoreBackend,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":               maskSecret(c.JWTSecret),
		"dashboard_user":           c.DashboardUser,
		"dashboard_password":       maskSecret(c.DashboardPassword),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"cors_allowed_origins":     strings.Join(c.CORSAllowedOrigins, ","),
		"photo_bucket_name":        c.PhotoBucketName,
		"photo_access_key_id":      maskSecret(c.PhotoAccessKeyID),
		"photo_secret_access_key":  maskSecret(c.PhotoSecretAccessKey),
		"photo_endpoint":           c.PhotoEndpoint,
		"photo_max_upload_size_mb": fmt.Sprintf("%d", c.PhotoMaxUploadSizeMB),
		"tracing_enabled":          fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":         c.TracingExporter,
		"tracing_endpoint":         c.TracingEndpoint,
		"tracing_sampling":         fmt.Sprintf("%g", c.TracingSampling),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
