// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrDestinationBucketRequired is returned when DESTINATION_BUCKET is not set.
	ErrDestinationBucketRequired = errors.New("config: DESTINATION_BUCKET is required")
	// ErrInvalidFrameRate is returned when FRAMERATE is not a positive integer.
	ErrInvalidFrameRate = errors.New("config: FRAMERATE must be a positive integer")
	// ErrInvalidUploadConcurrency is returned when UPLOAD_CONCURRENCY is not positive.
	ErrInvalidUploadConcurrency = errors.New("config: UPLOAD_CONCURRENCY must be positive")
	// ErrInvalidExtractionTimeout is returned when EXTRACTION_TIMEOUT is negative.
	ErrInvalidExtractionTimeout = errors.New("config: EXTRACTION_TIMEOUT must not be negative")
	// ErrUnknownStorageProvider is returned when STORAGE_PROVIDER is not s3, minio or local.
	ErrUnknownStorageProvider = errors.New("config: STORAGE_PROVIDER must be one of s3, minio, local")
	// ErrMinioEndpointRequired is returned when the minio provider is selected without an endpoint.
	ErrMinioEndpointRequired = errors.New("config: MINIO_ENDPOINT is required for the minio provider")
	// ErrNoAllowedTypes is returned when ALLOWED_TYPES resolves to an empty list.
	ErrNoAllowedTypes = errors.New("config: ALLOWED_TYPES must not be empty")
)

// Storage providers.
const (
	ProviderS3    = "s3"
	ProviderMinio = "minio"
	ProviderLocal = "local"
)

// Config holds all configuration for the application.
type Config struct {
	// Pipeline settings
	DestinationBucket string        `env:"DESTINATION_BUCKET, required" json:"destination_bucket" validate:"required"`
	FrameRate         int           `env:"FRAMERATE, default=1" json:"frame_rate" validate:"min=1"`
	AllowedTypes      []string      `env:"ALLOWED_TYPES, default=mov,mpg,mpeg,mp4,wmv,avi,webm" json:"allowed_types" validate:"min=1"`
	UploadConcurrency int           `env:"UPLOAD_CONCURRENCY, default=8" json:"upload_concurrency" validate:"min=1"`
	ExtractionTimeout time.Duration `env:"EXTRACTION_TIMEOUT, default=0s" json:"extraction_timeout" validate:"gte=0"`
	FailOnNonZeroExit bool          `env:"FAIL_ON_NONZERO_EXIT, default=false" json:"fail_on_nonzero_exit"`

	// Declared by the deployment but not applied by any stage yet.
	AllowedResolutions []string `env:"ALLOWED_RESOLUTIONS" json:"allowed_resolutions,omitempty"`
	Width              int      `env:"WIDTH" json:"width,omitempty"`
	Height             int      `env:"HEIGHT" json:"height,omitempty"`

	// Tool settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Workspace settings
	ScratchDir         string `env:"SCRATCH_DIR" json:"scratch_dir,omitempty"`
	ScratchAllowShared bool   `env:"SCRATCH_ALLOW_SHARED, default=false" json:"scratch_allow_shared"`

	// Storage settings
	StorageProvider    string `env:"STORAGE_PROVIDER, default=s3" json:"storage_provider" validate:"oneof=s3 minio local"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	MinioEndpoint      string `env:"MINIO_ENDPOINT" json:"minio_endpoint,omitempty" validate:"required_if=StorageProvider minio"`
	MinioUseSSL        bool   `env:"MINIO_USE_SSL, default=true" json:"minio_use_ssl"`
	LocalStoreRoot     string `env:"LOCAL_STORE_ROOT, default=./data" json:"local_store_root"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig
// and validates the result.
func Load() (*Config, error) {
	return LoadWithLookuper(envconfig.OsLookuper())
}

// LoadWithLookuper is like Load but reads variables from the given lookuper.
// The local CLI uses it to layer flags over the environment.
func LoadWithLookuper(l envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	})
	if err != nil {
		// Map envconfig errors to our domain errors for required fields
		if errors.Is(err, envconfig.ErrMissingRequired) && strings.Contains(err.Error(), "DESTINATION_BUCKET") {
			return nil, ErrDestinationBucketRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.AllowedTypes = trimList(cfg.AllowedTypes)
	cfg.AllowedResolutions = trimList(cfg.AllowedResolutions)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and maps the first failure to a
// sentinel error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("config: %w", err)
	}

	switch verrs[0].Field() {
	case "DestinationBucket":
		return ErrDestinationBucketRequired
	case "FrameRate":
		return ErrInvalidFrameRate
	case "AllowedTypes":
		return ErrNoAllowedTypes
	case "UploadConcurrency":
		return ErrInvalidUploadConcurrency
	case "ExtractionTimeout":
		return ErrInvalidExtractionTimeout
	case "StorageProvider":
		return ErrUnknownStorageProvider
	case "MinioEndpoint":
		return ErrMinioEndpointRequired
	default:
		return fmt.Errorf("config: %w", err)
	}
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for CloudWatch.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DestinationBucket: %s, FrameRate: %d, AllowedTypes: %v, UploadConcurrency: %d, ExtractionTimeout: %s, FailOnNonZeroExit: %t, FFmpegPath: %s, FFprobePath: %s, ScratchDir: %s, StorageProvider: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.DestinationBucket,
		c.FrameRate,
		c.AllowedTypes,
		c.UploadConcurrency,
		c.ExtractionTimeout,
		c.FailOnNonZeroExit,
		c.FFmpegPath,
		c.FFprobePath,
		c.ScratchDir,
		c.StorageProvider,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// trimList drops surrounding whitespace and empty entries, so
// "a , b,," becomes [a b].
func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
