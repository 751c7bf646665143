package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredVariables(t *testing.T) {
	t.Run("missing DESTINATION_BUCKET returns error", func(t *testing.T) {
		_, err := LoadWithLookuper(envconfig.MapLookuper(map[string]string{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDestinationBucketRequired)
	})

	t.Run("all required variables present succeeds", func(t *testing.T) {
		cfg, err := LoadWithLookuper(envconfig.MapLookuper(map[string]string{
			"DESTINATION_BUCKET": "frames-bucket",
		}))
		require.NoError(t, err)
		assert.Equal(t, "frames-bucket", cfg.DestinationBucket)
	})
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DESTINATION_BUCKET", "env-bucket")
	t.Setenv("FRAMERATE", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-bucket", cfg.DestinationBucket)
	assert.Equal(t, 2, cfg.FrameRate)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithLookuper(envconfig.MapLookuper(map[string]string{
		"DESTINATION_BUCKET": "frames-bucket",
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.FrameRate)
	assert.Equal(t, []string{"mov", "mpg", "mpeg", "mp4", "wmv", "avi", "webm"}, cfg.AllowedTypes)
	assert.Equal(t, 8, cfg.UploadConcurrency)
	assert.Equal(t, time.Duration(0), cfg.ExtractionTimeout)
	assert.False(t, cfg.FailOnNonZeroExit)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Empty(t, cfg.ScratchDir)
	assert.False(t, cfg.ScratchAllowShared)
	assert.Equal(t, ProviderS3, cfg.StorageProvider)
	assert.Equal(t, "./data", cfg.LocalStoreRoot)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AllowedResolutions)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := LoadWithLookuper(envconfig.MapLookuper(map[string]string{
		"DESTINATION_BUCKET":    "frames-bucket",
		"FRAMERATE":             "5",
		"ALLOWED_TYPES":         "mp4, mov",
		"ALLOWED_RESOLUTIONS":   "1280x720 , 640x480,",
		"WIDTH":                 "1280",
		"HEIGHT":                "720",
		"UPLOAD_CONCURRENCY":    "2",
		"EXTRACTION_TIMEOUT":    "90s",
		"FAIL_ON_NONZERO_EXIT":  "true",
		"FFMPEG_PATH":           "/opt/bin/ffmpeg",
		"FFPROBE_PATH":          "/opt/nodejs/ffprobe",
		"SCRATCH_DIR":           "/custom/scratch",
		"STORAGE_PROVIDER":      "minio",
		"MINIO_ENDPOINT":        "localhost:9000",
		"MINIO_USE_SSL":         "false",
		"AWS_ACCESS_KEY_ID":     "access-key",
		"AWS_SECRET_ACCESS_KEY": "secret-key",
		"LOG_FORMAT":            "json",
		"LOG_LEVEL":             "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.FrameRate)
	assert.Equal(t, []string{"mp4", "mov"}, cfg.AllowedTypes)
	assert.Equal(t, []string{"1280x720", "640x480"}, cfg.AllowedResolutions)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, 2, cfg.UploadConcurrency)
	assert.Equal(t, 90*time.Second, cfg.ExtractionTimeout)
	assert.True(t, cfg.FailOnNonZeroExit)
	assert.Equal(t, "/opt/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/opt/nodejs/ffprobe", cfg.FFprobePath)
	assert.Equal(t, "/custom/scratch", cfg.ScratchDir)
	assert.Equal(t, ProviderMinio, cfg.StorageProvider)
	assert.Equal(t, "localhost:9000", cfg.MinioEndpoint)
	assert.False(t, cfg.MinioUseSSL)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"zero frame rate", map[string]string{"FRAMERATE": "0"}, ErrInvalidFrameRate},
		{"negative frame rate", map[string]string{"FRAMERATE": "-3"}, ErrInvalidFrameRate},
		{"zero upload concurrency", map[string]string{"UPLOAD_CONCURRENCY": "0"}, ErrInvalidUploadConcurrency},
		{"negative timeout", map[string]string{"EXTRACTION_TIMEOUT": "-1s"}, ErrInvalidExtractionTimeout},
		{"unknown provider", map[string]string{"STORAGE_PROVIDER": "gcs"}, ErrUnknownStorageProvider},
		{"minio without endpoint", map[string]string{"STORAGE_PROVIDER": "minio"}, ErrMinioEndpointRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{"DESTINATION_BUCKET": "frames-bucket"}
			for k, v := range tt.env {
				env[k] = v
			}
			_, err := LoadWithLookuper(envconfig.MapLookuper(env))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_InvalidInteger(t *testing.T) {
	// go-envconfig returns an error when parsing fails
	_, err := LoadWithLookuper(envconfig.MapLookuper(map[string]string{
		"DESTINATION_BUCKET": "frames-bucket",
		"FRAMERATE":          "fast",
	}))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DestinationBucket: "bucket",
			FrameRate:         1,
			AllowedTypes:      []string{"mp4"},
			UploadConcurrency: 1,
			StorageProvider:   ProviderLocal,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := valid()
		cfg.DestinationBucket = ""
		assert.ErrorIs(t, cfg.Validate(), ErrDestinationBucketRequired)
	})

	t.Run("empty allowed types", func(t *testing.T) {
		cfg := valid()
		cfg.AllowedTypes = nil
		assert.ErrorIs(t, cfg.Validate(), ErrNoAllowedTypes)
	})
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		DestinationBucket:  "frames-bucket",
		FrameRate:          1,
		ScratchDir:         "/tmp/test",
		StorageProvider:    ProviderS3,
		AWSAccessKeyID:     "access-key",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "frames-bucket")
	assert.Contains(t, str, "/tmp/test")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "access-key")
}

func TestConfig_NewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		cfg := &Config{LogFormat: format, LogLevel: "debug"}
		logger := cfg.NewLogger()
		require.NotNil(t, logger)
		assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
