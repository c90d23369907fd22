package config

import (
	"fmt"
	"time"

	"github.com/skillsenselab/voicediag/logger"
)

// Config is the root configuration for the voice diagnostic service.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging    logger.Config    `yaml:"logging" mapstructure:"logging"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`
	Tracing    TracingConfig    `yaml:"tracing" mapstructure:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// DatabaseConfig contains the session store settings.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StorageConfig contains audio artifact storage settings.
type StorageConfig struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// FFmpegConfig contains transcoder settings.
type FFmpegConfig struct {
	Binary      string        `yaml:"binary" mapstructure:"binary"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

// ClassifierConfig locates the frozen model artifact.
type ClassifierConfig struct {
	ArtifactPath string `yaml:"artifact_path" mapstructure:"artifact_path"`
}

// LLMConfig contains settings for the narrative analysis backend.
// When APIKey is empty the service falls back to a deterministic mock.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EnrichmentConfig controls the background analysis worker.
type EnrichmentConfig struct {
	QueueSize      int           `yaml:"queue_size" mapstructure:"queue_size"`
	HistoryLimit   int           `yaml:"history_limit" mapstructure:"history_limit"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
}

// TracingConfig contains OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig contains OpenTelemetry metric exporter settings.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// AuthConfig contains bearer token verification settings.
// Token issuance belongs to the identity service, not this one.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// ApplyDefaults applies default values to all sections.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "voicediag"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/voicediag.db"
	}
	if c.Storage.BasePath == "" {
		c.Storage.BasePath = "data/audio"
	}

	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	if c.FFmpeg.Timeout == 0 {
		c.FFmpeg.Timeout = 60 * time.Second
	}
	if c.FFmpeg.GracePeriod == 0 {
		c.FFmpeg.GracePeriod = 5 * time.Second
	}

	if c.Classifier.ArtifactPath == "" {
		c.Classifier.ArtifactPath = "models/voice_classifier.json"
	}

	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 512
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}

	if c.Enrichment.QueueSize == 0 {
		c.Enrichment.QueueSize = 128
	}
	if c.Enrichment.HistoryLimit == 0 {
		c.Enrichment.HistoryLimit = 3
	}
	if c.Enrichment.MaxAttempts == 0 {
		c.Enrichment.MaxAttempts = 3
	}
	if c.Enrichment.InitialBackoff == 0 {
		c.Enrichment.InitialBackoff = time.Second
	}

	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}

	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 30 * time.Second
	}
}

// Validate validates the configuration after defaults are applied.
func (c *Config) Validate() error {
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config.server.port must be in [1, 65535] (got: %d)", c.Server.Port)
	}
	if c.Enrichment.HistoryLimit < 0 {
		return fmt.Errorf("config.enrichment.history_limit must be >= 0 (got: %d)", c.Enrichment.HistoryLimit)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("config.auth.jwt_secret is required when auth is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("config.tracing.endpoint is required when tracing is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Endpoint == "" {
		return fmt.Errorf("config.metrics.endpoint is required when metrics are enabled")
	}
	return nil
}
