// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/civicsignal/civicsync/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" mapstructure:"artifacts"`
	Congress   CongressConfig   `yaml:"congress" mapstructure:"congress"`
	OpenStates OpenStatesConfig `yaml:"openstates" mapstructure:"openstates"`
	Legistar   LegistarConfig   `yaml:"legistar" mapstructure:"legistar"`
	Civic      CivicConfig      `yaml:"civic" mapstructure:"civic"`
	Summarize  SummarizeConfig  `yaml:"summarize" mapstructure:"summarize"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Canonical  CanonicalConfig  `yaml:"canonical" mapstructure:"canonical"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ArtifactsConfig configures the raw payload archive.
type ArtifactsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// CongressConfig holds Congress.gov API settings.
type CongressConfig struct {
	Key       string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Congress  int           `yaml:"congress" mapstructure:"congress"`
	PageSize  int           `yaml:"page_size" mapstructure:"page_size"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// OpenStatesConfig holds Open States v3 API settings.
type OpenStatesConfig struct {
	Key          string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Jurisdiction string        `yaml:"jurisdiction" mapstructure:"jurisdiction"`
	PageSize     int           `yaml:"page_size" mapstructure:"page_size"`
	Interval     time.Duration `yaml:"interval" mapstructure:"interval"`
}

// LegistarConfig configures the municipal agenda scraper.
type LegistarConfig struct {
	Portals  []LegistarPortal `yaml:"portals" mapstructure:"portals"`
	Interval time.Duration    `yaml:"interval" mapstructure:"interval"`
}

// LegistarPortal identifies one municipal Legistar site.
type LegistarPortal struct {
	Slug     string `yaml:"slug" mapstructure:"slug"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	CityName string `yaml:"city_name" mapstructure:"city_name"`
}

// CivicConfig holds Google Civic Information API settings for division and
// representative lookup.
type CivicConfig struct {
	Key      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// SummarizeConfig holds Anthropic API settings for plain-language summaries.
// An empty key disables summarization entirely.
type SummarizeConfig struct {
	Key       string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// IngestConfig configures the scheduler and retry behavior.
type IngestConfig struct {
	MaxConcurrent  int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TickInterval   time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// RetryConfig converts the ingest tunables into the retry policy applied to
// every outbound fetch. Zero values fall through to the resilience defaults.
func (c IngestConfig) RetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
	}
}

// CanonicalConfig configures cross-source identity resolution.
type CanonicalConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// ServerConfig configures the trigger/health HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CIVICSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("artifacts.dir", "/var/lib/civicsync/artifacts")
	v.SetDefault("congress.base_url", "https://api.congress.gov/v3")
	v.SetDefault("congress.congress", 119)
	v.SetDefault("congress.page_size", 250)
	v.SetDefault("congress.interval", time.Hour)
	v.SetDefault("openstates.base_url", "https://v3.openstates.org")
	v.SetDefault("openstates.jurisdiction", "az")
	v.SetDefault("openstates.page_size", 20)
	v.SetDefault("openstates.interval", 2*time.Hour)
	v.SetDefault("legistar.interval", 30*time.Minute)
	v.SetDefault("civic.base_url", "https://www.googleapis.com/civicinfo/v2")
	v.SetDefault("civic.cache_ttl", 24*time.Hour)
	v.SetDefault("summarize.model", "claude-haiku-4-5-20251001")
	v.SetDefault("summarize.max_tokens", 1024)
	v.SetDefault("ingest.max_concurrent", 3)
	v.SetDefault("ingest.tick_interval", time.Minute)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.initial_backoff", 500*time.Millisecond)
	v.SetDefault("ingest.max_backoff", 30*time.Second)
	v.SetDefault("canonical.similarity_threshold", 0.85)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
