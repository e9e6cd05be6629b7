package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SearchConfig holds search-provider credentials and retrieval tuning.
type SearchConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	EngineID   string `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	PageSize   int    `yaml:"page_size" mapstructure:"page_size"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
	RatePerSec int    `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds classification-provider settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ScanConfig configures pipeline behavior. These are tunable policy values,
// not correctness constants.
type ScanConfig struct {
	FreshnessDays     int    `yaml:"freshness_days" mapstructure:"freshness_days"`
	ClassifyBatchSize int    `yaml:"classify_batch_size" mapstructure:"classify_batch_size"`
	RetryAttempts     int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBaseMs       int    `yaml:"retry_base_ms" mapstructure:"retry_base_ms"`
	TermsPath         string `yaml:"terms_path" mapstructure:"terms_path"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("RISKSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credentials default to empty so AutomaticEnv can see the
	// keys; viper only maps env vars for keys it already knows about.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "riskscan.db")
	v.SetDefault("search.key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.page_size", 5)
	v.SetDefault("search.batch_size", 3)
	v.SetDefault("search.max_results", 25)
	v.SetDefault("search.rate_per_sec", 5)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("scan.freshness_days", 30)
	v.SetDefault("scan.classify_batch_size", 3)
	v.SetDefault("scan.retry_attempts", 3)
	v.SetDefault("scan.retry_base_ms", 500)
	v.SetDefault("scan.terms_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
