// Package config loads application configuration from config.yaml, .env, and
// VISITLOG_* environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imsight/visitlog/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Kakao   KakaoConfig   `yaml:"kakao" mapstructure:"kakao"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Cleanup CleanupConfig `yaml:"cleanup" mapstructure:"cleanup"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string        `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// KakaoConfig holds Kakao Local API credentials and client tuning.
type KakaoConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	BaseURL             string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec          float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst           int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	AcquireTimeoutSecs  int     `yaml:"acquire_timeout_secs" mapstructure:"acquire_timeout_secs"`
	ConnectTimeoutSecs  int     `yaml:"connect_timeout_secs" mapstructure:"connect_timeout_secs"`
	ResponseTimeoutSecs int     `yaml:"response_timeout_secs" mapstructure:"response_timeout_secs"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// EnrichConfig configures the enrichment pipeline and its worker pool.
type EnrichConfig struct {
	CacheTTLDays        int `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	Workers             int `yaml:"workers" mapstructure:"workers"`
	QueueCapacity       int `yaml:"queue_capacity" mapstructure:"queue_capacity"`
	TransitRadiusMeters int `yaml:"transit_radius_meters" mapstructure:"transit_radius_meters"`
	AmenityRadiusMeters int `yaml:"amenity_radius_meters" mapstructure:"amenity_radius_meters"`
}

// CleanupConfig configures the soft-delete purge sweep.
type CleanupConfig struct {
	IntervalHours int `yaml:"interval_hours" mapstructure:"interval_hours"`
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// Optional .env for local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VISITLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "visitlog.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("kakao.base_url", "https://dapi.kakao.com")
	v.SetDefault("kakao.rate_per_sec", 10)
	v.SetDefault("kakao.rate_burst", 10)
	v.SetDefault("kakao.acquire_timeout_secs", 5)
	v.SetDefault("kakao.connect_timeout_secs", 5)
	v.SetDefault("kakao.response_timeout_secs", 5)
	v.SetDefault("kakao.max_attempts", 4)
	v.SetDefault("enrich.cache_ttl_days", 30)
	v.SetDefault("enrich.workers", 3)
	v.SetDefault("enrich.queue_capacity", 100)
	v.SetDefault("enrich.transit_radius_meters", 1000)
	v.SetDefault("enrich.amenity_radius_meters", 500)
	v.SetDefault("cleanup.interval_hours", 24)
	v.SetDefault("cleanup.retention_days", 30)

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
