package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	MarketAPI   MarketAPIConfig  `mapstructure:"market_api"`
	Scheduler   SchedulerConfig  `mapstructure:"scheduler"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Collection  CollectionConfig `mapstructure:"collection"`
	Valuation   ValuationConfig  `mapstructure:"valuation"`
	Cleanup     CleanupConfig    `mapstructure:"cleanup"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	GroupID  string   `mapstructure:"group_id"`
	ClientID string   `mapstructure:"client_id"`
}

type MarketAPIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// SchedulerConfig drives the distributed schedulers. Jobs is keyed by job
// type; each entry carries the cron expression deciding when that job type
// is due.
type SchedulerConfig struct {
	CheckInterval string               `mapstructure:"check_interval"`
	LockTTL       string               `mapstructure:"lock_ttl"`
	Jobs          map[string]JobConfig `mapstructure:"jobs"`
}

type JobConfig struct {
	Cron string `mapstructure:"cron"`
}

type RateLimitConfig struct {
	Key           string `mapstructure:"key"`
	Max           int64  `mapstructure:"max"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	PollInterval  string `mapstructure:"poll_interval"`
}

type CollectionConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type ValuationConfig struct {
	WalletBatchSize int `mapstructure:"wallet_batch_size"`
}

type CleanupConfig struct {
	TickerRetentionHours   int `mapstructure:"ticker_retention_hours"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes"`
}

type MonitoringConfig struct {
	Interval string `mapstructure:"interval"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"scheduler.check_interval", cfg.Scheduler.CheckInterval},
		{"scheduler.lock_ttl", cfg.Scheduler.LockTTL},
		{"rate_limit.poll_interval", cfg.RateLimit.PollInterval},
		{"monitoring.interval", cfg.Monitoring.Interval},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid %s duration: %w", field.name, err)
		}
	}

	if cfg.RateLimit.Max <= 0 {
		return fmt.Errorf("rate_limit.max must be positive, got %d", cfg.RateLimit.Max)
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.window_seconds must be positive, got %d", cfg.RateLimit.WindowSeconds)
	}
	if cfg.Valuation.WalletBatchSize <= 0 {
		return fmt.Errorf("valuation.wallet_batch_size must be positive, got %d", cfg.Valuation.WalletBatchSize)
	}

	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "coinfolio")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Kafka
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "coinfolio-worker")
	viper.SetDefault("kafka.client_id", "coinfolio")

	// Market API
	viper.SetDefault("market_api.base_url", "http://localhost:3001")
	viper.SetDefault("market_api.timeout", 30)

	// Scheduler
	viper.SetDefault("scheduler.check_interval", "10s")
	viper.SetDefault("scheduler.lock_ttl", "30s")
	viper.SetDefault("scheduler.jobs", map[string]JobConfig{
		"asset_data":           {Cron: "0 * * * *"},
		"asset_ticker_data":    {Cron: "*/5 * * * *"},
		"exchange_data":        {Cron: "0 0 * * *"},
		"currency_ticker_data": {Cron: "*/5 * * * *"},
	})

	// Rate limit
	viper.SetDefault("rate_limit.key", "market_api:rate_counter")
	viper.SetDefault("rate_limit.max", 10)
	viper.SetDefault("rate_limit.window_seconds", 60)
	viper.SetDefault("rate_limit.poll_interval", "500ms")

	// Collection
	viper.SetDefault("collection.batch_size", 50)

	// Valuation
	viper.SetDefault("valuation.wallet_batch_size", 100)

	// Cleanup
	viper.SetDefault("cleanup.ticker_retention_hours", 720)
	viper.SetDefault("cleanup.cleanup_interval_minutes", 60)

	// Monitoring
	viper.SetDefault("monitoring.interval", "5m")
}
