// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ RabbitMQConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Server   ServerConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Content  ContentConfig
	Reward   RewardConfig
	Auth     AuthConfig
}

// AuthConfig contains the admin API keys accepted on the X-API-Key
// header. Empty means no admin access.
type AuthConfig struct {
	AdminAPIKeys []string
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RedisConfig contains the Redis connection used by the asynq task queue.
// Leave URL empty to disable background reward minting.
type RedisConfig struct {
	URL string
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration
// for the takedown/refund event stream. Leave Host empty to disable.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// LedgerConfig contains the chain gateway endpoint and credentials.
type LedgerConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ContentConfig contains the S3-compatible content store configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ContentConfig struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	DisableSSL      bool
	MaxUploadBytes  int64
}

// RewardConfig contains the watch-to-earn accrual parameters.
type RewardConfig struct {
	ThresholdSeconds int64
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Reward.ThresholdSeconds <= 0 {
		return nil, fmt.Errorf("reward.thresholdseconds must be positive, got %d", cfg.Reward.ThresholdSeconds)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "str3am")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 30*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis (asynq)
	viper.SetDefault("redis.url", "")

	// RabbitMQ event stream
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "str3am.moderation")
	viper.SetDefault("rabbitmq.queue", "str3am.moderation.takedowns")
	viper.SetDefault("rabbitmq.routingkey", "video.takedown")

	// Ledger gateway
	viper.SetDefault("ledger.baseurl", "http://localhost:8899")
	viper.SetDefault("ledger.apikey", "")
	viper.SetDefault("ledger.timeout", 15*time.Second)

	// Content store
	viper.SetDefault("content.region", "us-east-1")
	viper.SetDefault("content.bucket", "str3am-content")
	viper.SetDefault("content.accesskeyid", "")
	viper.SetDefault("content.secretaccesskey", "")
	viper.SetDefault("content.endpoint", "")
	viper.SetDefault("content.disablessl", false)
	viper.SetDefault("content.maxuploadbytes", int64(100*1024*1024)) // 100MB

	// Reward accrual
	viper.SetDefault("reward.thresholdseconds", 30)

	// Admin auth
	viper.SetDefault("auth.adminapikeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
