package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults (no config file)",
			setup: func() {
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Database.Host != "localhost" {
					t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
				}
				if cfg.Database.Port != 5432 {
					t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
				}
				if cfg.Redis.URL != "" {
					t.Errorf("Redis.URL = %s, want empty", cfg.Redis.URL)
				}
				if cfg.RabbitMQ.Host != "" {
					t.Errorf("RabbitMQ.Host = %s, want empty", cfg.RabbitMQ.Host)
				}
				if cfg.Reward.ThresholdSeconds != 30 {
					t.Errorf("Reward.ThresholdSeconds = %d, want 30", cfg.Reward.ThresholdSeconds)
				}
				if cfg.Content.MaxUploadBytes != 100*1024*1024 {
					t.Errorf("Content.MaxUploadBytes = %d, want 100MB", cfg.Content.MaxUploadBytes)
				}
				if cfg.Ledger.Timeout != 15*time.Second {
					t.Errorf("Ledger.Timeout = %s, want 15s", cfg.Ledger.Timeout)
				}
				if len(cfg.Auth.AdminAPIKeys) != 0 {
					t.Errorf("Auth.AdminAPIKeys = %v, want empty", cfg.Auth.AdminAPIKeys)
				}
			},
		},
		{
			name: "load with environment variables",
			setup: func() {
				viper.Reset()
				viper.SetEnvPrefix("APP")
				viper.AutomaticEnv()
				os.Setenv("APP_SERVER_PORT", "9090")
				os.Setenv("APP_DATABASE_HOST", "testdb")
				os.Setenv("APP_REDIS_URL", "redis://localhost:6379")
				os.Setenv("APP_REWARD_THRESHOLDSECONDS", "60")
				// Manually bind env vars since AutomaticEnv doesn't work with nested keys
				viper.BindEnv("server.port", "APP_SERVER_PORT")
				viper.BindEnv("database.host", "APP_DATABASE_HOST")
				viper.BindEnv("redis.url", "APP_REDIS_URL")
				viper.BindEnv("reward.thresholdseconds", "APP_REWARD_THRESHOLDSECONDS")
			},
			cleanup: func() {
				os.Unsetenv("APP_SERVER_PORT")
				os.Unsetenv("APP_DATABASE_HOST")
				os.Unsetenv("APP_REDIS_URL")
				os.Unsetenv("APP_REWARD_THRESHOLDSECONDS")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Database.Host != "testdb" {
					t.Errorf("Database.Host = %s, want testdb", cfg.Database.Host)
				}
				if cfg.Redis.URL != "redis://localhost:6379" {
					t.Errorf("Redis.URL = %s, want redis://localhost:6379", cfg.Redis.URL)
				}
				if cfg.Reward.ThresholdSeconds != 60 {
					t.Errorf("Reward.ThresholdSeconds = %d, want 60", cfg.Reward.ThresholdSeconds)
				}
			},
		},
		{
			name: "rejects non-positive reward threshold",
			setup: func() {
				viper.Reset()
				os.Setenv("APP_REWARD_THRESHOLDSECONDS", "0")
				viper.BindEnv("reward.thresholdseconds", "APP_REWARD_THRESHOLDSECONDS")
			},
			cleanup: func() {
				os.Unsetenv("APP_REWARD_THRESHOLDSECONDS")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.cleanup()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
