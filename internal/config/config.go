package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds server configuration.
type Config struct {
	Port           string        `mapstructure:"port"`
	DBPath         string        `mapstructure:"db_path"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "synkr.db")
	v.SetDefault("jwt_secret", "default-secret-change-me")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("max_message_size", 4096)
	v.SetDefault("history_limit", 50)

	v.SetEnvPrefix("SYNKR")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
