package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings, loaded from environment variables
// with an optional .env file for local development.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`

	// Maps provider
	YandexMapsAPIKey string `mapstructure:"YANDEX_MAPS_API_KEY"`
	MapsRateLimitRPS int    `mapstructure:"MAPS_RATE_LIMIT_RPS"`

	// Distance/geocode cache
	RedisAddr   string        `mapstructure:"REDIS_ADDR"`
	DistanceTTL time.Duration `mapstructure:"DISTANCE_CACHE_TTL"`
	GeocodeTTL  time.Duration `mapstructure:"GEOCODE_CACHE_TTL"`

	// Notifications
	TelegramBotToken string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	CheckInterval    time.Duration `mapstructure:"CALL_CHECK_INTERVAL"`

	// Email (SES)
	AWSRegion string `mapstructure:"AWS_REGION"`
	FromEmail string `mapstructure:"FROM_EMAIL"`

	// Google OAuth
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
}

// LoadConfig reads configuration from the given directory's .env file (if
// present) and the process environment, environment taking precedence.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MAPS_RATE_LIMIT_RPS", 5)
	viper.SetDefault("DISTANCE_CACHE_TTL", 15*time.Minute)
	viper.SetDefault("GEOCODE_CACHE_TTL", 30*24*time.Hour)
	viper.SetDefault("CALL_CHECK_INTERVAL", 30*time.Second)
	viper.SetDefault("AWS_REGION", "eu-central-1")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read .env: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	return &cfg, nil
}
