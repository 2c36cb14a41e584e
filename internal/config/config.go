package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventSubject     string
	JWTSecret        string
	SummaryCacheTTL  time.Duration
	ImportRateLimit  int
	ImportRateWindow time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Aalto Grades API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject", "grades")
	v.SetDefault("summary.cache_ttl", "5m")
	v.SetDefault("import.rate_limit", 5)
	v.SetDefault("import.rate_window", "1m")

	ttl, err := time.ParseDuration(v.GetString("summary.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid summary cache ttl: %w", err)
	}
	window, err := time.ParseDuration(v.GetString("import.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid import rate window: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventSubject:     v.GetString("events.subject"),
		JWTSecret:        v.GetString("jwt.secret"),
		SummaryCacheTTL:  ttl,
		ImportRateLimit:  v.GetInt("import.rate_limit"),
		ImportRateWindow: window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ImportRateLimit <= 0 {
		cfg.ImportRateLimit = 5
	}

	return cfg, nil
}
