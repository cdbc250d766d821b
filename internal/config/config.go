package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix               = "QUILL"
	defaultHTTPAddress      = "0.0.0.0:8080"
	defaultDatabasePath     = "quill.db"
	defaultLogLevel         = "info"
	defaultTokenTTLMinutes  = 30
	defaultPageLimit        = 100
	defaultMaxPageLimit     = 1000
	defaultLoginRateLimit   = 10
	defaultCORSOrigin       = "*"
	defaultCacheTTLSeconds  = 300
	defaultConnectAttempts  = 5
	defaultConnectBackoffMS = 2000
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	SigningSecret   string
	TokenTTL        time.Duration
	CORSOrigins     []string
	RedisURL        string
	LogLevel        string
	PageLimit       int
	MaxPageLimit    int
	AuthRateLimit   int
	CacheTTL        time.Duration
	ConnectAttempts int
	ConnectBackoff  time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.connect_attempts", defaultConnectAttempts)
	configViper.SetDefault("database.connect_backoff_ms", defaultConnectBackoffMS)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("cors.origins", defaultCORSOrigin)
	configViper.SetDefault("redis.url", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("page.default_limit", defaultPageLimit)
	configViper.SetDefault("page.max_limit", defaultMaxPageLimit)
	configViper.SetDefault("auth.rate_limit_per_minute", defaultLoginRateLimit)
	configViper.SetDefault("cache.ttl_seconds", defaultCacheTTLSeconds)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		TokenTTL:        time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		CORSOrigins:     splitOrigins(configViper.GetString("cors.origins")),
		RedisURL:        configViper.GetString("redis.url"),
		LogLevel:        configViper.GetString("log.level"),
		PageLimit:       configViper.GetInt("page.default_limit"),
		MaxPageLimit:    configViper.GetInt("page.max_limit"),
		AuthRateLimit:   configViper.GetInt("auth.rate_limit_per_minute"),
		CacheTTL:        time.Duration(configViper.GetInt("cache.ttl_seconds")) * time.Second,
		ConnectAttempts: configViper.GetInt("database.connect_attempts"),
		ConnectBackoff:  time.Duration(configViper.GetInt("database.connect_backoff_ms")) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if c.PageLimit <= 0 || c.MaxPageLimit < c.PageLimit {
		return fmt.Errorf("page limits must satisfy 0 < default <= max")
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
