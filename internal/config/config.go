// Package config loads the billow daemon configuration with the precedence
// ENV > file > defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds the runtime configuration of the daemon.
type Config struct {
	ListenAddr string `yaml:"listen"`
	DataDir    string `yaml:"data_dir"`

	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`

	JWTSecret        string        `yaml:"jwt_secret"`
	JWTRefreshSecret string        `yaml:"jwt_refresh_secret"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	AuthRateLimit     int `yaml:"auth_rate_limit"`      // requests per window on /auth
	WriteRateLimit    int `yaml:"write_rate_limit"`     // requests per window on write routes
	RateLimitWindowMS int `yaml:"rate_limit_window_ms"` // window size in milliseconds

	FocusTickInterval time.Duration `yaml:"focus_tick_interval"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Version string `yaml:"-"`
}

func defaults(version string) Config {
	return Config{
		ListenAddr:        ":8080",
		DataDir:           "/var/lib/billow",
		LogLevel:          "info",
		LogService:        "billow",
		AccessTokenTTL:    7 * 24 * time.Hour,
		RefreshTokenTTL:   30 * 24 * time.Hour,
		AllowedOrigins:    []string{"http://localhost:5173"},
		AuthRateLimit:     10,
		WriteRateLimit:    100,
		RateLimitWindowMS: 900000,
		FocusTickInterval: time.Second,
		ShutdownTimeout:   10 * time.Second,
		Version:           version,
	}
}

// Validate checks the configuration for fatal misconfigurations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("data directory is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("BILLOW_JWT_SECRET is required")
	}
	if strings.TrimSpace(c.JWTRefreshSecret) == "" {
		return errors.New("BILLOW_JWT_REFRESH_SECRET is required")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.FocusTickInterval <= 0 {
		return fmt.Errorf("focus tick interval must be positive, got %s", c.FocusTickInterval)
	}
	return nil
}

// applyEnv overlays BILLOW_* environment variables onto c.
func (c *Config) applyEnv() {
	c.ListenAddr = ParseString("BILLOW_LISTEN", c.ListenAddr)
	c.DataDir = ParseString("BILLOW_DATA", c.DataDir)
	c.LogLevel = ParseString("BILLOW_LOG_LEVEL", c.LogLevel)
	c.LogService = ParseString("BILLOW_LOG_SERVICE", c.LogService)
	c.JWTSecret = ParseString("BILLOW_JWT_SECRET", c.JWTSecret)
	c.JWTRefreshSecret = ParseString("BILLOW_JWT_REFRESH_SECRET", c.JWTRefreshSecret)
	c.AccessTokenTTL = ParseDuration("BILLOW_ACCESS_TOKEN_TTL", c.AccessTokenTTL)
	c.RefreshTokenTTL = ParseDuration("BILLOW_REFRESH_TOKEN_TTL", c.RefreshTokenTTL)
	if origins := ParseString("BILLOW_ALLOWED_ORIGINS", ""); origins != "" {
		parts := strings.Split(origins, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			c.AllowedOrigins = trimmed
		}
	}
	c.RedisAddr = ParseString("BILLOW_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = ParseString("BILLOW_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = ParseInt("BILLOW_REDIS_DB", c.RedisDB)
	c.AuthRateLimit = ParseInt("BILLOW_AUTH_RATE_LIMIT", c.AuthRateLimit)
	c.WriteRateLimit = ParseInt("BILLOW_WRITE_RATE_LIMIT", c.WriteRateLimit)
	c.RateLimitWindowMS = ParseInt("BILLOW_RATE_LIMIT_WINDOW_MS", c.RateLimitWindowMS)
	c.FocusTickInterval = ParseDuration("BILLOW_FOCUS_TICK_INTERVAL", c.FocusTickInterval)
	c.ShutdownTimeout = ParseDuration("BILLOW_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
}
