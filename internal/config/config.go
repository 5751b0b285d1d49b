// Package config loads application configuration from a TOML file and
// environment variables, then validates it before anything starts.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// devSecret is substituted for an empty JWT secret in development only.
// Validate rejects an empty secret in every other environment.
const devSecret = "intentflow-dev-secret-do-not-deploy"

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	GitHub   GitHubConfig
	Log      LogConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string // development, staging, production
	Port int
	// BaseURL is the externally visible origin of this service, used to
	// build download-file links and the OAuth callback URL.
	BaseURL string
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret      string
	Issuer      string
	AccessTTL   time.Duration
	DownloadTTL time.Duration
}

// GitHubConfig holds the OAuth app credentials for the identity-provider
// login path. Empty ClientID disables the OAuth routes.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string // debug, info, warn, error
}

// Load reads configuration with the following priority, highest first:
//
//  1. environment variables with the INTENTFLOW_ prefix
//     (e.g. INTENTFLOW_JWT_SECRET)
//  2. config.toml in the working directory
//  3. built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars cover everything.
	}

	v.SetEnvPrefix("INTENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetInt("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("jwt.secret"),
			Issuer:      v.GetString("jwt.issuer"),
			AccessTTL:   v.GetDuration("jwt.access_ttl"),
			DownloadTTL: v.GetDuration("jwt.download_ttl"),
		},
		GitHub: GitHubConfig{
			ClientID:     v.GetString("github.client_id"),
			ClientSecret: v.GetString("github.client_secret"),
			CallbackURL:  v.GetString("github.callback_url"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = cfg.App.BaseURL + "/auth/github/callback"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "intentflow")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("database.path", "data/intentflow.db")
	v.SetDefault("jwt.issuer", "intentflow")
	v.SetDefault("jwt.access_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.download_ttl", time.Hour)
	v.SetDefault("log.level", "info")
}

// IsDevelopment reports whether the app is running in the development
// environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// UsingDevSecret reports whether the JWT secret is the development fallback
// rather than an operator-provided value.
func (c *Config) UsingDevSecret() bool {
	return c.JWT.Secret == devSecret
}

// Validate checks the configuration and fills in development-only fallbacks.
//
// The JWT secret is required everywhere except development: a server signing
// tokens with a known default secret would accept forged credentials, so
// startup fails instead. In development an empty secret is replaced with
// devSecret so the server remains runnable out of the box.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.App.Port)
	}

	if c.JWT.Secret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("config: jwt.secret is required in %q environment (set INTENTFLOW_JWT_SECRET)", c.App.Env)
		}
		c.JWT.Secret = devSecret
	}

	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("config: jwt.access_ttl must be positive")
	}
	if c.JWT.DownloadTTL <= 0 {
		return fmt.Errorf("config: jwt.download_ttl must be positive")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}

	return nil
}
