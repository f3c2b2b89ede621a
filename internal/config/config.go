// Package config loads service configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the service needs at startup.
type Config struct {
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	DBPath string `yaml:"db_path"`

	// FrontendURL is where the OAuth callback redirects after login.
	FrontendURL string `yaml:"frontend_url"`

	// SessionSecret signs the session cookie. Required outside of tests.
	SessionSecret string `yaml:"session_secret"`

	// SyncPageIntervalSeconds paces subscriber page fetches during sync.
	SyncPageIntervalSeconds int `yaml:"sync_page_interval_seconds"`

	Kit KitConfig `yaml:"kit"`
}

// KitConfig holds the Kit API and OAuth endpoints.
type KitConfig struct {
	BaseURL      string `yaml:"base_url"`
	AuthorizeURL string `yaml:"authorize_url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Load reads the YAML file at path (skipped if path is empty or missing),
// applies env overrides, and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	override(&cfg.Host, "HOST")
	override(&cfg.Port, "PORT")
	override(&cfg.DBPath, "DB_PATH")
	override(&cfg.FrontendURL, "FRONTEND_URL")
	override(&cfg.SessionSecret, "SESSION_SECRET")
	override(&cfg.Kit.BaseURL, "KIT_API_BASE_URL")
	override(&cfg.Kit.AuthorizeURL, "OAUTH_AUTHORIZATION_URL")
	override(&cfg.Kit.TokenURL, "OAUTH_TOKEN_URL")
	override(&cfg.Kit.ClientID, "KIT_CLIENT_ID")
	override(&cfg.Kit.ClientSecret, "KIT_CLIENT_SECRET")

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "kitflow.db"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	if cfg.SyncPageIntervalSeconds == 0 {
		cfg.SyncPageIntervalSeconds = 1
	}
	if cfg.Kit.BaseURL == "" {
		cfg.Kit.BaseURL = "https://api.kit.com/v4"
	}
	if cfg.Kit.AuthorizeURL == "" {
		cfg.Kit.AuthorizeURL = "https://app.kit.com/oauth/authorize"
	}
	if cfg.Kit.TokenURL == "" {
		cfg.Kit.TokenURL = "https://api.kit.com/oauth/token"
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// SyncPageInterval returns the page pacing as a duration.
func (c *Config) SyncPageInterval() time.Duration {
	return time.Duration(c.SyncPageIntervalSeconds) * time.Second
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
