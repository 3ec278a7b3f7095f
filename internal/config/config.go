package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// OAuthConfig holds the third-party identity provider client settings.
// Endpoints default to Google's but stay configurable so tests can point at
// a stub provider.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

type Config struct {
	Port          string      `yaml:"port"`
	DatabaseURL   string      `yaml:"database_url"`
	SessionSecret string      `yaml:"session_secret"`
	AdminEmails   []string    `yaml:"admin_emails"`
	CORSOrigins   []string    `yaml:"cors_origins"`
	OAuth         OAuthConfig `yaml:"oauth"`

	// SecureCookies is derived from ENV, never from the file.
	SecureCookies bool `yaml:"-"`
}

const (
	DefaultAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURL    = "https://oauth2.googleapis.com/token"
	DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Load reads the optional CONFIG_FILE YAML, then overlays environment
// variables. Env always wins so a deploy can override a checked-in file.
//
// Environment variables:
//   - PORT (default "5050")
//   - DATABASE_URL
//   - SESSION_SECRET: HMAC key for session tokens (required in production)
//   - ADMIN_EMAILS: comma-separated admin allow-list
//   - CORS_ORIGINS: comma-separated origin allow-list
//   - OAUTH_CLIENT_ID / OAUTH_CLIENT_SECRET / OAUTH_REDIRECT_URL
//   - ENV: "production" enables Secure cookies and strict validation
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	overlay(&cfg.Port, "PORT")
	overlay(&cfg.DatabaseURL, "DATABASE_URL")
	overlay(&cfg.SessionSecret, "SESSION_SECRET")
	overlayList(&cfg.AdminEmails, "ADMIN_EMAILS")
	overlayList(&cfg.CORSOrigins, "CORS_ORIGINS")
	overlay(&cfg.OAuth.ClientID, "OAUTH_CLIENT_ID")
	overlay(&cfg.OAuth.ClientSecret, "OAUTH_CLIENT_SECRET")
	overlay(&cfg.OAuth.RedirectURL, "OAUTH_REDIRECT_URL")

	if cfg.Port == "" {
		cfg.Port = "5050"
	}
	if cfg.OAuth.AuthURL == "" {
		cfg.OAuth.AuthURL = DefaultAuthURL
	}
	if cfg.OAuth.TokenURL == "" {
		cfg.OAuth.TokenURL = DefaultTokenURL
	}
	if cfg.OAuth.UserInfoURL == "" {
		cfg.OAuth.UserInfoURL = DefaultUserInfoURL
	}
	if len(cfg.OAuth.Scopes) == 0 {
		cfg.OAuth.Scopes = []string{"openid", "email", "profile"}
	}

	prod := strings.EqualFold(strings.TrimSpace(os.Getenv("ENV")), "production")
	cfg.SecureCookies = prod
	if prod && cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required in production")
	}

	return cfg, nil
}

func overlay(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func overlayList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
