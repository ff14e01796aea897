// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package config provides layered configuration for Paperbound.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Media    MediaConfig    `koanf:"media"`
	Events   EventsConfig   `koanf:"events"`
	Digest   DigestConfig   `koanf:"digest"`
	Billing  BillingConfig  `koanf:"billing"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	BaseURL     string        `koanf:"base_url"`    // Public base URL, used in OIDC redirects
	Environment string        `koanf:"environment"` // development or production
}

// APIConfig holds pagination and response limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication, session, and rate limiting settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStore selects the session backend: memory or badger.
	SessionStore     string `koanf:"session_store"`
	SessionStorePath string `koanf:"session_store_path"`

	// Login lockout: lock an account for LockoutDuration after
	// LockoutThreshold consecutive failures.
	LockoutThreshold int           `koanf:"lockout_threshold"`
	LockoutDuration  time.Duration `koanf:"lockout_duration"`

	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
	CORSOrigins       []string `koanf:"cors_origins"`
	TrustedProxies    []string `koanf:"trusted_proxies"`

	// AdminUsername/AdminPassword bootstrap the initial admin account
	// when the users table is empty.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`
	AdminEmail    string `koanf:"admin_email"`

	OIDC   OIDCConfig   `koanf:"oidc"`
	Casbin CasbinConfig `koanf:"casbin"`
}

// OIDCConfig holds optional "sign in with provider" settings.
type OIDCConfig struct {
	Enabled      bool          `koanf:"enabled"`
	IssuerURL    string        `koanf:"issuer_url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	RedirectURL  string        `koanf:"redirect_url"`
	Scopes       []string      `koanf:"scopes"`
	PKCEEnabled  bool          `koanf:"pkce_enabled"`
	JWKSCacheTTL time.Duration `koanf:"jwks_cache_ttl"`
	// UsernameClaims lists claims tried in order when deriving a username.
	UsernameClaims []string `koanf:"username_claims"`
}

// CasbinConfig holds RBAC enforcement settings.
type CasbinConfig struct {
	ModelPath    string        `koanf:"model_path"`
	PolicyPath   string        `koanf:"policy_path"`
	DefaultRole  string        `koanf:"default_role"`
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// MediaConfig holds upload storage settings for covers and comic pages.
type MediaConfig struct {
	Root          string `koanf:"root"`
	MaxCoverBytes int64  `koanf:"max_cover_bytes"`
	MaxPageBytes  int64  `koanf:"max_page_bytes"`
}

// EventsConfig holds the domain event bus settings.
// By default events run over an in-process gochannel pub/sub. When NATS
// is enabled the same router runs over JetStream, optionally against an
// embedded server.
type EventsConfig struct {
	NATSEnabled        bool          `koanf:"nats_enabled"`
	NATSURL            string        `koanf:"nats_url"`
	EmbeddedServer     bool          `koanf:"embedded_server"`
	StoreDir           string        `koanf:"store_dir"`
	DurableName        string        `koanf:"durable_name"`
	RetryCount         int           `koanf:"retry_count"`
	RetryInitialDelay  time.Duration `koanf:"retry_initial_delay"`
	RouterCloseTimeout time.Duration `koanf:"router_close_timeout"`
}

// DigestConfig holds the weekly reading digest scheduler settings.
type DigestConfig struct {
	Enabled       bool          `koanf:"enabled"`
	CheckInterval time.Duration `koanf:"check_interval"`
	Period        time.Duration `koanf:"period"` // Minimum time between digests per user
	BatchSize     int           `koanf:"batch_size"`
}

// BillingConfig holds payment provider settings for membership tiers.
type BillingConfig struct {
	Enabled       bool          `koanf:"enabled"`
	ProviderURL   string        `koanf:"provider_url"`
	APIKey        string        `koanf:"api_key"`
	WebhookSecret string        `koanf:"webhook_secret"`
	Timeout       time.Duration `koanf:"timeout"`
	// RequestsPerSecond caps outbound calls to the provider.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateBilling(); err != nil {
		return err
	}
	return c.validateDigest()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("server environment must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) > 0 && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if c.Server.Environment == "production" && c.Security.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required in production")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive, got %s", c.Security.SessionTimeout)
	}
	if c.Security.SessionStore != "memory" && c.Security.SessionStore != "badger" {
		return fmt.Errorf("session_store must be memory or badger, got %q", c.Security.SessionStore)
	}
	if c.Security.SessionStore == "badger" && c.Security.SessionStorePath == "" {
		return fmt.Errorf("session_store_path is required for the badger session store")
	}
	if c.Security.LockoutThreshold < 0 {
		return fmt.Errorf("lockout_threshold must be non-negative, got %d", c.Security.LockoutThreshold)
	}
	if c.Security.OIDC.Enabled {
		if err := validateHTTPURL(c.Security.OIDC.IssuerURL, "oidc issuer_url"); err != nil {
			return err
		}
		if c.Security.OIDC.ClientID == "" {
			return fmt.Errorf("oidc client_id is required when OIDC is enabled")
		}
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("api default_page_size must be at least 1, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api max_page_size (%d) must be >= default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.NATSEnabled {
		return nil
	}
	if c.Events.NATSURL == "" && !c.Events.EmbeddedServer {
		return fmt.Errorf("events nats_url is required when NATS is enabled without an embedded server")
	}
	if c.Events.EmbeddedServer && c.Events.StoreDir == "" {
		return fmt.Errorf("events store_dir is required for the embedded NATS server")
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("events retry_count must be non-negative, got %d", c.Events.RetryCount)
	}
	return nil
}

func (c *Config) validateBilling() error {
	if !c.Billing.Enabled {
		return nil
	}
	if err := validateHTTPURL(c.Billing.ProviderURL, "billing provider_url"); err != nil {
		return err
	}
	if c.Billing.WebhookSecret == "" {
		return fmt.Errorf("billing webhook_secret is required when billing is enabled")
	}
	if c.Billing.Timeout <= 0 {
		return fmt.Errorf("billing timeout must be positive, got %s", c.Billing.Timeout)
	}
	return nil
}

func (c *Config) validateDigest() error {
	if !c.Digest.Enabled {
		return nil
	}
	if c.Digest.CheckInterval <= 0 {
		return fmt.Errorf("digest check_interval must be positive, got %s", c.Digest.CheckInterval)
	}
	if c.Digest.Period < c.Digest.CheckInterval {
		return fmt.Errorf("digest period (%s) must be >= check_interval (%s)",
			c.Digest.Period, c.Digest.CheckInterval)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// validateHTTPURL validates that a URL is a bare http/https base URL.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
