// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/paperbound/config.yaml",
	"/etc/paperbound/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/paperbound.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Server: ServerConfig{
			Port:        8460,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			BaseURL:     "",
			Environment: "development",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			JWTSecret:      "",
			SessionTimeout: 24 * time.Hour,

			// Persistent sessions by default so logins survive restarts
			SessionStore:     "badger",
			SessionStorePath: "/data/sessions",

			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,

			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},

			AdminUsername: "",
			AdminPassword: "",
			AdminEmail:    "",

			OIDC: OIDCConfig{
				Enabled:        false,
				Scopes:         []string{"openid", "profile", "email"},
				PKCEEnabled:    true,
				JWKSCacheTTL:   1 * time.Hour,
				UsernameClaims: []string{"preferred_username", "name", "email"},
			},
			Casbin: CasbinConfig{
				ModelPath:    "",
				PolicyPath:   "",
				DefaultRole:  "reader",
				CacheEnabled: true,
				CacheTTL:     5 * time.Minute,
			},
		},
		Media: MediaConfig{
			Root:          "/data/media",
			MaxCoverBytes: 5 << 20,  // 5MB
			MaxPageBytes:  20 << 20, // 20MB
		},
		Events: EventsConfig{
			NATSEnabled:        false, // In-process gochannel bus by default
			NATSURL:            "nats://127.0.0.1:4222",
			EmbeddedServer:     true,
			StoreDir:           "/data/nats/jetstream",
			DurableName:        "paperbound-events",
			RetryCount:         3,
			RetryInitialDelay:  100 * time.Millisecond,
			RouterCloseTimeout: 30 * time.Second,
		},
		Digest: DigestConfig{
			Enabled:       false, // Opt-in
			CheckInterval: time.Hour,
			Period:        7 * 24 * time.Hour,
			BatchSize:     200,
		},
		Billing: BillingConfig{
			Enabled:           false, // Opt-in; all users stay on the free tier when disabled
			ProviderURL:       "",
			APIKey:            "",
			WebhookSecret:     "",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// Names are mapped to koanf paths: JWT_SECRET -> security.jwt_secret
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; split the known slice fields on commas
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"security.oidc.scopes",
	"security.oidc.username_claims",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - JWT_SECRET -> security.jwt_secret
//   - MEDIA_ROOT -> media.root
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",
		"base_url":     "server.base_url",
		"environment":  "server.environment",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Security mappings
		"jwt_secret":         "security.jwt_secret",
		"session_timeout":    "security.session_timeout",
		"session_store":      "security.session_store",
		"session_store_path": "security.session_store_path",
		"lockout_threshold":  "security.lockout_threshold",
		"lockout_duration":   "security.lockout_duration",
		"disable_rate_limit": "security.rate_limit_disabled",
		"cors_origins":       "security.cors_origins",
		"trusted_proxies":    "security.trusted_proxies",
		"admin_username":     "security.admin_username",
		"admin_password":     "security.admin_password",
		"admin_email":        "security.admin_email",

		// OIDC mappings
		"oidc_enabled":         "security.oidc.enabled",
		"oidc_issuer_url":      "security.oidc.issuer_url",
		"oidc_client_id":       "security.oidc.client_id",
		"oidc_client_secret":   "security.oidc.client_secret",
		"oidc_redirect_url":    "security.oidc.redirect_url",
		"oidc_scopes":          "security.oidc.scopes",
		"oidc_pkce_enabled":    "security.oidc.pkce_enabled",
		"oidc_jwks_cache_ttl":  "security.oidc.jwks_cache_ttl",
		"oidc_username_claims": "security.oidc.username_claims",

		// Casbin mappings
		"casbin_model_path":    "security.casbin.model_path",
		"casbin_policy_path":   "security.casbin.policy_path",
		"casbin_default_role":  "security.casbin.default_role",
		"casbin_cache_enabled": "security.casbin.cache_enabled",
		"casbin_cache_ttl":     "security.casbin.cache_ttl",

		// Media mappings
		"media_root":            "media.root",
		"media_max_cover_bytes": "media.max_cover_bytes",
		"media_max_page_bytes":  "media.max_page_bytes",

		// Events mappings
		"events_nats_enabled":   "events.nats_enabled",
		"events_nats_url":       "events.nats_url",
		"events_nats_embedded":  "events.embedded_server",
		"events_store_dir":      "events.store_dir",
		"events_durable_name":   "events.durable_name",
		"events_retry_count":    "events.retry_count",
		"events_retry_delay":    "events.retry_initial_delay",
		"events_close_timeout":  "events.router_close_timeout",

		// Digest mappings
		"digest_enabled":        "digest.enabled",
		"digest_check_interval": "digest.check_interval",
		"digest_period":         "digest.period",
		"digest_batch_size":     "digest.batch_size",

		// Billing mappings
		"billing_enabled":        "billing.enabled",
		"billing_provider_url":   "billing.provider_url",
		"billing_api_key":        "billing.api_key",
		"billing_webhook_secret": "billing.webhook_secret",
		"billing_timeout":        "billing.timeout",
		"billing_rps":            "billing.requests_per_second",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Skip unmapped keys so random environment variables don't pollute config
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for mutex protection when accessing configuration
// during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
