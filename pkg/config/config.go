// Package config loads and validates the TOML configuration file.
// Every field has a default; a missing file yields a fully usable config.
// Credentials never live in the file; they come from the environment.
package config

import (
	"fmt"
	"time"
)

// Config is the umbrella configuration object returned by Load and handed
// to components by explicit dependency.
type Config struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`

	AI        AIConfig        `toml:"ai"`
	Server    ServerConfig    `toml:"server"`
	Fetch     FetchConfig     `toml:"fetch"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Sources   SourcesConfig   `toml:"sources"`
}

// SourcesConfig names the external endpoints the sync pulls from. The
// platform URLs are operator-specific and default to empty, which leaves
// result syncing disabled until configured.
type SourcesConfig struct {
	PlatformURL string `toml:"platform_url"`
	MirrorURL   string `toml:"mirror_url"` // raw list text endpoint
	BalanceURL  string `toml:"balance_url"`
}

// AIConfig selects and tunes the LLM backend.
type AIConfig struct {
	Backend        string `toml:"backend"`  // "anthropic" or "openai-compat"
	BaseURL        string `toml:"base_url"` // openai-compat only
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// Timeout returns the per-call LLM timeout.
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	CORSOrigin string `toml:"cors_origin"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FetchConfig tunes the cached HTTP fetcher.
type FetchConfig struct {
	CacheTTLHours         int   `toml:"cache_ttl_hours"`
	MaxBodyBytes          int64 `toml:"max_body_bytes"`
	RequestTimeoutSeconds int   `toml:"request_timeout_seconds"`
	RequestDelayMillis    int   `toml:"request_delay_ms"`
}

// CacheTTL returns the fetch cache lifetime.
func (f FetchConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLHours) * time.Hour
}

// RequestTimeout returns the per-request HTTP timeout.
func (f FetchConfig) RequestTimeout() time.Duration {
	return time.Duration(f.RequestTimeoutSeconds) * time.Second
}

// RequestDelay returns the inter-request delay between same-host fetches.
func (f FetchConfig) RequestDelay() time.Duration {
	return time.Duration(f.RequestDelayMillis) * time.Millisecond
}

// AnalyticsConfig exposes the domain-tuned heuristics of the analytics
// engine. These are deliberately configuration, not constants.
type AnalyticsConfig struct {
	PriorWeight     int `toml:"prior_weight"`       // Bayesian K for win-rate shrinkage
	TopOnlyMaxRank  int `toml:"top_only_max_rank"`  // survivorship-bias threshold
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`  // snapshot cache lifetime
}

// CacheTTL returns the analytics snapshot cache lifetime.
func (a AnalyticsConfig) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

// Defaults returns a fully populated configuration.
func Defaults() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
		AI: AIConfig{
			Backend:        "anthropic",
			Model:          "claude-sonnet-4-5",
			TimeoutSeconds: 120,
			MaxRetries:     3,
		},
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       8484,
			CORSOrigin: "*",
		},
		Fetch: FetchConfig{
			CacheTTLHours:         24,
			MaxBodyBytes:          50 << 20,
			RequestTimeoutSeconds: 30,
			RequestDelayMillis:    500,
		},
		Analytics: AnalyticsConfig{
			PriorWeight:     40,
			TopOnlyMaxRank:  20,
			CacheTTLSeconds: 60,
		},
		Sources: SourcesConfig{
			BalanceURL: "https://www.warhammer-community.com/en-gb/downloads/warhammer-40000/",
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime. Zero timeouts and a zero port are rejected rather than silently
// defaulted, because they indicate a broken config file.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return &ValidationError{Field: "data_dir", Message: "must not be empty"}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log_level", Message: "must be debug, info, warn, or error"}
	}
	switch c.AI.Backend {
	case "anthropic", "openai-compat":
	default:
		return &ValidationError{Field: "ai.backend", Message: "must be anthropic or openai-compat"}
	}
	if c.AI.Backend == "openai-compat" && c.AI.BaseURL == "" {
		return &ValidationError{Field: "ai.base_url", Message: "required for the openai-compat backend"}
	}
	if c.AI.TimeoutSeconds <= 0 {
		return &ValidationError{Field: "ai.timeout_seconds", Message: "must be positive"}
	}
	if c.AI.MaxRetries < 0 {
		return &ValidationError{Field: "ai.max_retries", Message: "must not be negative"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be in 1..65535"}
	}
	if c.Fetch.RequestTimeoutSeconds <= 0 {
		return &ValidationError{Field: "fetch.request_timeout_seconds", Message: "must be positive"}
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return &ValidationError{Field: "fetch.max_body_bytes", Message: "must be positive"}
	}
	if c.Analytics.PriorWeight < 0 {
		return &ValidationError{Field: "analytics.prior_weight", Message: "must not be negative"}
	}
	if c.Analytics.TopOnlyMaxRank < 0 {
		return &ValidationError{Field: "analytics.top_only_max_rank", Message: "must not be negative"}
	}
	return nil
}

// ValidationError names the offending field so the operator can find it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: field %q %s", e.Field, e.Message)
}
