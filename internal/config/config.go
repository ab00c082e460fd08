// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bridge Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	bridgeerr "github.com/bridge-ai/bridge/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Bridge configuration.
type Config struct {
	Networking   NetworkingConfig   `mapstructure:"networking" yaml:"networking"`
	Remote       RemoteConfig       `mapstructure:"remote" yaml:"remote"`
	Local        LocalConfig        `mapstructure:"local" yaml:"local"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity"`
	Sessions     SessionsConfig     `mapstructure:"sessions" yaml:"sessions"`
	Gateway      GatewayConfig      `mapstructure:"gateway" yaml:"gateway"`
	Usage        UsageConfig        `mapstructure:"usage" yaml:"usage"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// NetworkingConfig controls how Bridge listens for connections.
type NetworkingConfig struct {
	Listen         string   `mapstructure:"listen" yaml:"listen"`
	CORSOrigins    []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// RemoteConfig describes the high-capability inference provider.
type RemoteConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LocalConfig describes the local inference engine.
type LocalConfig struct {
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// ConnectivityConfig controls reachability probing and its cache.
type ConnectivityConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	RefreshBudget time.Duration `mapstructure:"refresh_budget" yaml:"refresh_budget"`
	Endpoints     []string      `mapstructure:"endpoints" yaml:"endpoints"`
}

// SessionsConfig controls the in-memory conversation history.
type SessionsConfig struct {
	MaxHistory        int `mapstructure:"max_history" yaml:"max_history"`
	TruncateThreshold int `mapstructure:"truncate_threshold" yaml:"truncate_threshold"`
	TruncateKeep      int `mapstructure:"truncate_keep" yaml:"truncate_keep"`
}

// GatewayConfig controls routing and the fallback relay.
type GatewayConfig struct {
	FirstChunkTimeout   time.Duration `mapstructure:"first_chunk_timeout" yaml:"first_chunk_timeout"`
	MaxQueryLength      int           `mapstructure:"max_query_length" yaml:"max_query_length"`
	SystemPromptOnline  string        `mapstructure:"system_prompt_online" yaml:"system_prompt_online"`
	SystemPromptOffline string        `mapstructure:"system_prompt_offline" yaml:"system_prompt_offline"`
}

// UsageConfig locates the token usage ledger. An empty path disables it.
type UsageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultRemoteEndpoint is the OpenAI-compatible endpoint used when
// remote.endpoint is not set.
const DefaultRemoteEndpoint = "https://api.cerebras.ai/v1"

const (
	DefaultSystemPromptOnline = `You are Bridge (online mode), a capable assistant backed by a remote model.

Give detailed, well-structured answers. Use markdown headers, lists and emphasis
where they help. Include examples and step-by-step explanations when useful.

Respond naturally without commenting on response length.`

	DefaultSystemPromptOffline = `You are Bridge (offline mode), an assistant running on limited local resources.

Keep answers concise and direct. Provide essential information only and keep
code snippets minimal. For complex requests, suggest switching to online mode.

Respond naturally without commenting on response length or completeness.`
)

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8080")
	v.SetDefault("networking.cors_origins", []string{"*"})
	v.SetDefault("networking.rate_limit_rps", 0.0)
	v.SetDefault("networking.rate_limit_burst", 10)

	v.SetDefault("remote.provider", "openai")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.endpoint", DefaultRemoteEndpoint)
	v.SetDefault("remote.model", "llama-3.3-70b")
	v.SetDefault("remote.temperature", 0.8)
	v.SetDefault("remote.max_tokens", 1024)

	v.SetDefault("local.endpoint", "http://localhost:8000/api/local/stream")
	v.SetDefault("local.timeout", 120*time.Second)
	v.SetDefault("local.max_tokens", 512)

	v.SetDefault("connectivity.ttl", 10*time.Second)
	v.SetDefault("connectivity.probe_timeout", 3*time.Second)
	v.SetDefault("connectivity.refresh_budget", 10*time.Second)
	v.SetDefault("connectivity.endpoints", []string{
		"https://www.google.com",
		"https://1.1.1.1",
		"https://8.8.8.8",
	})

	v.SetDefault("sessions.max_history", 8)
	v.SetDefault("sessions.truncate_threshold", 300)
	v.SetDefault("sessions.truncate_keep", 250)

	v.SetDefault("gateway.first_chunk_timeout", 30*time.Second)
	v.SetDefault("gateway.max_query_length", 8000)
	v.SetDefault("gateway.system_prompt_online", DefaultSystemPromptOnline)
	v.SetDefault("gateway.system_prompt_offline", DefaultSystemPromptOffline)

	v.SetDefault("usage.db_path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SetupEnv binds BRIDGE_ prefixed environment variables, with dots in keys
// replaced by underscores (remote.api_key -> BRIDGE_REMOTE_API_KEY).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix BRIDGE_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, bridgeerr.Errorf(bridgeerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, bridgeerr.Errorf(bridgeerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, bridgeerr.Errorf(bridgeerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It collects every
// problem rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateRemote()...)
	errs = append(errs, c.validateLocal()...)
	errs = append(errs, c.validateConnectivity()...)
	errs = append(errs, c.validateSessions()...)
	errs = append(errs, c.validateGateway()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

// Redacted returns a copy safe to print. A keyring reference is kept as is.
func (c Config) Redacted() Config {
	if c.Remote.APIKey != "" && !strings.HasPrefix(c.Remote.APIKey, "keyring://") {
		c.Remote.APIKey = "********"
	}
	c.Networking.CORSOrigins = append([]string(nil), c.Networking.CORSOrigins...)
	c.Connectivity.Endpoints = append([]string(nil), c.Connectivity.Endpoints...)
	return c
}

func invalid(format string, args ...any) error {
	return bridgeerr.Errorf(bridgeerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("networking.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, invalid("networking.listen must be a valid host:port address, got %q: %w", c.Networking.Listen, err))
		} else if port, err := strconv.Atoi(portStr); err != nil {
			errs = append(errs, invalid("networking.listen port must be a number, got %q", portStr))
		} else if port < 1 || port > 65535 {
			errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %d", port))
		}
	}

	if c.Networking.RateLimitRPS < 0 {
		errs = append(errs, invalid("networking.rate_limit_rps must not be negative, got %g", c.Networking.RateLimitRPS))
	}
	if c.Networking.RateLimitRPS > 0 && c.Networking.RateLimitBurst <= 0 {
		errs = append(errs, invalid("networking.rate_limit_burst must be greater than 0 when rate limiting is enabled, got %d", c.Networking.RateLimitBurst))
	}

	return errs
}

func (c *Config) validateRemote() []error {
	var errs []error

	validProviders := map[string]bool{"openai": true, "anthropic": true, "google": true}
	if !validProviders[c.Remote.Provider] {
		errs = append(errs, invalid("remote.provider must be one of [openai, anthropic, google], got %q", c.Remote.Provider))
	}
	if c.Remote.Model == "" {
		errs = append(errs, invalid("remote.model must not be empty"))
	}
	if c.Remote.Endpoint != "" {
		if err := validateHTTPURL(c.Remote.Endpoint); err != nil {
			errs = append(errs, invalid("remote.endpoint: %w", err))
		}
	}
	if c.Remote.Temperature < 0 || c.Remote.Temperature > 2 {
		errs = append(errs, invalid("remote.temperature must be between 0 and 2, got %g", c.Remote.Temperature))
	}
	if c.Remote.MaxTokens <= 0 {
		errs = append(errs, invalid("remote.max_tokens must be greater than 0, got %d", c.Remote.MaxTokens))
	}

	return errs
}

func (c *Config) validateLocal() []error {
	var errs []error

	if c.Local.Endpoint == "" {
		errs = append(errs, invalid("local.endpoint must not be empty"))
	} else if err := validateHTTPURL(c.Local.Endpoint); err != nil {
		errs = append(errs, invalid("local.endpoint: %w", err))
	}
	if c.Local.Timeout <= 0 {
		errs = append(errs, invalid("local.timeout must be greater than 0, got %s", c.Local.Timeout))
	}
	if c.Local.MaxTokens <= 0 {
		errs = append(errs, invalid("local.max_tokens must be greater than 0, got %d", c.Local.MaxTokens))
	}

	return errs
}

func (c *Config) validateConnectivity() []error {
	var errs []error

	if c.Connectivity.TTL <= 0 {
		errs = append(errs, invalid("connectivity.ttl must be greater than 0, got %s", c.Connectivity.TTL))
	}
	if c.Connectivity.ProbeTimeout <= 0 {
		errs = append(errs, invalid("connectivity.probe_timeout must be greater than 0, got %s", c.Connectivity.ProbeTimeout))
	}
	if c.Connectivity.RefreshBudget < c.Connectivity.ProbeTimeout {
		errs = append(errs, invalid("connectivity.refresh_budget (%s) must be at least connectivity.probe_timeout (%s)",
			c.Connectivity.RefreshBudget, c.Connectivity.ProbeTimeout))
	}
	if len(c.Connectivity.Endpoints) == 0 {
		errs = append(errs, invalid("connectivity.endpoints must list at least one URL"))
	}
	for i, ep := range c.Connectivity.Endpoints {
		if err := validateHTTPURL(ep); err != nil {
			errs = append(errs, invalid("connectivity.endpoints[%d]: %w", i, err))
		}
	}

	return errs
}

func (c *Config) validateSessions() []error {
	var errs []error

	if c.Sessions.MaxHistory <= 0 {
		errs = append(errs, invalid("sessions.max_history must be greater than 0, got %d", c.Sessions.MaxHistory))
	}
	if c.Sessions.TruncateKeep <= 0 {
		errs = append(errs, invalid("sessions.truncate_keep must be greater than 0, got %d", c.Sessions.TruncateKeep))
	}
	if c.Sessions.TruncateThreshold < c.Sessions.TruncateKeep {
		errs = append(errs, invalid("sessions.truncate_threshold (%d) must be at least sessions.truncate_keep (%d)",
			c.Sessions.TruncateThreshold, c.Sessions.TruncateKeep))
	}

	return errs
}

func (c *Config) validateGateway() []error {
	var errs []error

	if c.Gateway.FirstChunkTimeout <= 0 {
		errs = append(errs, invalid("gateway.first_chunk_timeout must be greater than 0, got %s", c.Gateway.FirstChunkTimeout))
	}
	if c.Gateway.MaxQueryLength <= 0 {
		errs = append(errs, invalid("gateway.max_query_length must be greater than 0, got %d", c.Gateway.MaxQueryLength))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, invalid("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}

	return errs
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https, got " + strconv.Quote(u.Scheme))
	}
	if u.Host == "" {
		return errors.New("missing host in " + strconv.Quote(raw))
	}
	return nil
}
