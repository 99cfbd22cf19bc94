// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package config

import (
	"errors"
	"io/fs"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/parley-chat/parley/internal/provider"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key read from the
// environment, e.g. PARLEY_SERVER_PORT.
const EnvPrefix = "PARLEY"

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Config is the top-level Parley configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Provider      ProviderConfig      `mapstructure:"provider" yaml:"provider"`
	Conversations ConversationsConfig `mapstructure:"conversations" yaml:"conversations"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
	Verbose       bool                `mapstructure:"verbose" yaml:"verbose"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// ProviderConfig configures the remote chat-completion endpoint. An empty
// APIKey selects demo mode.
type ProviderConfig struct {
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url"`
	Model        string        `mapstructure:"model" yaml:"model"`
	SystemPrompt string        `mapstructure:"system_prompt" yaml:"system_prompt"`
	Temperature  float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ConversationsConfig controls retained history.
type ConversationsConfig struct {
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5019)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.model", "gpt-3.5-turbo")
	v.SetDefault("provider.system_prompt", provider.DefaultSystemPrompt)
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.max_tokens", 500)
	v.SetDefault("provider.timeout", 30*time.Second)

	v.SetDefault("conversations.max_turns", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("verbose", false)
}

// SetupEnv enables PARLEY_-prefixed environment overrides. The
// conventional OPENAI_API_KEY and PORT variables are honored as fallbacks.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BindEnv only fails when called without a key.
	_ = v.BindEnv("provider.api_key", EnvPrefix+"_PROVIDER_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
}

// LoadDotEnv copies variables from the given .env files (default ".env")
// into the process environment. Variables already set are left alone and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return parleyerr.Errorf(parleyerr.CodeConfigParseInvalidFormat, "loading %s: %w", path, err)
		}
	}
	return nil
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, parleyerr.Errorf(parleyerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, parleyerr.Errorf(parleyerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Load reads configuration from path (optional) with defaults and
// environment overrides applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, parleyerr.Errorf(parleyerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// Demo reports whether no API key is configured.
func (c *Config) Demo() bool {
	return c.Provider.APIKey == ""
}

// Validate checks the configuration for logical errors, collecting every
// problem rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateProvider()...)
	errs = append(errs, c.validateConversations()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Host == "" {
		errs = append(errs, invalid("config: server.host must not be empty"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, invalid("config: server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, invalid("config: server.read_timeout must be positive, got %s", c.Server.ReadTimeout))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, invalid("config: server.write_timeout must be positive, got %s", c.Server.WriteTimeout))
	}
	for i, origin := range c.Server.CORSOrigins {
		if origin == "" {
			errs = append(errs, invalid("config: server.cors_origins[%d] must not be empty", i))
		}
	}

	return errs
}

func (c *Config) validateProvider() []error {
	var errs []error

	if c.Provider.Model == "" {
		errs = append(errs, invalid("config: provider.model must not be empty"))
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, invalid("config: provider.temperature must be in [0, 2], got %g", c.Provider.Temperature))
	}
	if c.Provider.MaxTokens <= 0 {
		errs = append(errs, invalid("config: provider.max_tokens must be greater than 0, got %d", c.Provider.MaxTokens))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, invalid("config: provider.timeout must be positive, got %s", c.Provider.Timeout))
	}
	if c.Provider.BaseURL != "" {
		u, err := url.Parse(c.Provider.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, invalid("config: provider.base_url must be an absolute http(s) URL, got %q", c.Provider.BaseURL))
		}
	}

	return errs
}

func (c *Config) validateConversations() []error {
	if c.Conversations.MaxTurns <= 0 {
		return []error{invalid("config: conversations.max_turns must be greater than 0, got %d", c.Conversations.MaxTurns)}
	}
	return nil
}

func (c *Config) validateLog() []error {
	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return []error{invalid("config: log.level must be one of [%s], got %q",
			strings.Join(validLogLevels, ", "), c.Log.Level)}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return parleyerr.Errorf(parleyerr.CodeConfigValidateInvalidValue, format, args...)
}
