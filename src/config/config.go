// Package config loads inbox-agent settings from flags, environment,
// an optional inbox.yaml and built-in defaults, in that precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Protocol-Lattice/inbox-agent/src/models"
	"github.com/Protocol-Lattice/inbox-agent/src/triage"
)

// Config is the full runtime configuration.
type Config struct {
	Provider          string        `mapstructure:"provider" validate:"required,oneof=gemini google genai openai anthropic claude ollama dummy"`
	Model             string        `mapstructure:"model" validate:"required"`
	RefineModel       string        `mapstructure:"refine_model"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" validate:"gt=0"`
	Signature         string        `mapstructure:"signature" validate:"required"`
	Workers           int           `mapstructure:"workers" validate:"min=1,max=64"`
	Feedback          string        `mapstructure:"feedback" validate:"oneof=interactive scripted none"`

	Templates TemplatesConfig `mapstructure:"templates"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Refine    RefineConfig    `mapstructure:"refine"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Log       LogConfig       `mapstructure:"log"`
	Triage    TriageConfig    `mapstructure:"triage"`

	Keys ProviderKeys `mapstructure:"keys"`
}

type TemplatesConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=json yaml sqlite postgres mongo redis"`
	Path          string `mapstructure:"path"`
	DSN           string `mapstructure:"dsn"`
	Database      string `mapstructure:"database"`
	Collection    string `mapstructure:"collection"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"min=0"`
	RedisKey      string `mapstructure:"redis_key"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size" validate:"min=0"`
	TTL  time.Duration `mapstructure:"ttl"`
	Path string        `mapstructure:"path"`
}

type RefineConfig struct {
	Validate bool `mapstructure:"validate"`
}

type OutboxConfig struct {
	Kind   string `mapstructure:"kind" validate:"oneof=console resend"`
	From   string `mapstructure:"from"`
	APIKey string `mapstructure:"api_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type TriageConfig struct {
	Rules []triage.Rule `mapstructure:"rules"`
}

// ProviderKeys are read from the provider's conventional environment
// variables.
type ProviderKeys struct {
	Google     string `mapstructure:"google"`
	OpenAI     string `mapstructure:"openai"`
	Anthropic  string `mapstructure:"anthropic"`
	OllamaHost string `mapstructure:"ollama_host"`
}

// CredentialError is fatal at startup: the configured provider has no key.
type CredentialError struct {
	Provider string
	EnvVars  []string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing credential for provider %q: set %s", e.Provider, strings.Join(e.EnvVars, " or "))
}

// envBindings maps config keys to extra environment variable names.
var envBindings = map[string][]string{
	"keys.google":      {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"keys.openai":      {"OPENAI_API_KEY", "OPENAI_KEY"},
	"keys.anthropic":   {"ANTHROPIC_API_KEY"},
	"keys.ollama_host": {"OLLAMA_HOST"},
	"outbox.api_key":   {"INBOX_OUTBOX_API_KEY", "RESEND_API_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "gemini-1.5-flash")
	v.SetDefault("refine_model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("generation_timeout", models.DefaultTimeout)
	v.SetDefault("signature", "EmailBot")
	v.SetDefault("workers", 1)
	v.SetDefault("feedback", "interactive")

	v.SetDefault("templates.backend", "json")
	v.SetDefault("templates.path", "prompt_templates.json")
	v.SetDefault("templates.dsn", "")
	v.SetDefault("templates.database", "inbox")
	v.SetDefault("templates.collection", "prompt_templates")
	v.SetDefault("templates.redis_addr", "localhost:6379")
	v.SetDefault("templates.redis_password", "")
	v.SetDefault("templates.redis_db", 0)
	v.SetDefault("templates.redis_key", "inbox:prompt_templates")

	v.SetDefault("cache.size", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.path", "")

	v.SetDefault("refine.validate", true)

	v.SetDefault("outbox.kind", "console")
	v.SetDefault("outbox.from", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Options control where Load looks.
type Options struct {
	// ConfigFile overrides the inbox.yaml search.
	ConfigFile string
	// EnvFile is loaded into the process environment if present. Defaults to .env.
	EnvFile string
	// Flags are bound by name; only flags the user set take precedence.
	Flags *pflag.FlagSet
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"provider": "provider",
	"model":    "model",
	"workers":  "workers",
	"feedback": "feedback",
}

// Load resolves the configuration. It does not check credentials; see
// Credential.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("inbox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.inbox")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	switch c.Templates.Backend {
	case "json", "yaml", "sqlite":
		if c.Templates.Path == "" {
			return fmt.Errorf("invalid configuration: templates.path is required for the %s backend", c.Templates.Backend)
		}
	case "postgres", "mongo":
		if c.Templates.DSN == "" {
			return fmt.Errorf("invalid configuration: templates.dsn is required for the %s backend", c.Templates.Backend)
		}
	}
	if c.Outbox.Kind == "resend" && c.Outbox.From == "" {
		return errors.New("invalid configuration: outbox.from is required for resend")
	}
	for i, r := range c.Triage.Rules {
		if len(r.Keywords) == 0 {
			return fmt.Errorf("invalid configuration: triage rule %d (%s) has no keywords", i, r.Name)
		}
		if _, ok := triage.ParseCategory(string(r.Category)); !ok {
			return fmt.Errorf("invalid configuration: triage rule %d (%s) has unknown category %q", i, r.Name, r.Category)
		}
	}
	return nil
}

// Credential returns the API key for the configured provider. A missing key
// for a hosted provider is a *CredentialError.
func (c *Config) Credential() (string, error) {
	var key string
	var vars []string
	switch models.CanonicalProvider(c.Provider) {
	case "gemini", "genai":
		key, vars = c.Keys.Google, envBindings["keys.google"]
	case "openai":
		key, vars = c.Keys.OpenAI, envBindings["keys.openai"]
	case "anthropic":
		key, vars = c.Keys.Anthropic, envBindings["keys.anthropic"]
	default:
		return "", nil
	}
	if strings.TrimSpace(key) == "" {
		return "", &CredentialError{Provider: c.Provider, EnvVars: vars}
	}
	return key, nil
}

// ProviderConfig builds the generation backend settings for model.
func (c *Config) ProviderConfig(model string) (models.ProviderConfig, error) {
	key, err := c.Credential()
	if err != nil {
		return models.ProviderConfig{}, err
	}
	base := c.BaseURL
	if models.CanonicalProvider(c.Provider) == "ollama" && base == "" {
		base = c.Keys.OllamaHost
	}
	if model == "" {
		model = c.Model
	}
	return models.ProviderConfig{
		Provider: c.Provider,
		Model:    model,
		APIKey:   key,
		BaseURL:  base,
	}, nil
}
