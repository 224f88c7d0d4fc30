// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Grok      GrokConfig      `yaml:"grok" mapstructure:"grok"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Gate      GateConfig      `yaml:"gate" mapstructure:"gate"`
	Quality   QualityConfig   `yaml:"quality" mapstructure:"quality"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// SQLitePath is used when driver is "sqlite".
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns   int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns   int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GrokConfig holds xAI Grok API settings.
type GrokConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ProvidersConfig sets the fallback chain. Order entries name registered
// providers; unknown names fail at startup, not per request.
type ProvidersConfig struct {
	Order []string `yaml:"order" mapstructure:"order"`
	// CallTimeout bounds each individual provider call so a hung upstream
	// cannot hold a generation slot indefinitely.
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
}

// RetryConfig configures per-provider retry behavior.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction float64       `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// GateConfig bounds concurrent generation work.
type GateConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// QualityConfig configures content scoring.
type QualityConfig struct {
	// ConfigPath optionally points at a YAML override for the scoring
	// keyword lists and threshold.
	ConfigPath string `yaml:"config_path" mapstructure:"config_path"`
}

// ExtractConfig configures first-party page extraction.
type ExtractConfig struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	RequestRate float64       `yaml:"request_rate" mapstructure:"request_rate"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host          string   `yaml:"host" mapstructure:"host"`
	Port          int      `yaml:"port" mapstructure:"port"`
	CORSOrigins   []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RatePerSecond float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BIZCLONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "bizclone.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 5)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("grok.model", "grok-4")
	v.SetDefault("providers.order", []string{"anthropic", "gemini", "grok"})
	v.SetDefault("providers.call_timeout", "2m")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("gate.max_concurrent", 5)
	v.SetDefault("extract.enabled", true)
	v.SetDefault("extract.timeout", "8s")
	v.SetDefault("extract.user_agent", "bizclone/1.0")
	v.SetDefault("extract.request_rate", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields the given run mode needs. Modes: "serve" runs
// the HTTP server, "analyze" runs one-shot CLI generation, "migrate" only
// touches the store.
func (c *Config) Validate(mode string) error {
	var problems []string

	needStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required for the sqlite driver")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	needProviders := func() {
		keys := map[string]string{
			"anthropic": c.Anthropic.Key,
			"gemini":    c.Gemini.Key,
			"grok":      c.Grok.Key,
		}
		if len(c.Providers.Order) == 0 {
			problems = append(problems, "providers.order must name at least one provider")
		}
		for _, name := range c.Providers.Order {
			key, known := keys[name]
			if !known {
				problems = append(problems, "providers.order references unknown provider "+name)
				continue
			}
			if key == "" {
				problems = append(problems, name+".key is required when "+name+" is in providers.order")
			}
		}
		if c.Providers.CallTimeout <= 0 {
			problems = append(problems, "providers.call_timeout must be > 0")
		}
		if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
			problems = append(problems, "retry.max_attempts must be between 1 and 10")
		}
		if c.Gate.MaxConcurrent < 1 || c.Gate.MaxConcurrent > 50 {
			problems = append(problems, "gate.max_concurrent must be between 1 and 50")
		}
	}

	switch mode {
	case "serve":
		needStore()
		needProviders()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "analyze":
		needStore()
		needProviders()
	case "migrate":
		needStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
