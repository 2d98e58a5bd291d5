// Package config loads and validates Rufus configuration from defaults,
// an optional YAML file and RUFUS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ConfigError reports an invalid configuration. It is fatal: no crawl
// starts with a bad config.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid config field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds all application configuration.
type Config struct {
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	Scorer     ScorerConfig     `mapstructure:"scorer"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ExtractionConfig controls chunking, scoring and PDF handling.
type ExtractionConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size" validate:"gt=0"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"gte=0,lte=1"`
	ParsePDFs           bool    `mapstructure:"parse_pdfs"`
}

// CrawlerConfig bounds the crawl and paces the fetcher.
type CrawlerConfig struct {
	MaxDepth       int           `mapstructure:"max_depth" validate:"gte=0"`
	MaxPages       int           `mapstructure:"max_pages" validate:"gt=0"`
	Workers        int           `mapstructure:"workers" validate:"gt=0"`
	StrictDomain   bool          `mapstructure:"strict_domain"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	HostDelay      time.Duration `mapstructure:"host_delay" validate:"gte=0"`
	UserAgent      string        `mapstructure:"user_agent" validate:"required"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
}

// ScorerConfig selects and configures the relevance scorer.
type ScorerConfig struct {
	Kind      string `mapstructure:"kind" validate:"oneof=lexical claude"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Summarize bool   `mapstructure:"summarize"`
}

// OutputConfig selects the synthesizer format.
type OutputConfig struct {
	Format string `mapstructure:"format" validate:"oneof=json csv markdown"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Load reads configuration from defaults, the optional file at configPath
// and the environment, then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("rufus")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.rufus")
	}

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine; defaults and env carry the day.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extraction.chunk_size", 1024)
	v.SetDefault("extraction.similarity_threshold", 0.6)
	v.SetDefault("extraction.parse_pdfs", false)

	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.max_pages", 100)
	v.SetDefault("crawler.workers", 8)
	v.SetDefault("crawler.strict_domain", false)
	v.SetDefault("crawler.request_timeout", "15s")
	v.SetDefault("crawler.host_delay", "1s")
	v.SetDefault("crawler.user_agent", "Rufus/1.0")
	v.SetDefault("crawler.respect_robots", true)

	v.SetDefault("scorer.kind", "lexical")
	v.SetDefault("scorer.model", "claude-3-5-haiku-latest")
	v.SetDefault("scorer.summarize", false)

	v.SetDefault("output.format", "json")
	v.SetDefault("output.path", "")

	v.SetDefault("logging.level", "info")
}

func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("RUFUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("scorer.api_key", "ANTHROPIC_API_KEY")
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return &ConfigError{
				Field: first.Namespace(),
				Err:   fmt.Errorf("failed %q constraint", first.Tag()),
			}
		}
		return &ConfigError{Err: err}
	}

	if c.Scorer.Kind == "claude" && c.Scorer.APIKey == "" {
		return &ConfigError{
			Field: "scorer.api_key",
			Err:   fmt.Errorf("ANTHROPIC_API_KEY is required for the claude scorer"),
		}
	}

	return nil
}
