// Package config loads skillsync settings from a YAML file, the environment
// and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/skillsync/skillsync/internal/cache"
	"github.com/skillsync/skillsync/internal/filtering"
	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/matching"
	"github.com/skillsync/skillsync/internal/recommend"
	"github.com/skillsync/skillsync/internal/resume"
	"github.com/skillsync/skillsync/internal/secrets"
)

const (
	App       = "skillsync"
	EnvPrefix = "SKILLSYNC"
)

type Config struct {
	Lexicon         string           `mapstructure:"lexicon"`
	DefaultLocation string           `mapstructure:"default-location" validate:"required"`
	Provider        ProviderConfig   `mapstructure:"provider"`
	Cache           CacheConfig      `mapstructure:"cache"`
	Scoring         ScoringConfig    `mapstructure:"scoring"`
	Recommend       RecommendConfig  `mapstructure:"recommend"`
	Filters         filtering.Config `mapstructure:"filters"`
	DisabledFilters []string         `mapstructure:"disabled-filters"`
	AI              AIConfig         `mapstructure:"ai"`
	S3              resume.S3Config  `mapstructure:"s3"`
	Server          ServerConfig     `mapstructure:"server"`
}

type ProviderConfig struct {
	URL           string         `mapstructure:"url" validate:"required,url"`
	UserAgent     string         `mapstructure:"user-agent"`
	Token         secrets.Source `mapstructure:"token"`
	Timeout       time.Duration  `mapstructure:"timeout" validate:"gt=0"`
	FetchTimeout  time.Duration  `mapstructure:"fetch-timeout" validate:"gtefield=Timeout"`
	RatePerSecond float64        `mapstructure:"rate-per-second" validate:"gt=0"`
	Burst         int            `mapstructure:"burst" validate:"gte=1"`
	MaxPages      int            `mapstructure:"max-pages" validate:"gte=1,lte=10"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend" validate:"oneof=memory redis"`
	PrimaryTTL    time.Duration `mapstructure:"primary-ttl" validate:"gt=0"`
	FallbackTTL   time.Duration `mapstructure:"fallback-ttl" validate:"gtefield=PrimaryTTL"`
	Shards        int           `mapstructure:"shards" validate:"gte=1"`
	RedisURL      string        `mapstructure:"redis-url" validate:"required_if=Backend redis"`
	SweepSchedule string        `mapstructure:"sweep-schedule" validate:"required"`
}

func (c CacheConfig) TTLs() cache.TTLs {
	return cache.TTLs{Primary: c.PrimaryTTL, Fallback: c.FallbackTTL}
}

type ScoringConfig struct {
	RequiredWeight  float64 `mapstructure:"required-weight" validate:"gt=0"`
	PreferredWeight float64 `mapstructure:"preferred-weight" validate:"gt=0"`
	MinScore        float64 `mapstructure:"min-score" validate:"gte=0,lte=1"`
}

func (s ScoringConfig) Weights() matching.Weights {
	return matching.Weights{Required: s.RequiredWeight, Preferred: s.PreferredWeight}
}

type RecommendConfig struct {
	TopN               int  `mapstructure:"top-n" validate:"gte=1"`
	MaxSkills          int  `mapstructure:"max-skills" validate:"gte=1"`
	LiveCertifications bool `mapstructure:"live-certifications"`
}

type AIConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Provider string       `mapstructure:"provider" validate:"omitempty,oneof=gemini"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       secrets.Source `mapstructure:"api-key"`
	Model        string         `mapstructure:"model"`
	MaxRetries   int            `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int            `mapstructure:"max-log-length" validate:"gte=0"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `mapstructure:"max-body-bytes" validate:"gt=0"`
}

// SetDefaults registers every key with its default value. Keys without a
// default are invisible to environment overrides on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("lexicon", "")
	v.SetDefault("default-location", jobsearch.DefaultLocation)

	v.SetDefault("provider.url", "https://findwork.dev")
	v.SetDefault("provider.user-agent", "skillsync/1.0")
	v.SetDefault("provider.token.value", "")
	v.SetDefault("provider.token.env", "FINDWORK_API_KEY")
	v.SetDefault("provider.token.file", "")
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.fetch-timeout", 20*time.Second)
	v.SetDefault("provider.rate-per-second", 1.0)
	v.SetDefault("provider.burst", 5)
	v.SetDefault("provider.max-pages", 1)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.primary-ttl", cache.DefaultPrimaryTTL)
	v.SetDefault("cache.fallback-ttl", cache.DefaultFallbackTTL)
	v.SetDefault("cache.shards", cache.DefaultShards)
	v.SetDefault("cache.redis-url", "")
	v.SetDefault("cache.sweep-schedule", cache.DefaultSweepSchedule)

	v.SetDefault("scoring.required-weight", matching.DefaultWeights.Required)
	v.SetDefault("scoring.preferred-weight", matching.DefaultWeights.Preferred)
	v.SetDefault("scoring.min-score", 0.0)

	v.SetDefault("recommend.top-n", recommend.DefaultTopN)
	v.SetDefault("recommend.max-skills", recommend.DefaultMaxSkills)
	v.SetDefault("recommend.live-certifications", false)

	v.SetDefault("filters.excluded-companies", []string{})
	v.SetDefault("filters.exclude-file", "")
	v.SetDefault("filters.red-flags", []string{})
	v.SetDefault("disabled-filters", []string{})

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key.value", "")
	v.SetDefault("ai.gemini.api-key.env", "GEMINI_API_KEY")
	v.SetDefault("ai.gemini.api-key.file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.access-key", "")
	v.SetDefault("s3.secret-key", "")
	v.SetDefault("s3.path-style", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read-timeout", 10*time.Second)
	v.SetDefault("server.write-timeout", 60*time.Second)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
	v.SetDefault("server.max-body-bytes", 1<<20)
}

// Prepare wires defaults, the environment and the config file into v.
// An explicit path must exist. Without one, skillsync.yaml in the working
// directory is read when present.
func Prepare(v *viper.Viper, path string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %q: %w", path, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigName(App)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// Get decodes and validates the configuration held by v.
func Get(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load prepares v and returns the validated configuration.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := Prepare(v, path); err != nil {
		return nil, err
	}
	return Get(v)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, name := range c.DisabledFilters {
		if !knownFilter(name) {
			return fmt.Errorf("invalid config: unknown filter %q", name)
		}
	}
	return nil
}

func knownFilter(name string) bool {
	for _, f := range filtering.Default() {
		if f.Name() == name {
			return true
		}
	}
	return false
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	if out.Provider.Token.Value != "" {
		out.Provider.Token.Value = "***"
	}
	if out.AI.Gemini.APIKey.Value != "" {
		out.AI.Gemini.APIKey.Value = "***"
	}
	if out.S3.SecretKey != "" {
		out.S3.SecretKey = "***"
	}
	return out
}
