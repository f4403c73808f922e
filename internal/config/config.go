package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// ServerConfig HTTP listener and public site settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// bcrypt hash of the admin bearer token; empty leaves admin routes open
	AdminTokenHash string `mapstructure:"admin_token_hash"`
	SiteURL        string `mapstructure:"site_url"`
	SiteTitle      string `mapstructure:"site_title"`
}

// DatabaseConfig driver selection and DSN
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite
	URL    string `mapstructure:"url"`
}

// LLMConfig OpenAI compatible endpoint
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PipelineConfig batch sizes, timeouts and scheduling for the stages
type PipelineConfig struct {
	Language        string        `mapstructure:"language"`
	SummarizeBatch  int           `mapstructure:"summarize_batch"`
	TagBatch        int           `mapstructure:"tag_batch"`
	InsightBatch    int           `mapstructure:"insight_batch"`
	StageDelay      time.Duration `mapstructure:"stage_delay"`
	IncludeInsights bool          `mapstructure:"include_insights"`
	ClaimTTL        time.Duration `mapstructure:"claim_ttl"`
	UserAgent       string        `mapstructure:"user_agent"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	EnrichContent   bool          `mapstructure:"enrich_content"`
	Schedule        time.Duration `mapstructure:"schedule"` // full pipeline interval while serving, 0 disables
}

// LogConfig zerolog level and console output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// CatalogConfig location of the seed catalog
type CatalogConfig struct {
	Path string `mapstructure:"path"` // empty uses the embedded catalog
}

// Load resolves configuration from .env, an optional YAML file and the environment.
// Environment keys are the upper-cased dotted keys, e.g. DATABASE_URL, LLM_API_KEY.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_token_hash", "")
	v.SetDefault("server.site_url", "http://localhost:8080")
	v.SetDefault("server.site_title", "Tech News Digest")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "host=localhost user=postgres password=postgres dbname=technews port=5432 sslmode=disable")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1/")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 90*time.Second)

	v.SetDefault("pipeline.language", "ar")
	v.SetDefault("pipeline.summarize_batch", 5)
	v.SetDefault("pipeline.tag_batch", 10)
	v.SetDefault("pipeline.insight_batch", 3)
	v.SetDefault("pipeline.stage_delay", 2*time.Second)
	v.SetDefault("pipeline.include_insights", false)
	v.SetDefault("pipeline.claim_ttl", 15*time.Minute)
	v.SetDefault("pipeline.user_agent", "Mozilla/5.0 (compatible; TechNewsBot/1.0)")
	v.SetDefault("pipeline.fetch_timeout", 30*time.Second)
	v.SetDefault("pipeline.enrich_content", false)
	v.SetDefault("pipeline.schedule", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("catalog.path", "")
}

func bindEnv(v *viper.Viper) {
	// PORT is the conventional override on most hosts
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}
	if c.Pipeline.SummarizeBatch <= 0 || c.Pipeline.TagBatch <= 0 || c.Pipeline.InsightBatch <= 0 {
		errs = append(errs, errors.New("pipeline batch sizes must be positive"))
	}
	if c.Pipeline.Schedule < 0 {
		errs = append(errs, errors.New("pipeline.schedule must not be negative"))
	}
	if c.Pipeline.StageDelay < 0 {
		errs = append(errs, errors.New("pipeline.stage_delay must not be negative"))
	}
	return errors.Join(errs...)
}

// LanguageName maps a language code to the name used in prompts
func LanguageName(code string) string {
	switch strings.ToLower(code) {
	case "ar":
		return "Modern Standard Arabic"
	case "en":
		return "English"
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	case "de":
		return "German"
	default:
		return code
	}
}
