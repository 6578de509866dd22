package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tripcraft/tripgen/pkg/models"
)

// EnvPrefix prefixes environment overrides, e.g. TRIPGEN_DAILY_COST_LIMIT.
const EnvPrefix = "TRIPGEN"

// Config holds all tripgen configuration.
type Config struct {
	Listen     string                `yaml:"listen"`
	Log        LogConfig             `yaml:"log"`
	Storage    StorageConfig         `yaml:"storage"`
	Budget     models.BudgetPolicy   `yaml:"budget"`
	Window     WindowConfig          `yaml:"window"`
	Providers  []ProviderConfig      `yaml:"providers"`
	Pricing    []models.ModelPricing `yaml:"pricing"`
	Routes     []RouteConfig         `yaml:"routes"`
	Generation GenerationConfig      `yaml:"generation"`
	Audit      models.AuditConfig    `yaml:"audit"`
	Metrics    MetricsConfig         `yaml:"metrics"`
}

// LogConfig selects level and encoder.
type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"` // "production" for JSON output
}

// StorageConfig selects the usage ledger backend.
// Type is "memory", "sqlite" (default) or "postgresql".
type StorageConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// WindowConfig selects the hourly request window.
// Type is "local" (default) or "redis".
type WindowConfig struct {
	Type     string `yaml:"type"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ProviderConfig defines an LLM provider.
// Type is "openai" (default), "azure", "anthropic" or "gemini".
type ProviderConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RouteConfig lists candidate models for a request type. The cheapest
// priced candidate wins.
type RouteConfig struct {
	RequestType string        `yaml:"request_type"`
	Targets     []RouteTarget `yaml:"targets"`
}

// RouteTarget identifies a specific provider and model.
type RouteTarget struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// GenerationConfig tunes provider dispatch.
type GenerationConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	MaxTokens          int64         `yaml:"max_tokens"`
	DefaultRequestType string        `yaml:"default_request_type"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Log:    LogConfig{Level: "info", Env: "development"},
		Storage: StorageConfig{
			Type: "sqlite",
			Path: "tripgen.db",
		},
		Budget: models.BudgetPolicy{
			DailyCostLimit:     decimal.NewFromInt(10),
			HourlyRequestLimit: 100,
		},
		Window: WindowConfig{Type: "local", Prefix: "tripgen:hourly"},
		Generation: GenerationConfig{
			Timeout:            60 * time.Second,
			MaxRetries:         1,
			MaxTokens:          4096,
			DefaultRequestType: "itinerary",
		},
		Audit: models.AuditConfig{
			DBPath:        "tripgen-audit.db",
			RetentionDays: 30,
			MaxPromptSize: 16384,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// LoadDotEnv loads the given .env files, ignoring ones that don't exist.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads a YAML config file, expands environment variables and applies
// TRIPGEN_* overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	policy, err := ApplyBudgetEnv(cfg.Budget)
	if err != nil {
		return nil, err
	}
	cfg.Budget = policy

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyBudgetEnv overlays TRIPGEN_DAILY_COST_LIMIT and
// TRIPGEN_HOURLY_REQUEST_LIMIT onto p.
func ApplyBudgetEnv(p models.BudgetPolicy) (models.BudgetPolicy, error) {
	if err := envconfig.Process(EnvPrefix, &p); err != nil {
		return p, fmt.Errorf("budget env overrides: %w", err)
	}
	return p, nil
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "sqlite", "postgresql":
	default:
		return fmt.Errorf("storage.type %q: must be memory, sqlite or postgresql", c.Storage.Type)
	}
	if c.Storage.Type == "postgresql" && c.Storage.URL == "" {
		return fmt.Errorf("storage.url is required for postgresql")
	}
	switch c.Window.Type {
	case "local", "redis":
	default:
		return fmt.Errorf("window.type %q: must be local or redis", c.Window.Type)
	}
	if c.Window.Type == "redis" && c.Window.Addr == "" {
		return fmt.Errorf("window.addr is required for redis")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries must not be negative")
	}

	names := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider without name")
		}
		if names[p.Name] {
			return fmt.Errorf("provider %q defined twice", p.Name)
		}
		names[p.Name] = true
	}
	for _, r := range c.Routes {
		if r.RequestType == "" {
			return fmt.Errorf("route without request_type")
		}
		for _, t := range r.Targets {
			if !names[t.Provider] {
				return fmt.Errorf("route %q: unknown provider %q", r.RequestType, t.Provider)
			}
		}
	}
	return nil
}
