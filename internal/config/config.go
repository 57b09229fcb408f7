package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the statutefinder configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Narrowing NarrowingConfig `yaml:"narrowing"`
	Budget    BudgetsConfig   `yaml:"budget"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the optional store used for the embedding cache and
// budget counters: Redis/Valkey at Addrs, or an embedded BadgerDB under Path.
// Leaving both empty runs without it.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Path             string   `yaml:"path"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return len(d.Addrs) > 0 || d.Path != "" }

// LLMConfig holds chat completion provider settings.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	Retry       string  `yaml:"retry"` // "default" | "slow"
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	TableDir   string `yaml:"table_dir"`
	Cache      bool   `yaml:"cache"`
	// CacheTTLHours bounds how long cached vectors live. 0 keeps them until evicted.
	CacheTTLHours int `yaml:"cache_ttl_hours"`
}

// NarrowingConfig holds defaults for the narrowing strategies.
type NarrowingConfig struct {
	Strategy            string  `yaml:"strategy"`
	InitialResultsRatio float64 `yaml:"initial_results_ratio"`
	FinalResultsRatio   float64 `yaml:"final_results_ratio"`
	BatchTokenSize      int     `yaml:"batch_token_size"`
	BatchOverlap        bool    `yaml:"batch_overlap"`
	RandomizeOrder      *bool   `yaml:"randomize_order"`
	Concurrency         int     `yaml:"concurrency"`
	PrefilterTopN       int     `yaml:"prefilter_top_n"`
}

// BudgetsConfig holds one token budget per provider scope.
type BudgetsConfig struct {
	Completion BudgetConfig `yaml:"completion"`
	Embedding  BudgetConfig `yaml:"embedding"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// CatalogConfig locates the statute catalog snapshots.
type CatalogConfig struct {
	DataDir         string `yaml:"data_dir"`
	IncludeRepealed bool   `yaml:"include_repealed"`
	// ActsDir holds act XML files named <act_id>.xml for section ranking.
	ActsDir string `yaml:"acts_dir"`
}

// SessionConfig holds interactive session settings.
type SessionConfig struct {
	OptionsToRetrieve int `yaml:"options_to_retrieve"`
	OptionsToShow     int `yaml:"options_to_show"`
	TTLMinutes        int `yaml:"ttl_minutes"` // 0 = never expire
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Retry == "" {
		c.LLM.Retry = "default"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 256
	}
	if c.Embedding.TableDir == "" {
		c.Embedding.TableDir = "data/embeddings"
	}
	if c.Narrowing.Strategy == "" {
		c.Narrowing.Strategy = "vote_then_refine"
	}
	if c.Narrowing.InitialResultsRatio <= 0 {
		c.Narrowing.InitialResultsRatio = 0.2
	}
	if c.Narrowing.FinalResultsRatio <= 0 {
		c.Narrowing.FinalResultsRatio = 0.2
	}
	if c.Narrowing.BatchTokenSize <= 0 {
		c.Narrowing.BatchTokenSize = 300
	}
	if c.Narrowing.RandomizeOrder == nil {
		randomize := true
		c.Narrowing.RandomizeOrder = &randomize
	}
	if c.Narrowing.Concurrency <= 0 {
		c.Narrowing.Concurrency = 1
	}
	if c.Catalog.DataDir == "" {
		c.Catalog.DataDir = "data"
	}
	if c.Catalog.ActsDir == "" {
		c.Catalog.ActsDir = filepath.Join(c.Catalog.DataDir, "acts")
	}
	if c.Session.OptionsToRetrieve <= 0 {
		c.Session.OptionsToRetrieve = 10
	}
	if c.Session.OptionsToShow <= 0 {
		c.Session.OptionsToShow = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	switch c.LLM.Retry {
	case "default", "slow":
	default:
		return fmt.Errorf("llm.retry must be \"default\" or \"slow\", got %q", c.LLM.Retry)
	}
	if len(c.Database.Addrs) > 0 && c.Database.Path != "" {
		return fmt.Errorf("database.addrs and database.path are mutually exclusive")
	}
	if c.Embedding.Cache && !c.Database.Enabled() {
		return fmt.Errorf("embedding.cache requires database.addrs or database.path")
	}
	if c.Embedding.CacheTTLHours < 0 {
		return fmt.Errorf("embedding.cache_ttl_hours must be >= 0, got %d", c.Embedding.CacheTTLHours)
	}
	for _, r := range []struct {
		name string
		v    float64
	}{
		{"narrowing.initial_results_ratio", c.Narrowing.InitialResultsRatio},
		{"narrowing.final_results_ratio", c.Narrowing.FinalResultsRatio},
	} {
		if r.v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", r.name, r.v)
		}
	}
	if c.Session.OptionsToShow > c.Session.OptionsToRetrieve {
		return fmt.Errorf(
			"session.options_to_show (%d) must not exceed session.options_to_retrieve (%d)",
			c.Session.OptionsToShow, c.Session.OptionsToRetrieve,
		)
	}
	for name, b := range map[string]BudgetConfig{
		"completion": c.Budget.Completion,
		"embedding":  c.Budget.Embedding,
	} {
		switch b.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"budget.%s.action must be \"warn\" or \"reject\", got %q",
				name, b.Action,
			)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
