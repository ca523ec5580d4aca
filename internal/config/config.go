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

// Config holds the metasearch configuration.
type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Auth    AuthConfig     `yaml:"auth"`
	Logging LoggingConfig  `yaml:"logging"`
	Search  SearchConfig   `yaml:"search"`
	Breaker BreakerConfig  `yaml:"breaker"`
	Cache   CacheConfig    `yaml:"cache"`
	Filters FiltersConfig  `yaml:"filters"`
	Engines []EngineConfig `yaml:"engines"`
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

// SearchConfig holds fan-out settings.
type SearchConfig struct {
	EngineTimeoutMs int `yaml:"engine_timeout_ms"`
	MaxParallel     int `yaml:"max_parallel"`
}

// BreakerConfig holds engine suspension settings.
type BreakerConfig struct {
	MaxFailures    uint32 `yaml:"max_failures"`
	OpenTimeoutSec int    `yaml:"open_timeout_sec"`
	IntervalSec    int    `yaml:"interval_sec"`
}

// CacheConfig holds snapshot cache settings. The cache is off unless enabled.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// FiltersConfig holds result filters.
type FiltersConfig struct {
	BlockedHosts []string `yaml:"blocked_hosts"` // regular expressions matched against the host
}

// EngineConfig describes one search engine.
type EngineConfig struct {
	Name                 string            `yaml:"name"`
	SearchURL            string            `yaml:"search_url"` // {query} and {page} are substituted
	Weight               float64           `yaml:"weight"`
	Categories           []string          `yaml:"categories"`
	Paging               bool              `yaml:"paging"`
	DisplayErrorMessages *bool             `yaml:"display_error_messages"` // default true
	HTMLContent          bool              `yaml:"html_content"`
	Headers              map[string]string `yaml:"headers"`
	Disabled             bool              `yaml:"disabled"`
}

// ShowsErrors reports whether failures of the engine are shown to clients.
func (e EngineConfig) ShowsErrors() bool {
	return e.DisplayErrorMessages == nil || *e.DisplayErrorMessages
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Search.EngineTimeoutMs <= 0 {
		c.Search.EngineTimeoutMs = 3000
	}
	if c.Search.MaxParallel <= 0 {
		c.Search.MaxParallel = 8
	}
	if c.Breaker.MaxFailures == 0 {
		c.Breaker.MaxFailures = 5
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 60
	}
	if c.Breaker.IntervalSec <= 0 {
		c.Breaker.IntervalSec = 300
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "metasearch:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	for i := range c.Engines {
		if len(c.Engines[i].Categories) == 0 {
			c.Engines[i].Categories = []string{"general"}
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	for _, p := range c.Filters.BlockedHosts {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("filters.blocked_hosts: invalid pattern %q: %w", p, err)
		}
	}

	enabled := 0
	seen := make(map[string]struct{}, len(c.Engines))
	for i, e := range c.Engines {
		if e.Name == "" {
			return fmt.Errorf("engines[%d].name is required", i)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("engines[%d]: duplicate engine name %q", i, e.Name)
		}
		seen[e.Name] = struct{}{}
		if !strings.Contains(e.SearchURL, "{query}") {
			return fmt.Errorf("engines.%s.search_url must contain {query}", e.Name)
		}
		if e.Weight < 0 {
			return fmt.Errorf("engines.%s.weight must not be negative, got %g", e.Name, e.Weight)
		}
		if !e.Disabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one enabled engine is required")
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
