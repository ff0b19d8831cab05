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

// Config holds the nutrichat API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Cache      CacheConfig      `yaml:"cache"`
	Generation GenerationConfig `yaml:"generation"`
	Limiter    LimiterConfig    `yaml:"limiter"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatasetConfig holds food dataset ingestion settings.
type DatasetConfig struct {
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"`
}

// RetrievalConfig holds lexical retrieval settings.
type RetrievalConfig struct {
	ContextTopN int `yaml:"context_top_n"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Driver     string   `yaml:"driver"` // memory, redis (default: memory)
	TTLSec     int      `yaml:"ttl_sec"`
	MaxEntries int      `yaml:"max_entries"`
	Addrs      []string `yaml:"addrs"` // redis driver only
	Password   string   `yaml:"password"`
}

// GenerationConfig holds inference service settings.
type GenerationConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	MaxTokens         int    `yaml:"max_tokens"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	SystemInstruction string `yaml:"system_instruction"`
}

// LimiterConfig holds generation concurrency settings.
type LimiterConfig struct {
	Concurrency int `yaml:"concurrency"`
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
		// Must exceed the generation timeout or chat responses get cut off mid-write.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Dataset.MaxRecords <= 0 {
		c.Dataset.MaxRecords = 300
	}
	if c.Retrieval.ContextTopN <= 0 {
		c.Retrieval.ContextTopN = 3
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 900
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 100
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = "http://localhost:11434/v1"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 512
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 45
	}
	if c.Generation.SystemInstruction == "" {
		c.Generation.SystemInstruction = defaultSystemInstruction
	}
	if c.Limiter.Concurrency <= 0 {
		c.Limiter.Concurrency = 1
	}
}

const defaultSystemInstruction = "You are a certified nutrition coach. " +
	"Answer using the provided food data when relevant, keep advice practical, " +
	"and recommend consulting a professional for medical conditions."

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	switch c.Cache.Driver {
	case "memory":
		// ok
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"redis\", got %q", c.Cache.Driver)
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
