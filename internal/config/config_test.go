package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup. (t.Chdir requires Go 1.24+.)
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "config", "test.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
	return path
}

const minimalConfig = `
http:
  port: 8080
dataset:
  path: data/foods.csv
generation:
  model: llama3.2
`

func TestLoad_AppliesDefaults(t *testing.T) {
	writeConfig(t, minimalConfig)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.Driver != "memory" {
		t.Errorf("cache driver = %q, want memory", cfg.Cache.Driver)
	}
	if cfg.Cache.TTLSec != 900 {
		t.Errorf("cache ttl = %d, want 900", cfg.Cache.TTLSec)
	}
	if cfg.Cache.MaxEntries != 100 {
		t.Errorf("cache max entries = %d, want 100", cfg.Cache.MaxEntries)
	}
	if cfg.Retrieval.ContextTopN != 3 {
		t.Errorf("context top n = %d, want 3", cfg.Retrieval.ContextTopN)
	}
	if cfg.Generation.TimeoutSec != 45 {
		t.Errorf("generation timeout = %d, want 45", cfg.Generation.TimeoutSec)
	}
	if cfg.Generation.MaxTokens != 512 {
		t.Errorf("generation max tokens = %d, want 512", cfg.Generation.MaxTokens)
	}
	if cfg.Limiter.Concurrency != 1 {
		t.Errorf("limiter concurrency = %d, want 1", cfg.Limiter.Concurrency)
	}
	if cfg.Dataset.MaxRecords != 300 {
		t.Errorf("dataset max records = %d, want 300", cfg.Dataset.MaxRecords)
	}
	if cfg.Generation.SystemInstruction == "" {
		t.Error("expected a default system instruction")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("NUTRICHAT_MODEL", "qwen2.5")
	writeConfig(t, `
http:
  port: 8080
dataset:
  path: data/foods.csv
generation:
  model: ${NUTRICHAT_MODEL}
  base_url: ${NUTRICHAT_LLM_URL:-http://localhost:11434/v1}
`)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generation.Model != "qwen2.5" {
		t.Errorf("model = %q, want qwen2.5", cfg.Generation.Model)
	}
	if cfg.Generation.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("base_url = %q, want fallback default", cfg.Generation.BaseURL)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
		{"missing dataset path", func(c *Config) { c.Dataset.Path = "" }},
		{"missing model", func(c *Config) { c.Generation.Model = "" }},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"redis without addrs", func(c *Config) { c.Cache.Driver = "redis"; c.Cache.Addrs = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				HTTP:       HTTPConfig{Port: 8080},
				Dataset:    DatasetConfig{Path: "data/foods.csv"},
				Generation: GenerationConfig{Model: "llama3.2"},
				Cache:      CacheConfig{Driver: "memory"},
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load("nope"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
