package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Secrets only ever come from the environment.
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Summarizer.APIKey, "OPENROUTER_API_KEY")
	set(&cfg.Summarizer.Model, "OPENROUTER_MODEL")
	set(&cfg.Summarizer.BaseURL, "OPENROUTER_BASE_URL")
	if v := getenv("OPENROUTER_ALLOWED_HOSTS"); strings.TrimSpace(v) != "" {
		cfg.Summarizer.AllowedHosts = strings.Split(v, ",")
	}
	set(&cfg.Speech.APIKey, "TTS_API_KEY")
	set(&cfg.Speech.HTTPURL, "TTS_URL")
	set(&cfg.Source.UserAgent, "REDDIT_USER_AGENT")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Logging.Level, "LOG_LEVEL")
}
