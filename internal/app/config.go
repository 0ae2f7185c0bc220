package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	// Language selects the fallback suggestion pool: en or th.
	Language string `yaml:"language"`
	// Store selects the persistence backend: file or sqlite.
	Store     string `yaml:"store"`
	StoreRoot string `yaml:"store_root"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.anthropic.com/v1/messages",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 4096,
		Language:  "en",
		Store:     "file",
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// Environment wins over file for the key, so a .env is enough to run.
	if key := strings.TrimSpace(os.Getenv("AGENTUI_API_KEY")); key != "" {
		cfg.APIKey = key
	}
	if model := strings.TrimSpace(os.Getenv("AGENTUI_MODEL")); model != "" {
		cfg.Model = model
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1/messages"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxTokens > 64000 {
		cfg.MaxTokens = 64000
	}
	if cfg.Language != "en" && cfg.Language != "th" {
		cfg.Language = "en"
	}
	if cfg.Store != "file" && cfg.Store != "sqlite" {
		cfg.Store = "file"
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return errors.New("no path provided for config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "agent-ui", "config.yml")
}
