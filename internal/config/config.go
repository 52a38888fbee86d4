// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	FrontendURL   string
	DBPath        string
	SystemPrompt  string
	MaxUploadSize int64
	Providers     ProviderConfig
}

// ProviderConfig holds upstream LLM provider credentials and endpoints.
// Base URLs are overridable for tests and proxies.
type ProviderConfig struct {
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DeepSeekAPIKey    string
	DeepSeekBaseURL   string
	GeminiAPIKey      string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/chat.db"),
		SystemPrompt:  getEnv("SYSTEM_PROMPT", ""),
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 10<<20)),
		Providers: ProviderConfig{
			OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
			OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", ""),
			DeepSeekAPIKey:    getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekBaseURL:   getEnv("DEEPSEEK_BASE_URL", ""),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	return nil
}

// HasAnyProvider reports whether at least one provider credential is set.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.OpenRouterAPIKey != "" || p.DeepSeekAPIKey != "" || p.GeminiAPIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
