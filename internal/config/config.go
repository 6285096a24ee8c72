// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration

	// Simulation pages.
	SimulationBaseURL string

	// Text generation backend.
	GeminiAPIKey  string
	GeminiModel   string
	Temperature   float32
	LLMTimeout    time.Duration
	LLMMaxRetries int

	// Teaching guardrails.
	MaxExchanges    int
	ScaffoldTrigger int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", ""),
		DBPath:            getEnv("DB_PATH", "./data/tutor.db"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		SimulationBaseURL: getEnv("SIMULATION_BASE_URL", "https://imhv0609.github.io/simulation_to_concept_github/SimulationsNCERT-main"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemma-3-27b-it"),
		Temperature:       getEnvFloat32("TEMPERATURE", 0.7),
		LLMTimeout:        getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxRetries:     getEnvInt("LLM_MAX_RETRIES", 2),
		MaxExchanges:      getEnvInt("MAX_EXCHANGES", 6),
		ScaffoldTrigger:   getEnvInt("SCAFFOLD_TRIGGER", 3),
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
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.GeminiModel == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.SimulationBaseURL == "" {
		return fmt.Errorf("SIMULATION_BASE_URL cannot be empty")
	}
	if c.MaxExchanges <= 0 {
		return fmt.Errorf("MAX_EXCHANGES must be > 0")
	}
	if c.ScaffoldTrigger <= 0 {
		return fmt.Errorf("SCAFFOLD_TRIGGER must be > 0")
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES cannot be negative")
	}
	return nil
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

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
