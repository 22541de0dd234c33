// Package config loads service configuration from .env files, an optional
// YAML file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ochairo/roaster/internal/external-adapters/yaml"
)

// Provider defaults for the OpenAI-compatible narration backends
const (
	DefaultGrokBaseURL   = "https://api.x.ai/v1"
	DefaultGrokModel     = "grok-beta"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o"
	DefaultConfigFile    = "roaster.yml"
	DefaultNatsSubject   = "roaster.scan.completed"
)

var environments = map[string]bool{"development": true, "staging": true, "production": true, "test": true}

// Provider configures one remote narration backend
type Provider struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Tool overrides how one external scanner is invoked
type Tool struct {
	Binary  string
	Timeout time.Duration
}

// Config holds all configuration for the roaster service.
type Config struct {
	AppName     string
	Environment string
	Debug       bool
	LogLevel    string

	// HTTP server
	Host           string
	Port           int
	AllowedOrigins []string

	// Narration backends, tried in order
	Grok   Provider
	OpenAI Provider

	// Rate limiting
	RateLimitEnabled        bool
	RateLimitScansPerMinute int
	RedisURL                string

	// Analysis
	MaxRepoSizeMB          int
	AnalysisTimeoutSeconds int
	CloneTimeoutSeconds    int
	TempDir                string
	ScanParallel           bool

	// Events
	NatsURL     string
	NatsSubject string

	Tools     map[string]Tool
	FixAdvice map[string]string

	// Sources lists the files that contributed to this config
	Sources []string
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		AppName:                 "Roaster",
		Environment:             "development",
		LogLevel:                "info",
		Host:                    "127.0.0.1",
		Port:                    8000,
		AllowedOrigins:          []string{"http://localhost:5173", "http://localhost:3000"},
		Grok:                    Provider{BaseURL: DefaultGrokBaseURL, Model: DefaultGrokModel},
		OpenAI:                  Provider{BaseURL: DefaultOpenAIBaseURL, Model: DefaultOpenAIModel},
		RateLimitEnabled:        true,
		RateLimitScansPerMinute: 5,
		MaxRepoSizeMB:           500,
		AnalysisTimeoutSeconds:  300,
		CloneTimeoutSeconds:     120,
		TempDir:                 defaultTempDir(),
		ScanParallel:            true,
		NatsSubject:             DefaultNatsSubject,
		Tools:                   map[string]Tool{},
		FixAdvice:               map[string]string{},
	}
}

// Load reads configuration from .env files, the YAML file and the environment.
func Load() (*Config, error) {
	cfg := Default()

	// Try multiple .env locations
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			cfg.Sources = append(cfg.Sources, path)
			break
		}
	}

	configFile, explicit := os.LookupEnv("ROASTER_CONFIG")
	if !explicit {
		configFile = DefaultConfigFile
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil || explicit {
			settings, err := yaml.NewConfigParser().ParseFile(configFile)
			if err != nil {
				return nil, err
			}
			cfg.applyFile(settings)
			cfg.Sources = append(cfg.Sources, configFile)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !environments[c.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of development, staging, production, test (got %q)", c.Environment)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if c.RateLimitScansPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_SCANS_PER_MINUTE must be at least 1")
	}

	if c.MaxRepoSizeMB < 1 {
		return fmt.Errorf("MAX_REPO_SIZE_MB must be at least 1")
	}

	if c.AnalysisTimeoutSeconds < 1 {
		return fmt.Errorf("ANALYSIS_TIMEOUT_SECONDS must be at least 1")
	}

	if c.CloneTimeoutSeconds < 1 {
		return fmt.Errorf("CLONE_TIMEOUT_SECONDS must be at least 1")
	}

	if c.TempDir == "" {
		return fmt.Errorf("TEMP_DIR is required")
	}

	return nil
}

// HasNarrationKey reports whether any remote narration backend is configured
func (c *Config) HasNarrationKey() bool {
	return c.Grok.APIKey != "" || c.OpenAI.APIKey != ""
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxRepoBytes is MaxRepoSizeMB in bytes
func (c *Config) MaxRepoBytes() int64 {
	return int64(c.MaxRepoSizeMB) * 1024 * 1024
}

// AnalysisTimeout bounds one whole roast
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSeconds) * time.Second
}

// CloneTimeout bounds the git clone
func (c *Config) CloneTimeout() time.Duration {
	return time.Duration(c.CloneTimeoutSeconds) * time.Second
}

// Tool returns the override for name, if any
func (c *Config) Tool(name string) Tool {
	return c.Tools[name]
}

func (c *Config) applyFile(s *yaml.Settings) {
	setString(&c.AppName, s.App.Name)
	setString(&c.Environment, s.App.Environment)
	setBool(&c.Debug, s.App.Debug)
	setString(&c.LogLevel, s.App.LogLevel)

	setString(&c.Host, s.Server.Host)
	setInt(&c.Port, s.Server.Port)
	if len(s.Server.AllowedOrigins) > 0 {
		c.AllowedOrigins = s.Server.AllowedOrigins
	}

	applyProvider(&c.Grok, s.Narration.Grok)
	applyProvider(&c.OpenAI, s.Narration.OpenAI)

	setInt(&c.MaxRepoSizeMB, s.Limits.MaxRepoSizeMB)
	setInt(&c.AnalysisTimeoutSeconds, s.Limits.AnalysisTimeoutSeconds)
	setInt(&c.CloneTimeoutSeconds, s.Limits.CloneTimeoutSeconds)
	setString(&c.TempDir, s.Limits.TempDir)
	setBool(&c.ScanParallel, s.Limits.ScanParallel)

	setBool(&c.RateLimitEnabled, s.RateLimit.Enabled)
	setInt(&c.RateLimitScansPerMinute, s.RateLimit.ScansPerMinute)
	setString(&c.RedisURL, s.RateLimit.RedisURL)

	setString(&c.NatsURL, s.Events.NatsURL)
	setString(&c.NatsSubject, s.Events.NatsSubject)

	for name, tool := range s.Tools {
		c.Tools[name] = Tool{Binary: tool.Binary, Timeout: time.Duration(tool.TimeoutSeconds) * time.Second}
	}
	for kind, advice := range s.FixAdvice {
		c.FixAdvice[kind] = advice
	}
}

func (c *Config) applyEnv() error {
	var errs []error

	c.AppName = getEnvOrDefault("APP_NAME", c.AppName)
	c.Environment = strings.ToLower(getEnvOrDefault("ENVIRONMENT", c.Environment))
	c.Debug = parseBoolOrDefault("DEBUG", c.Debug, &errs)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	c.Host = getEnvOrDefault("HOST", c.Host)
	c.Port = parseIntOrDefault("PORT", c.Port, &errs)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	c.Grok.APIKey = getEnvOrDefault("GROK_API_KEY", c.Grok.APIKey)
	c.Grok.BaseURL = getEnvOrDefault("GROK_BASE_URL", c.Grok.BaseURL)
	c.Grok.Model = getEnvOrDefault("GROK_MODEL", c.Grok.Model)
	c.OpenAI.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = getEnvOrDefault("OPENAI_MODEL", c.OpenAI.Model)

	c.RateLimitEnabled = parseBoolOrDefault("RATE_LIMIT_ENABLED", c.RateLimitEnabled, &errs)
	c.RateLimitScansPerMinute = parseIntOrDefault("RATE_LIMIT_SCANS_PER_MINUTE", c.RateLimitScansPerMinute, &errs)
	c.RedisURL = getEnvOrDefault("REDIS_URL", c.RedisURL)

	c.MaxRepoSizeMB = parseIntOrDefault("MAX_REPO_SIZE_MB", c.MaxRepoSizeMB, &errs)
	c.AnalysisTimeoutSeconds = parseIntOrDefault("ANALYSIS_TIMEOUT_SECONDS", c.AnalysisTimeoutSeconds, &errs)
	c.CloneTimeoutSeconds = parseIntOrDefault("CLONE_TIMEOUT_SECONDS", c.CloneTimeoutSeconds, &errs)
	c.TempDir = getEnvOrDefault("TEMP_DIR", c.TempDir)
	c.ScanParallel = parseBoolOrDefault("SCAN_PARALLEL", c.ScanParallel, &errs)

	c.NatsURL = getEnvOrDefault("NATS_URL", c.NatsURL)
	c.NatsSubject = getEnvOrDefault("NATS_SUBJECT", c.NatsSubject)

	return errors.Join(errs...)
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer (got %q)", key, value))
		return defaultValue
	}
	return result
}

func parseBoolOrDefault(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		*errs = append(*errs, fmt.Errorf("%s must be a boolean (got %q)", key, value))
		return defaultValue
	}
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func applyProvider(dst *Provider, src yaml.ProviderSettings) {
	setString(&dst.APIKey, src.APIKey)
	setString(&dst.BaseURL, src.BaseURL)
	setString(&dst.Model, src.Model)
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "roaster")
}
