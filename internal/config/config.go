// Package config provides configuration management for the BRD verifier.
//
// Configuration can be loaded from multiple sources (in order of precedence):
// 1. Environment variables (highest priority)
// 2. Configuration file (JSON)
// 3. Default values (lowest priority)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/codesense-ai/brd-verifier/internal/types"
)

// Config is the complete process configuration.
type Config struct {
	Server       ServerConfig             `json:"server"`
	Verification types.VerificationConfig `json:"verification"`
	Backends     BackendConfig            `json:"backends"`
	Features     FeatureFlags             `json:"features"`
	Logging      LoggingConfig            `json:"logging"`
}

// ServerConfig contains process-level configuration.
type ServerConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// BackendConfig selects which concrete implementation backs each external
// collaborator.
type BackendConfig struct {
	// GraphBackend is "mcp" or "neo4j".
	GraphBackend string `json:"graph_backend"`
	// FilesystemBackend is "mcp" or "local".
	FilesystemBackend string `json:"filesystem_backend"`
	// LLMBackend is "anthropic" or "mock".
	LLMBackend string `json:"llm_backend"`
	// WorkspaceRoot bounds the local filesystem backend.
	WorkspaceRoot string `json:"workspace_root"`
	// ContextCacheBackend is "memory" or "sqlite".
	ContextCacheBackend string `json:"context_cache_backend"`
	// ContextCacheFallback is used if ContextCacheBackend fails to init.
	ContextCacheFallback string `json:"context_cache_fallback"`
	// SQLitePath is the path to the context cache database file.
	SQLitePath string `json:"sqlite_path"`
}

// FeatureFlags controls which optional components are active.
type FeatureFlags struct {
	SimilarFeaturesEnabled bool `json:"similar_features_enabled"`
	ContextCacheEnabled    bool `json:"context_cache_enabled"`
	LLMFallbackMode        bool `json:"llm_fallback_mode"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"`
	EnableTimestamps bool   `json:"enable_timestamps"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "brd-verifier",
			Version:     "0.1.0",
			Environment: "development",
		},
		Verification: types.DefaultVerificationConfig(),
		Backends: BackendConfig{
			GraphBackend:         "mcp",
			FilesystemBackend:    "mcp",
			LLMBackend:           "anthropic",
			WorkspaceRoot:        ".",
			ContextCacheBackend:  "memory",
			ContextCacheFallback: "",
			SQLitePath:           "brd_context_cache.db",
		},
		Features: FeatureFlags{
			SimilarFeaturesEnabled: true,
			ContextCacheEnabled:    true,
			LLMFallbackMode:        true,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			EnableTimestamps: true,
		},
	}
}

// Load loads configuration from environment variables over the defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads a JSON config file, then overlays environment
// variables on top.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables. Variables
// follow the pattern BRD_<SECTION>_<KEY>.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("BRD_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("BRD_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}

	if v := os.Getenv("BRD_VERIFICATION_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Verification.MaxIterations = n
		}
	}
	if v := os.Getenv("BRD_VERIFICATION_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Verification.MinConfidenceForApproval = f
		}
	}
	if v := os.Getenv("BRD_VERIFICATION_DETAIL_LEVEL"); v != "" {
		c.Verification.DetailLevel = types.DetailLevel(strings.ToLower(v))
	}
	if v := os.Getenv("BRD_VERIFICATION_MAX_CONTEXT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Verification.MaxContextTokens = n
		}
	}

	if v := os.Getenv("BRD_BACKENDS_GRAPH"); v != "" {
		c.Backends.GraphBackend = v
	}
	if v := os.Getenv("BRD_BACKENDS_FILESYSTEM"); v != "" {
		c.Backends.FilesystemBackend = v
	}
	if v := os.Getenv("BRD_BACKENDS_LLM"); v != "" {
		c.Backends.LLMBackend = v
	}
	if v := os.Getenv("BRD_BACKENDS_WORKSPACE_ROOT"); v != "" {
		c.Backends.WorkspaceRoot = v
	}
	if v := os.Getenv("BRD_BACKENDS_CONTEXT_CACHE"); v != "" {
		c.Backends.ContextCacheBackend = v
	}
	if v := os.Getenv("BRD_BACKENDS_CONTEXT_CACHE_FALLBACK"); v != "" {
		c.Backends.ContextCacheFallback = v
	}
	if v := os.Getenv("BRD_BACKENDS_SQLITE_PATH"); v != "" {
		c.Backends.SQLitePath = v
	}

	if v := os.Getenv("BRD_FEATURES_SIMILAR_FEATURES"); v != "" {
		c.Features.SimilarFeaturesEnabled = parseBool(v)
	}
	if v := os.Getenv("BRD_FEATURES_CONTEXT_CACHE"); v != "" {
		c.Features.ContextCacheEnabled = parseBool(v)
	}
	if v := os.Getenv("BRD_FEATURES_LLM_FALLBACK"); v != "" {
		c.Features.LLMFallbackMode = parseBool(v)
	}

	if v := os.Getenv("BRD_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("BRD_LOGGING_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("BRD_LOGGING_ENABLE_TIMESTAMPS"); v != "" {
		c.Logging.EnableTimestamps = parseBool(v)
	}

	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	if c.Verification.MaxIterations < 1 {
		return fmt.Errorf("verification.max_iterations must be >= 1")
	}
	if c.Verification.MinConfidenceForApproval < 0 || c.Verification.MinConfidenceForApproval > 1 {
		return fmt.Errorf("verification.min_confidence_for_approval must be in [0,1]")
	}
	switch c.Verification.DetailLevel {
	case types.DetailConcise, types.DetailStandard, types.DetailDetailed:
	default:
		return fmt.Errorf("verification.detail_level must be one of: concise, standard, detailed")
	}
	if c.Verification.MaxContextTokens < 1 {
		return fmt.Errorf("verification.max_context_tokens must be >= 1")
	}
	if c.Backends.GraphBackend != "mcp" && c.Backends.GraphBackend != "neo4j" {
		return fmt.Errorf("backends.graph_backend must be 'mcp' or 'neo4j'")
	}
	if c.Backends.FilesystemBackend != "mcp" && c.Backends.FilesystemBackend != "local" {
		return fmt.Errorf("backends.filesystem_backend must be 'mcp' or 'local'")
	}
	if c.Backends.LLMBackend != "anthropic" && c.Backends.LLMBackend != "mock" {
		return fmt.Errorf("backends.llm_backend must be 'anthropic' or 'mock'")
	}
	if c.Backends.ContextCacheBackend != "memory" && c.Backends.ContextCacheBackend != "sqlite" {
		return fmt.Errorf("backends.context_cache_backend must be 'memory' or 'sqlite'")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ToJSON serializes the configuration to indented JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
