// Package config provides configuration management for the raglet
// retrieval system. It handles loading, validation, and persistence
// with support for multiple sources:
//   - Configuration files (JSON)
//   - Environment variables
//   - Programmatic defaults
//
// Settings can be overridden in the following order (highest to lowest
// precedence):
//  1. Environment variables
//  2. Configuration file
//  3. Default values
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the retrieval system.
type Config struct {
	// Provider settings configure the embedding provider
	Provider string            // Embedding provider (e.g., "modelscope", "openai")
	Model    string            // Model identifier for embeddings
	APIKeys  map[string]string // API keys per provider

	// Corpus settings define where theorem files live
	CorpusDir   string   // Directory holding the JSON corpus partitions
	CorpusFiles []string // Partition names; empty means the default set

	// Vector store settings
	StoreType    string // "memory", "milvus" or "chromem"
	StoreAddress string // Backend address or persistence path
	Collection   string // Name of the vector collection

	// Retrieval settings control ranking behavior
	DefaultTopK      int     // Number of results to return
	ContextTopK      int     // Number of results folded into an LLM context block
	DefaultMinScore  float64 // Similarity threshold; results at or below are dropped
	MaxContextTokens int     // Token budget for assembled context blocks

	// Indexing settings
	BatchSize int     // Theorems per embedding call
	RateLimit float64 // Embedding calls per second during bulk indexing; 0 = unlimited

	// Timeouts and retries for provider operations
	Timeout    time.Duration
	MaxRetries int
}

// LoadConfig loads configuration from multiple sources, combining them
// according to the precedence rules.
//
// Configuration file search paths:
//  1. $RAGLET_CONFIG environment variable
//  2. ~/.raglet/config.json
//  3. ~/.config/raglet/config.json
//  4. ./raglet.json
//
// Environment variable overrides:
//   - RAGLET_PROVIDER: Embedding provider
//   - RAGLET_MODEL: Model identifier
//   - RAGLET_API_KEY: API key for the selected provider
//   - RAGLET_CORPUS_DIR: Corpus directory
//   - RAGLET_STORE: Vector store type
//   - RAGLET_COLLECTION: Collection name
//   - RAGLET_TOP_K: Default result count
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Provider:         "modelscope",
		Model:            "Qwen/Qwen3-Embedding-8B",
		CorpusDir:        "data",
		StoreType:        "memory",
		Collection:       "theorems",
		DefaultTopK:      5,
		ContextTopK:      3,
		DefaultMinScore:  0.2,
		MaxContextTokens: 1024,
		BatchSize:        10,
		Timeout:          30 * time.Second,
		MaxRetries:       3,
		APIKeys:          make(map[string]string),
	}

	configFile := os.Getenv("RAGLET_CONFIG")
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			candidates := []string{
				filepath.Join(home, ".raglet", "config.json"),
				filepath.Join(home, ".config", "raglet", "config.json"),
				"raglet.json",
			}
			for _, candidate := range candidates {
				if _, err := os.Stat(candidate); err == nil {
					configFile = candidate
					break
				}
			}
		}
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if provider := os.Getenv("RAGLET_PROVIDER"); provider != "" {
		cfg.Provider = provider
	}
	if model := os.Getenv("RAGLET_MODEL"); model != "" {
		cfg.Model = model
	}
	if apiKey := os.Getenv("RAGLET_API_KEY"); apiKey != "" {
		cfg.APIKeys[cfg.Provider] = apiKey
	}
	if dir := os.Getenv("RAGLET_CORPUS_DIR"); dir != "" {
		cfg.CorpusDir = dir
	}
	if store := os.Getenv("RAGLET_STORE"); store != "" {
		cfg.StoreType = store
	}
	if collection := os.Getenv("RAGLET_COLLECTION"); collection != "" {
		cfg.Collection = collection
	}
	if topK := os.Getenv("RAGLET_TOP_K"); topK != "" {
		if n, err := strconv.Atoi(topK); err == nil && n > 0 {
			cfg.DefaultTopK = n
		}
	}

	return cfg, nil
}

// APIKey returns the key configured for the selected provider.
func (c *Config) APIKey() string {
	return c.APIKeys[c.Provider]
}

// Save persists the configuration to a JSON file at the specified path,
// creating any necessary parent directories.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
