// Package config loads and validates the engine's configuration: hardcoded
// defaults layered with a config.toml in the data directory and EPIMEM_*
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Aman-CERP/epimem/internal/engerr"
)

// RetrievalConfig controls the retriever's ranking behavior (spec §4.3, §6.3).
type RetrievalConfig struct {
	DefaultLimit  int     `toml:"default_limit"`
	MinSimilarity float64 `toml:"min_similarity"`
	UtilityWeight float64 `toml:"utility_weight"`
}

// UtilityConfig controls the utility engine's learning mechanisms (spec §4.4).
type UtilityConfig struct {
	DecayRate             float64 `toml:"decay_rate"`
	DiscountFactor        float64 `toml:"discount_factor"`
	LearningRate          float64 `toml:"learning_rate"`
	PropagationThreshold  float64 `toml:"propagation_threshold"`
	SeedThreshold         float64 `toml:"seed_threshold"`
	Fanout                int     `toml:"fanout"`
}

// PruneConfig controls the pruner's candidate selection (spec §4.5).
type PruneConfig struct {
	MaxAgeDays         int     `toml:"max_age_days"`
	MinUtilityThreshold float64 `toml:"min_utility_threshold"`
}

// EmbeddingConfig describes the external embedding collaborator contract
// (spec §1, out-of-scope collaborator; dimension is enforced here).
type EmbeddingConfig struct {
	Dimension int    `toml:"dimension"`
	Provider  string `toml:"provider"` // "static" or "http"
	Endpoint  string `toml:"endpoint"` // used when provider == "http"
	CacheSize int    `toml:"cache_size"`
}

// LoggingConfig controls structured logging (internal/logging).
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Config is the complete engine configuration (spec §6.3).
type Config struct {
	DataDir   string          `toml:"-"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Utility   UtilityConfig   `toml:"utility"`
	Prune     PruneConfig     `toml:"prune"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Logging   LoggingConfig   `toml:"logging"`
}

// FileName is the on-disk configuration file name (spec §6.2).
const FileName = "config.toml"

// Default returns the hardcoded defaults (spec §6.3).
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			DefaultLimit:  3,
			MinSimilarity: 0.5,
			UtilityWeight: 0.7,
		},
		Utility: UtilityConfig{
			DecayRate:            0.01,
			DiscountFactor:       0.9,
			LearningRate:         0.1,
			PropagationThreshold: 0.5,
			SeedThreshold:        0.6,
			Fanout:               10,
		},
		Prune: PruneConfig{
			MaxAgeDays:          180,
			MinUtilityThreshold: 0.05,
		},
		Embedding: EmbeddingConfig{
			Dimension: 384,
			Provider:  "static",
			CacheSize: 512,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir returns ~/.epimem, falling back to the temp directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".epimem")
	}
	return filepath.Join(home, ".epimem")
}

// Load resolves the effective configuration for dataDir: defaults,
// overridden by <dataDir>/config.toml if present, overridden by EPIMEM_*
// environment variables, then validated.
func Load(dataDir string) (*Config, error) {
	cfg := Default()
	cfg.DataDir = dataDir

	path := filepath.Join(dataDir, FileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, engerr.New(engerr.CodeInvalidConfig, fmt.Sprintf("parsing %s: %v", path, err), nil)
		}
	} else if !os.IsNotExist(err) {
		return nil, engerr.StoreIOError("reading config file", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		if verr, ok := err.(*engerr.Error); ok {
			return nil, engerr.New(engerr.CodeInvalidConfig, verr.Message, verr.Cause)
		}
		return nil, engerr.Wrap(engerr.CodeInvalidConfig, err)
	}
	return cfg, nil
}

// Save writes cfg to <DataDir>/config.toml.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return engerr.InternalError("marshaling config", err)
	}
	path := filepath.Join(c.DataDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return engerr.StoreIOError("writing config file", err)
	}
	return nil
}

// Validate checks that every configured value is within the range the
// engine's formulas require.
func (c *Config) Validate() error {
	if c.Retrieval.DefaultLimit <= 0 {
		return engerr.ValidationError("retrieval.default_limit must be positive", nil)
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return engerr.ValidationError("retrieval.min_similarity must be in [0,1]", nil)
	}
	if c.Retrieval.UtilityWeight < 0 || c.Retrieval.UtilityWeight > 1 {
		return engerr.ValidationError("retrieval.utility_weight must be in [0,1]", nil)
	}
	if c.Utility.DecayRate < 0 {
		return engerr.ValidationError("utility.decay_rate must be non-negative", nil)
	}
	if c.Utility.DiscountFactor < 0 || c.Utility.DiscountFactor > 1 {
		return engerr.ValidationError("utility.discount_factor must be in [0,1]", nil)
	}
	if c.Utility.LearningRate < 0 || c.Utility.LearningRate > 1 {
		return engerr.ValidationError("utility.learning_rate must be in [0,1]", nil)
	}
	if c.Utility.PropagationThreshold < 0 || c.Utility.PropagationThreshold > 1 {
		return engerr.ValidationError("utility.propagation_threshold must be in [0,1]", nil)
	}
	if c.Utility.SeedThreshold < 0 || c.Utility.SeedThreshold > 1 {
		return engerr.ValidationError("utility.seed_threshold must be in [0,1]", nil)
	}
	if c.Utility.Fanout <= 0 {
		return engerr.ValidationError("utility.fanout must be positive", nil)
	}
	if c.Prune.MaxAgeDays < 0 {
		return engerr.ValidationError("prune.max_age_days must be non-negative", nil)
	}
	if c.Prune.MinUtilityThreshold < 0 || c.Prune.MinUtilityThreshold > 1 {
		return engerr.ValidationError("prune.min_utility_threshold must be in [0,1]", nil)
	}
	if c.Embedding.Dimension <= 0 {
		return engerr.ValidationError("embedding.dimension must be positive", nil)
	}
	if c.Embedding.Provider != "static" && c.Embedding.Provider != "http" {
		return engerr.ValidationError("embedding.provider must be \"static\" or \"http\"", nil)
	}
	if c.Embedding.Provider == "http" && c.Embedding.Endpoint == "" {
		return engerr.ValidationError("embedding.endpoint is required when embedding.provider is \"http\"", nil)
	}
	return nil
}

// applyEnvOverrides applies EPIMEM_* environment variables, highest
// precedence layer per the loading order in Load.
func applyEnvOverrides(cfg *Config) {
	overrideInt("EPIMEM_RETRIEVAL_DEFAULT_LIMIT", &cfg.Retrieval.DefaultLimit)
	overrideFloat("EPIMEM_RETRIEVAL_MIN_SIMILARITY", &cfg.Retrieval.MinSimilarity)
	overrideFloat("EPIMEM_RETRIEVAL_UTILITY_WEIGHT", &cfg.Retrieval.UtilityWeight)
	overrideFloat("EPIMEM_UTILITY_DECAY_RATE", &cfg.Utility.DecayRate)
	overrideFloat("EPIMEM_UTILITY_DISCOUNT_FACTOR", &cfg.Utility.DiscountFactor)
	overrideFloat("EPIMEM_UTILITY_LEARNING_RATE", &cfg.Utility.LearningRate)
	overrideFloat("EPIMEM_UTILITY_PROPAGATION_THRESHOLD", &cfg.Utility.PropagationThreshold)
	overrideFloat("EPIMEM_UTILITY_SEED_THRESHOLD", &cfg.Utility.SeedThreshold)
	overrideInt("EPIMEM_UTILITY_FANOUT", &cfg.Utility.Fanout)
	overrideInt("EPIMEM_PRUNE_MAX_AGE_DAYS", &cfg.Prune.MaxAgeDays)
	overrideFloat("EPIMEM_PRUNE_MIN_UTILITY_THRESHOLD", &cfg.Prune.MinUtilityThreshold)
	overrideInt("EPIMEM_EMBEDDING_DIMENSION", &cfg.Embedding.Dimension)
	overrideString("EPIMEM_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	overrideString("EPIMEM_EMBEDDING_ENDPOINT", &cfg.Embedding.Endpoint)
	overrideString("EPIMEM_LOGGING_LEVEL", &cfg.Logging.Level)
}

func overrideString(key string, target *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*target = v
	}
}

func overrideInt(key string, target *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func overrideFloat(key string, target *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}
