// Package config loads the runtime configuration shared by every component:
// model provider endpoints, RAPTOR indexing parameters, tool registry
// policy, and the planner's bounds. It is read once at startup from
// ~/.neuro/config.yaml (or an explicit path), with environment variables
// able to override any field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all process configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	RAPTOR    RAPTORConfig    `mapstructure:"raptor" yaml:"raptor"`
	Tools     ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	Planner   PlannerConfig   `mapstructure:"planner" yaml:"planner"`
	Classify  ClassifyConfig  `mapstructure:"classify" yaml:"classify"`
	Orchestra OrchestraConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig configures the fast and heavy model providers used by the
// dual-model orchestrator.
type LLMConfig struct {
	FastProvider   string        `mapstructure:"fast_provider" yaml:"fast_provider"`
	FastModel      string        `mapstructure:"fast_model" yaml:"fast_model"`
	FastBaseURL    string        `mapstructure:"fast_base_url" yaml:"fast_base_url"`
	HeavyProvider  string        `mapstructure:"heavy_provider" yaml:"heavy_provider"`
	HeavyModel     string        `mapstructure:"heavy_model" yaml:"heavy_model"`
	HeavyBaseURL   string        `mapstructure:"heavy_base_url" yaml:"heavy_base_url"`
	EmbeddingModel string        `mapstructure:"embedding_model" yaml:"embedding_model"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
}

// RAPTORConfig controls the hierarchical semantic index.
type RAPTORConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	PersistDir string `mapstructure:"persist_dir" yaml:"persist_dir"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	// ChunkMaxChars and ChunkOverlap are measured in characters, not tokens:
	// the chunker windows raw file content directly.
	ChunkMaxChars     int     `mapstructure:"chunk_max_chars" yaml:"chunk_max_chars"`
	ChunkOverlap      int     `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	MaxClusterSize    int     `mapstructure:"max_cluster_size" yaml:"max_cluster_size"`
	MaxTreeDepth      int     `mapstructure:"max_tree_depth" yaml:"max_tree_depth"`
	MinSimilarity     float64 `mapstructure:"min_similarity" yaml:"min_similarity"`
	EmbeddingCacheCap int     `mapstructure:"embedding_cache_capacity" yaml:"embedding_cache_capacity"`
	QuickIndexFiles   int     `mapstructure:"quick_index_max_files" yaml:"quick_index_max_files"`
}

// ToolsConfig bounds tool registry concurrency and retry behavior.
type ToolsConfig struct {
	MaxConcurrent    int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	DefaultTimeout   time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	RetryAttempts    int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	DegradeOnFailure bool          `mapstructure:"degrade_on_failure" yaml:"degrade_on_failure"`
}

// PlannerConfig bounds the planning engine.
type PlannerConfig struct {
	MaxTasks       int `mapstructure:"max_tasks" yaml:"max_tasks"`
	MaxReplans     int `mapstructure:"max_replans" yaml:"max_replans"`
	MaxTaskRetries int `mapstructure:"max_task_retries" yaml:"max_task_retries"`
}

// ClassifyConfig tunes the two-tier query classifier.
type ClassifyConfig struct {
	CacheSize          int     `mapstructure:"cache_size" yaml:"cache_size"`
	SimilarityThresh   float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	ConfidenceFloor    float64 `mapstructure:"confidence_floor" yaml:"confidence_floor"`
	DowngradeOnLowConf bool    `mapstructure:"downgrade_on_low_confidence" yaml:"downgrade_on_low_confidence"`
}

// OrchestraConfig bounds the dual-model orchestrator's concurrency.
type OrchestraConfig struct {
	MaxConcurrentTasks int           `mapstructure:"max_concurrent_tasks" yaml:"max_concurrent_tasks"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout" yaml:"task_timeout"`
}

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the baseline configuration used when no file exists yet
// and no override is supplied.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			FastProvider:   "ollama",
			FastModel:      "qwen2.5:7b",
			FastBaseURL:    "http://localhost:11434",
			HeavyProvider:  "ollama",
			HeavyModel:     "qwen2.5:32b",
			HeavyBaseURL:   "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			RequestTimeout: 120 * time.Second,
			MaxTokens:      4096,
			Temperature:    0.2,
		},
		RAPTOR: RAPTORConfig{
			Enabled:           true,
			PersistDir:        "~/.neuro/raptor",
			Collection:        "code",
			ChunkMaxChars:     2000,
			ChunkOverlap:      200,
			MaxClusterSize:    10,
			MaxTreeDepth:      4,
			MinSimilarity:     0.6,
			EmbeddingCacheCap: 4096,
			QuickIndexFiles:   200,
		},
		Tools: ToolsConfig{
			MaxConcurrent:    8,
			DefaultTimeout:   30 * time.Second,
			RetryAttempts:    2,
			DegradeOnFailure: true,
		},
		Planner: PlannerConfig{
			MaxTasks:       20,
			MaxReplans:     3,
			MaxTaskRetries: 1,
		},
		Classify: ClassifyConfig{
			CacheSize:          512,
			SimilarityThresh:   0.85,
			ConfidenceFloor:    0.8,
			DowngradeOnLowConf: true,
		},
		Orchestra: OrchestraConfig{
			MaxConcurrentTasks: 2,
			TaskTimeout:        180 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the default location (~/.neuro/config.yaml),
// creating it with defaults if it doesn't exist yet.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".neuro", "config.yaml"))
}

// LoadFromPath reads configuration from path, merging in NEURO_-prefixed
// environment variable overrides. The file is created with defaults when
// absent.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("NEURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.RAPTOR.PersistDir = expandPath(cfg.RAPTOR.PersistDir)
	return cfg, nil
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
