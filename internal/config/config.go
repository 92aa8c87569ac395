// Package config resolves the per-user data root and holds gardener's
// configuration, following the teacher's YAML-backed Config/DefaultConfig/
// Load/Save/applyEnvOverrides shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gardener configuration.
type Config struct {
	DataRoot string `yaml:"data_root"`

	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
	Adapter   AdapterConfig   `yaml:"adapter"`
	Context   ContextConfig   `yaml:"context"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
}

// LLMConfig configures the external LLM inference endpoint.
type LLMConfig struct {
	Host           string `yaml:"host"`
	Model          string `yaml:"model"`
	ConnectTimeout string `yaml:"connect_timeout"`
	RequestTimeout string `yaml:"request_timeout"`
}

// EmbeddingConfig configures the embedding generator capability.
type EmbeddingConfig struct {
	Provider        string `yaml:"provider"` // "ollama" or "genai"
	OllamaEndpoint  string `yaml:"ollama_endpoint"`
	OllamaModel     string `yaml:"ollama_model"`
	GenAIAPIKey     string `yaml:"genai_api_key"`
	GenAIModel      string `yaml:"genai_model"`
	TaskType        string `yaml:"task_type"`
	BatchByteBudget int    `yaml:"batch_byte_budget"`
}

// LoggingConfig configures the file-based category logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"`
}

// AdapterConfig configures the Dynamic Adapter Loader's memory budget.
type AdapterConfig struct {
	MaxMemoryBytes int64 `yaml:"max_adapter_memory_bytes"`
	MaxCached      int   `yaml:"max_cached_adapters"`
}

// ContextConfig configures the Project Context Manager.
type ContextConfig struct {
	MaxMessagesPerProject int `yaml:"max_messages_per_project"`
	MaxContextsInMemory   int `yaml:"max_contexts_in_memory"`
}

// RetrievalConfig configures chat-time retrieval from the vector index.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// ChunkingConfig bounds chunk size during parsing.
type ChunkingConfig struct {
	MinChars int `yaml:"min_chars"`
	MaxChars int `yaml:"max_chars"`
}

// DefaultConfig returns gardener's default configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		DataRoot: filepath.Join(home, ".codebase-gardener"),

		LLM: LLMConfig{
			Host:           "http://localhost:11434",
			Model:          "",
			ConnectTimeout: "5s",
			RequestTimeout: "120s",
		},

		Embedding: EmbeddingConfig{
			Provider:        "ollama",
			OllamaEndpoint:  "http://localhost:11434",
			OllamaModel:     "embeddinggemma",
			GenAIModel:      "gemini-embedding-001",
			TaskType:        "SEMANTIC_SIMILARITY",
			BatchByteBudget: 1 << 20, // 1MB per batch
		},

		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
		},

		Adapter: AdapterConfig{
			MaxMemoryBytes: 4*1024*1024*1024 + 512*1024*1024, // 4.5 GB
			MaxCached:      4,
		},

		Context: ContextConfig{
			MaxMessagesPerProject: 200,
			MaxContextsInMemory:   8,
		},

		Retrieval: RetrievalConfig{
			TopK:     5,
			MinScore: 0,
		},

		Chunking: ChunkingConfig{
			MinChars: 40,
			MaxChars: 4000,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults if
// the file does not exist. Environment overrides are always applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers environment variables over the loaded config,
// following §6's common-prefix-free variable names.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATA_ROOT"); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv("LLM_HOST"); v != "" {
		c.LLM.Host = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Logging.Debug = v == "1" || v == "true"
	}
	if v := os.Getenv("MAX_ADAPTER_MEMORY_BYTES"); v != "" {
		if n, err := parseInt64(v); err == nil {
			c.Adapter.MaxMemoryBytes = n
		}
	}
	if v := os.Getenv("MAX_CACHED_ADAPTERS"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Adapter.MaxCached = n
		}
	}
	if v := os.Getenv("MAX_MESSAGES_PER_PROJECT"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Context.MaxMessagesPerProject = n
		}
	}
	if v := os.Getenv("MAX_CONTEXTS_IN_MEMORY"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Context.MaxContextsInMemory = n
		}
	}
	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Retrieval.TopK = n
		}
	}
	if v := os.Getenv("RETRIEVAL_MIN_SCORE"); v != "" {
		if f, err := parseFloat(v); err == nil {
			c.Retrieval.MinScore = f
		}
	}
	if v := os.Getenv("CHUNK_MIN_CHARS"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Chunking.MinChars = n
		}
	}
	if v := os.Getenv("CHUNK_MAX_CHARS"); v != "" {
		if n, err := parseInt(v); err == nil {
			c.Chunking.MaxChars = n
		}
	}
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultRequestTimeout = 120 * time.Second
)

// GetConnectTimeout returns the LLM connect timeout as a duration.
func (c *Config) GetConnectTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.ConnectTimeout)
	if err != nil {
		return defaultConnectTimeout
	}
	return d
}

// GetRequestTimeout returns the LLM overall request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.RequestTimeout)
	if err != nil {
		return defaultRequestTimeout
	}
	return d
}

// Paths returns the resolved on-disk layout described in §6.
func (c *Config) Paths() Paths {
	return Paths{
		DataRoot:          c.DataRoot,
		BaseModels:        filepath.Join(c.DataRoot, "base_models"),
		ProjectsDir:       filepath.Join(c.DataRoot, "projects"),
		LogsDir:           filepath.Join(c.DataRoot, "logs"),
		RegistryFile:      filepath.Join(c.DataRoot, "registry.json"),
		ActiveProjectFile: filepath.Join(c.DataRoot, "active_project.json"),
	}
}

// Paths is the fixed sub-layout under a data root (§6).
type Paths struct {
	DataRoot          string
	BaseModels        string
	ProjectsDir       string
	LogsDir           string
	RegistryFile      string
	ActiveProjectFile string
}

// ProjectDir returns the per-project directory for the given id.
func (p Paths) ProjectDir(id string) string {
	return filepath.Join(p.ProjectsDir, id)
}

// ProjectMetadataFile returns a project's metadata.json path.
func (p Paths) ProjectMetadataFile(id string) string {
	return filepath.Join(p.ProjectDir(id), "metadata.json")
}

// ProjectContextFile returns a project's context.json path.
func (p Paths) ProjectContextFile(id string) string {
	return filepath.Join(p.ProjectDir(id), "context.json")
}

// ProjectVectorStoreDir returns a project's vector_store directory.
func (p Paths) ProjectVectorStoreDir(id string) string {
	return filepath.Join(p.ProjectDir(id), "vector_store")
}

// ProjectAdapterDir returns a project's adapter directory.
func (p Paths) ProjectAdapterDir(id string) string {
	return filepath.Join(p.ProjectDir(id), "adapter")
}

// ProjectTrainingLog returns a project's training.log path.
func (p Paths) ProjectTrainingLog(id string) string {
	return filepath.Join(p.ProjectDir(id), "training.log")
}

func parseInt(s string) (int, error) {
	n, err := parseInt64(s)
	return int(n), err
}

func parseInt64(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
