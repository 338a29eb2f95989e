// Package config holds all mindloom configuration, loaded from
// ~/.mindloom/config.yaml with MINDLOOM_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all mindloom configuration.
type Config struct {
	// Ollama connection and model selection
	Ollama OllamaConfig `yaml:"ollama"`

	// ChromaDB connection
	Chroma ChromaConfig `yaml:"chroma"`

	// SQLite storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// UI preferences
	UI UIConfig `yaml:"ui"`
}

// OllamaConfig configures the model runtime.
type OllamaConfig struct {
	BaseURL        string  `yaml:"base_url"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Temperature    float64 `yaml:"temperature"`
	TopP           float64 `yaml:"top_p"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
}

// ChromaConfig configures the vector database.
type ChromaConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	Collection string `yaml:"collection"`
}

// StorageConfig configures SQLite persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig mirrors the logging package's expectations.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// UIConfig holds display preferences.
type UIConfig struct {
	DarkMode *bool `yaml:"dark_mode,omitempty"` // nil = auto-detect
}

// Home returns the mindloom home directory (~/.mindloom), honoring
// MINDLOOM_HOME.
func Home() string {
	if h := os.Getenv("MINDLOOM_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mindloom"
	}
	return filepath.Join(home, ".mindloom")
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			ChatModel:      "llama3.2",
			EmbeddingModel: "nomic-embed-text",
			Temperature:    0.7,
			TopP:           0.9,
			TimeoutSecs:    120,
		},
		Chroma: ChromaConfig{
			BaseURL:    "http://localhost:8000",
			Collection: "mindloom_documents",
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(Home(), "mindloom.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MINDLOOM_OLLAMA_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
	if v := os.Getenv("MINDLOOM_CHAT_MODEL"); v != "" {
		c.Ollama.ChatModel = v
	}
	if v := os.Getenv("MINDLOOM_EMBEDDING_MODEL"); v != "" {
		c.Ollama.EmbeddingModel = v
	}
	if v := os.Getenv("MINDLOOM_CHROMA_URL"); v != "" {
		c.Chroma.BaseURL = v
	}
	if v := os.Getenv("MINDLOOM_CHROMA_TOKEN"); v != "" {
		c.Chroma.Token = v
	}
	if v := os.Getenv("MINDLOOM_DB"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("MINDLOOM_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// Validate checks the fields other components depend on.
func (c *Config) Validate() error {
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama base_url must not be empty")
	}
	if c.Ollama.ChatModel == "" {
		return fmt.Errorf("ollama chat_model must not be empty")
	}
	if c.Chroma.Collection == "" {
		return fmt.Errorf("chroma collection must not be empty")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path must not be empty")
	}
	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		return fmt.Errorf("ollama temperature out of range: %v", c.Ollama.Temperature)
	}
	return nil
}
