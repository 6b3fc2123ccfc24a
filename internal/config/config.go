// Package config loads the YAML configuration file, applies environment
// overrides, and watches the file for live log-level changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration.
type Config struct {
	// Core identity
	Name string `yaml:"name"`

	// Cognitive loop
	Loop LoopConfig `yaml:"loop"`

	// Signal bus
	Bus BusConfig `yaml:"bus"`

	// Thought bridge / LLM
	Thought ThoughtConfig `yaml:"thought"`

	// Body bridge / websocket host
	Body BodyConfig `yaml:"body"`

	// Persistence
	Persist PersistConfig `yaml:"persist"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LoopConfig configures the frame scheduler.
type LoopConfig struct {
	FrameInterval     string `yaml:"frame_interval"`
	NotifyEveryFrames uint64 `yaml:"notify_every_frames"`
	PersistEvery      string `yaml:"persist_every"`
}

// BusConfig configures the signal bus.
type BusConfig struct {
	HistorySize int    `yaml:"history_size"`
	DefaultTTL  string `yaml:"default_ttl"`
}

// ThoughtConfig configures the thought bridge and its genai client.
type ThoughtConfig struct {
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	Timeout      string `yaml:"timeout"`
	DedupWindow  string `yaml:"dedup_window"`
	FallbackText string `yaml:"fallback_text"`
	Persona      string `yaml:"persona"`
}

// BodyConfig configures the body bridge.
type BodyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// PersistConfig configures the sqlite store.
type PersistConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures the zap backend.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "alive",
		Loop: LoopConfig{
			FrameInterval:     "16ms",
			NotifyEveryFrames: 30,
			PersistEvery:      "10s",
		},
		Bus: BusConfig{
			HistorySize: 100,
			DefaultTTL:  "30s",
		},
		Thought: ThoughtConfig{
			Model:        "gemini-2.5-flash",
			Timeout:      "30s",
			DedupWindow:  "1500ms",
			FallbackText: "Hmm... I lost my train of thought for a moment.",
			Persona:      "a small curious presence, warm and plainspoken",
		},
		Body: BodyConfig{
			Enabled: false,
			URL:     "ws://localhost:8765/body",
			Timeout: "60s",
		},
		Persist: PersistConfig{
			DatabasePath: DefaultDatabasePath(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDatabasePath returns ~/.alive/alive.db, falling back to the working
// directory when the home directory is unknown.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "alive.db"
	}
	return filepath.Join(home, ".alive", "alive.db")
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ALIVE_GENAI_API_KEY"); key != "" {
		c.Thought.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Thought.APIKey == "" {
		c.Thought.APIKey = key
	}
	if url := os.Getenv("ALIVE_BODY_URL"); url != "" {
		c.Body.URL = url
		c.Body.Enabled = true
	}
	if path := os.Getenv("ALIVE_DB"); path != "" {
		c.Persist.DatabasePath = path
	}
	if level := os.Getenv("ALIVE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetFrameInterval returns the frame interval as a duration.
func (c *Config) GetFrameInterval() time.Duration {
	d, err := time.ParseDuration(c.Loop.FrameInterval)
	if err != nil || d <= 0 {
		return 16 * time.Millisecond
	}
	return d
}

// GetPersistEvery returns the periodic state-save cadence as a duration.
func (c *Config) GetPersistEvery() time.Duration {
	d, err := time.ParseDuration(c.Loop.PersistEvery)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetBusTTL returns the default signal TTL as a duration.
func (c *Config) GetBusTTL() time.Duration {
	d, err := time.ParseDuration(c.Bus.DefaultTTL)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetThoughtTimeout returns the thought bridge deadline as a duration.
func (c *Config) GetThoughtTimeout() time.Duration {
	d, err := time.ParseDuration(c.Thought.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetDedupWindow returns the thought dedup window as a duration.
func (c *Config) GetDedupWindow() time.Duration {
	d, err := time.ParseDuration(c.Thought.DedupWindow)
	if err != nil || d <= 0 {
		return 1500 * time.Millisecond
	}
	return d
}

// GetBodyTimeout returns the body dispatch deadline as a duration.
func (c *Config) GetBodyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Body.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// DefaultPath returns the default config file location, ~/.alive/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".alive", "config.yaml")
}
