package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Overlay OverlayConfig `json:"overlay"`
	Output  OutputConfig  `json:"output"`
	History HistoryConfig `json:"history"`
	Suggest SuggestConfig `json:"suggest"`
	Server  ServerConfig  `json:"server"`
}

// OverlayConfig holds the selection overlay parameters
type OverlayConfig struct {
	HandleRadius float64 `json:"handle_radius"`
	MinSize      float64 `json:"min_size"`
	SeedRatio    float64 `json:"seed_ratio"`
	FrameWidth   float64 `json:"frame_width"`
}

// OutputConfig holds configuration for crop output
type OutputConfig struct {
	OutputDir      string `json:"output_dir"`
	Format         string `json:"format"`
	Quality        int    `json:"quality"`
	Lossless       bool   `json:"lossless"`
	Prefix         string `json:"prefix"`
	FallbackToFull bool   `json:"fallback_to_full"`
}

// HistoryConfig holds configuration for the capture history
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// SuggestConfig holds configuration for subject based selection seeding
type SuggestConfig struct {
	Backend       string  `json:"backend"` // none, local, ollama or llamacpp
	Model         string  `json:"model"`
	URL           string  `json:"url"`
	MinConfidence float64 `json:"min_confidence"`
	SendFormat    string  `json:"send_format"`
	SendSize      int     `json:"send_size"`
	SendQuality   int     `json:"send_quality"`
}

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Addr string `json:"addr"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Overlay: OverlayConfig{
			HandleRadius: 24,
			MinSize:      80,
			SeedRatio:    0.6,
			FrameWidth:   4,
		},
		Output: OutputConfig{
			OutputDir:      "./cropped",
			Format:         "jpg",
			Quality:        95,
			Prefix:         "crop",
			FallbackToFull: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "./history",
		},
		Suggest: SuggestConfig{
			Backend:       "none",
			Model:         "openbmb/minicpm-v4.5",
			MinConfidence: 0.3,
			SendFormat:    "jpg",
			SendSize:      1536,
			SendQuality:   85,
		},
		Server: ServerConfig{
			Addr: ":8090",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Overlay.HandleRadius <= 0 {
		return fmt.Errorf("overlay.handle_radius must be positive")
	}

	if c.Overlay.MinSize < 0 {
		return fmt.Errorf("overlay.min_size cannot be negative")
	}

	if c.Overlay.SeedRatio <= 0 || c.Overlay.SeedRatio > 1 {
		return fmt.Errorf("overlay.seed_ratio must be in (0, 1]")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be jpg, png or webp, got %q", c.Output.Format)
	}

	if c.History.Enabled && c.History.Dir == "" {
		return fmt.Errorf("history.dir cannot be empty when history is enabled")
	}

	switch c.Suggest.Backend {
	case "", "none", "local", "ollama", "llamacpp":
	default:
		return fmt.Errorf("suggest.backend must be none, local, ollama or llamacpp, got %q", c.Suggest.Backend)
	}

	if c.Suggest.MinConfidence < 0 || c.Suggest.MinConfidence > 1 {
		return fmt.Errorf("suggest.min_confidence must be between 0 and 1")
	}

	if c.Suggest.SendQuality < 1 || c.Suggest.SendQuality > 100 {
		return fmt.Errorf("suggest.send_quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "snapcrop", "config.json")
}
