package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sysaudit/sysaudit/internal/util"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Reports  ReportsConfig  `yaml:"reports"`
	Verbose  bool           `yaml:"-"` // Set via CLI only
}

// LLMConfig holds generative backend settings
type LLMConfig struct {
	Provider       string `yaml:"provider"` // ollama, openai, none
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AnalysisConfig holds analysis thresholds
type AnalysisConfig struct {
	ComplexityThreshold int     `yaml:"complexity_threshold"`
	MinConfidence       float64 `yaml:"min_confidence"`
}

// ReportsConfig holds report output settings
type ReportsConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "ollama",
			BaseURL:        "http://localhost:11434",
			Model:          "qwen2.5-coder:7b",
			TimeoutSeconds: 120,
		},
		Analysis: AnalysisConfig{
			ComplexityThreshold: 10,
			MinConfidence:       0.6,
		},
		Reports: ReportsConfig{
			OutputDir: "reports",
		},
	}
}

// Load reads configuration from file and merges with defaults
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Determine config file path
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil // Use defaults if can't find home
		}
		path = filepath.Join(homeDir, ".config", "sysaudit", "config.yaml")
	}

	path = util.ExpandPath(path)

	// Read config file if it exists
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if file doesn't exist
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Reports.OutputDir = util.ExpandPath(cfg.Reports.OutputDir)

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama", "openai", "none":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}

	if c.LLM.Provider != "none" {
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("base_url is required for provider %s", c.LLM.Provider)
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("model is required for provider %s", c.LLM.Provider)
		}
	}

	if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %g", c.Analysis.MinConfidence)
	}
	if c.Analysis.ComplexityThreshold < 0 {
		return fmt.Errorf("complexity_threshold must be non-negative, got %d", c.Analysis.ComplexityThreshold)
	}

	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		// Check environment variable
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.LLM.APIKey = key
		}
	}

	return nil
}
