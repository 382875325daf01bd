package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig represents a .repolens.yaml file controlling the analysis
// heuristics. Every threshold here is tunable policy, not derived logic.
type AnalysisConfig struct {
	Version string `yaml:"version"`

	// File selection
	Exclude []string `yaml:"exclude,omitempty"`

	// Heuristic naming sets
	EntryPointFiles     []string `yaml:"entry_point_files,omitempty"`
	EntryPointFunctions []string `yaml:"entry_point_functions,omitempty"`
	ConfigFileNames     []string `yaml:"config_file_names,omitempty"`
	LayerNames          []string `yaml:"layer_names,omitempty"`

	// Architecture pattern thresholds
	Patterns PatternThresholds `yaml:"patterns,omitempty"`
}

// PatternThresholds holds the cutoffs for architecture pattern tagging.
// These are best-effort heuristic constants, carried as configuration.
type PatternThresholds struct {
	// MVCMinHits tags MVC when model/view/controller path hits exceed it.
	MVCMinHits int `yaml:"mvc_min_hits,omitempty"`
	// MicroservicesFraction tags Microservices when the fraction of files
	// whose path contains "service" exceeds it.
	MicroservicesFraction float64 `yaml:"microservices_fraction,omitempty"`
	// LayeredFraction tags Layered Architecture when the fraction of files
	// whose path contains a layer name exceeds it.
	LayeredFraction float64 `yaml:"layered_fraction,omitempty"`
}

// DefaultAnalysisConfig returns sensible defaults
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Version: "1.0",
		Exclude: []string{
			".git",
			"node_modules",
			"__pycache__",
			".venv",
			"venv",
			"dist",
			"build",
			"target",
			"vendor",
			".pytest_cache",
			".idea",
			".vscode",
			"bin",
		},
		EntryPointFiles:     []string{"main", "app", "index", "server"},
		EntryPointFunctions: []string{"main", "run", "execute"},
		ConfigFileNames: []string{
			"package.json",
			"requirements.txt",
			"pom.xml",
			"build.gradle",
			"setup.py",
			"pyproject.toml",
			"go.mod",
			".env",
			"config.yaml",
			"config.yml",
			"docker-compose.yml",
			"Dockerfile",
			"Makefile",
		},
		LayerNames: []string{"api", "service", "repository", "domain"},
		Patterns: PatternThresholds{
			MVCMinHits:            3,
			MicroservicesFraction: 0.3,
			LayeredFraction:       0.2,
		},
	}
}

// LoadAnalysisConfig loads a .repolens.yaml from the given directory,
// falling back to defaults when none exists.
func LoadAnalysisConfig(dir string) (*AnalysisConfig, error) {
	configPath := filepath.Join(dir, ".repolens.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join(dir, ".repolens.yml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return DefaultAnalysisConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultAnalysisConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveAnalysisConfig saves the config to .repolens.yaml
func SaveAnalysisConfig(dir string, cfg *AnalysisConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, ".repolens.yaml"), data, 0644)
}
