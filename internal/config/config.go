package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the sift configuration
type Config struct {
	Me        MeConfig        `yaml:"me"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Tiers     TierThresholds  `yaml:"tiers"`

	// BlacklistPath points at the JSON policy file of excluded threads.
	// Empty means <config dir>/blacklist.json.
	BlacklistPath string `yaml:"blacklist_path,omitempty"`
}

// MeConfig identifies the user so contact scoring can exclude self-authored
// identities. Matching is a name heuristic, not strict identity resolution.
type MeConfig struct {
	Names []string `yaml:"names"`
}

// EmbeddingConfig controls the out-of-band embedding job.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BatchSize int    `yaml:"batch_size"`
}

// ScoringConfig carries the priority formula weights. Zero values fall back
// to the package defaults in internal/analytics.
type ScoringConfig struct {
	Thread  ThreadWeights  `yaml:"thread"`
	Contact ContactWeights `yaml:"contact"`
	Email   EmailWeights   `yaml:"email"`
}

// ThreadWeights weight the thread priority formula terms.
type ThreadWeights struct {
	Outbound     float64 `yaml:"outbound"`
	Reciprocity  float64 `yaml:"reciprocity"`
	Recent       float64 `yaml:"recent"`
	Volume       float64 `yaml:"volume"`
	RecentDays   int     `yaml:"recent_days"`
	HalfLifeDays float64 `yaml:"half_life_days"`
}

// ContactWeights weight the contact priority formula terms.
type ContactWeights struct {
	Outbound  float64 `yaml:"outbound"`
	Volume    float64 `yaml:"volume"`
	Recency   float64 `yaml:"recency"`
	Diversity float64 `yaml:"diversity"`
}

// EmailWeights weight the email priority formula terms.
type EmailWeights struct {
	PerMessage   float64 `yaml:"per_message"`
	Financial    float64 `yaml:"financial"`
	Urgency      float64 `yaml:"urgency"`
	Question     float64 `yaml:"question"`
	HalfLifeDays float64 `yaml:"half_life_days"`
}

// TierThresholds configure relationship tier classification.
type TierThresholds struct {
	EngagedThreshold int `yaml:"engaged_threshold"`
	MinimumActivity  int `yaml:"minimum_activity"`
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("SIFT_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "sift"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("SIFT_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Sift"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sift"), nil
	}

	return filepath.Join(home, ".local", "share", "sift"), nil
}

// Load loads config from the config file
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default empty config
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Save saves the config to the config file
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ResolveBlacklistPath returns the configured blacklist file path, defaulting
// to blacklist.json inside the config directory.
func (c *Config) ResolveBlacklistPath() (string, error) {
	if c.BlacklistPath != "" {
		return c.BlacklistPath, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "blacklist.json"), nil
}
