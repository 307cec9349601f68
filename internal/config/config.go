package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains the program configuration
type Config struct {
	LibraryDir          string `yaml:"library_dir"`
	Verbose             bool   `yaml:"verbose"`
	ParallelJobs        int    `yaml:"parallel_jobs"`
	TempoServiceURL     string `yaml:"tempo_service_url"`
	TempoTimeoutSeconds int    `yaml:"tempo_timeout_seconds"`
	PruneRemote         bool   `yaml:"prune_remote"`

	StoreEndpoint string `yaml:"store_endpoint"`
	StoreBucket   string `yaml:"store_bucket"`
	StoreRegion   string `yaml:"store_region"`
	StoreUseSSL   bool   `yaml:"store_use_ssl"`
}

// Subdirectories of the library that map to the remote key namespaces.
const (
	MusicSubdir  = "music"
	VideosSubdir = "videos"
)

// MusicDir returns the canonical audio library location.
func (c *Config) MusicDir() string {
	return filepath.Join(c.LibraryDir, MusicSubdir)
}

// VideosDir returns the canonical video library location.
func (c *Config) VideosDir() string {
	return filepath.Join(c.LibraryDir, VideosSubdir)
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		LibraryDir:          "./library",
		ParallelJobs:        4,
		TempoTimeoutSeconds: 120,
		StoreUseSSL:         true,
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.LibraryDir = ExpandHome(cfg.LibraryDir)

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./mediasync.yaml",
		"./mediasync.yml",
		filepath.Join(home, ".config", "mediasync", "config.yaml"),
		filepath.Join(home, ".config", "mediasync", "config.yml"),
		filepath.Join(home, ".mediasync.yaml"),
		filepath.Join(home, ".mediasync.yml"),
	}

	for _, path := range locations {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "mediasync", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.LibraryDir == "" {
		return fmt.Errorf("library_dir cannot be empty")
	}

	if c.ParallelJobs < 1 {
		return fmt.Errorf("parallel jobs must be at least 1, got %d", c.ParallelJobs)
	}
	if c.ParallelJobs > 10 {
		return fmt.Errorf("parallel jobs cannot exceed 10, got %d", c.ParallelJobs)
	}

	if c.TempoServiceURL != "" &&
		!strings.HasPrefix(c.TempoServiceURL, "http://") &&
		!strings.HasPrefix(c.TempoServiceURL, "https://") {
		return fmt.Errorf("tempo_service_url must start with http:// or https://")
	}

	if c.TempoTimeoutSeconds < 1 {
		return fmt.Errorf("tempo_timeout_seconds must be at least 1, got %d", c.TempoTimeoutSeconds)
	}

	if c.StoreEndpoint != "" && c.StoreBucket == "" {
		return fmt.Errorf("store_bucket is required when store_endpoint is set")
	}

	return nil
}
