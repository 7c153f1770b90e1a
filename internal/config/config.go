// Package config loads the gateway configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the storage section.
const (
	BackendMemory  = "memory"
	BackendDisk    = "disk"
	BackendLevelDB = "leveldb"
	BackendGCS     = "gcs"
	BackendS3      = "s3"
)

// Config is the YAML gateway configuration.
type Config struct {
	App     string `yaml:"app"`
	Version string `yaml:"version"`

	Server struct {
		Port   int    `yaml:"port"`
		Origin string `yaml:"origin"`
	} `yaml:"server"`

	Storage struct {
		Backend string `yaml:"backend"`
		Root    string `yaml:"root"`     // disk / leveldb
		Bucket  string `yaml:"bucket"`   // gcs / s3
		Prefix  string `yaml:"prefix"`   // gcs / s3
		Region  string `yaml:"region"`   // s3
		Entries int    `yaml:"entries"`  // memory bound per partition
	} `yaml:"storage"`

	Classify struct {
		Critical       []string `yaml:"critical"`
		StaticPrefixes []string `yaml:"staticPrefixes"`
		APIPatterns    []string `yaml:"apiPatterns"`
	} `yaml:"classify"`

	Precache struct {
		Critical []string `yaml:"critical"`
		Static   []string `yaml:"static"`
	} `yaml:"precache"`
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.App == "" {
		cfg.App = "mentesana"
	}
	if cfg.Version == "" {
		return Config{}, fmt.Errorf("version is required")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Origin == "" {
		return Config{}, fmt.Errorf("server.origin is required")
	}
	if _, err := url.Parse(cfg.Server.Origin); err != nil {
		return Config{}, fmt.Errorf("server.origin: %w", err)
	}
	cfg.Server.Origin = strings.TrimRight(cfg.Server.Origin, "/")

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendMemory
	}
	switch cfg.Storage.Backend {
	case BackendMemory:
	case BackendDisk, BackendLevelDB:
		if cfg.Storage.Root == "" {
			cfg.Storage.Root = "./data/cache"
		}
	case BackendGCS, BackendS3:
		if cfg.Storage.Bucket == "" {
			return Config{}, fmt.Errorf("storage.bucket is required for %s", cfg.Storage.Backend)
		}
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	for i, p := range cfg.Classify.StaticPrefixes {
		if !strings.HasPrefix(p, "/") {
			return Config{}, fmt.Errorf("classify.staticPrefixes[%d]: %q must start with /", i, p)
		}
	}
	for i, p := range cfg.Classify.Critical {
		if !strings.HasPrefix(p, "/") {
			return Config{}, fmt.Errorf("classify.critical[%d]: %q must start with /", i, p)
		}
	}

	return cfg, nil
}
