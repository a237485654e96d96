// Package config loads the optional .voxbuild.yml invoker
// configuration. Config controls how docker is driven (binary,
// progress mode, gates, receipt/badge output); the build parameters
// themselves always derive from the selector and never from here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config filename looked up under the repo root.
const DefaultFile = ".voxbuild.yml"

// Config is the top-level voxbuild configuration.
type Config struct {
	Docker   DockerConfig  `yaml:"docker"`
	Scan     ScanConfig    `yaml:"scan"`
	Receipts ReceiptConfig `yaml:"receipts"`
	Badges   BadgeConfig   `yaml:"badges"`
}

// DockerConfig selects the container CLI and how its output streams.
type DockerConfig struct {
	Binary   string `yaml:"binary"`   // container CLI, e.g. docker or podman
	Progress string `yaml:"progress"` // BuildKit progress mode: auto, plain, tty
	Pull     bool   `yaml:"pull"`     // pass --pull to docker build
}

// ScanConfig controls the pre-build secret gate.
type ScanConfig struct {
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"` // repo-relative dirs fed to the gate
}

// UnmarshalYAML accepts both forms:
//
//	scan: false            → ScanConfig{Enabled: false}
//	scan:
//	  enabled: true
//	  paths: [docker, cpp] → ScanConfig{Enabled: true, Paths: [...]}
func (s *ScanConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var b bool
		if err := value.Decode(&b); err != nil {
			return fmt.Errorf("scan: expected boolean or map, got %q", value.Value)
		}
		s.Enabled = b
		return nil
	}

	if value.Kind == yaml.MappingNode {
		// Decode into an alias type to avoid infinite recursion
		type scanAlias ScanConfig
		alias := scanAlias(*s)
		if err := value.Decode(&alias); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		*s = ScanConfig(alias)
		return nil
	}

	return fmt.Errorf("scan: expected boolean or map, got YAML kind %d", value.Kind)
}

// ReceiptConfig controls the post-build TOML receipt.
type ReceiptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // repo-relative
}

// BadgeConfig controls SVG status badge generation.
type BadgeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // repo-relative
}

// Load reads configuration from a YAML file. Callers resolve the path
// against the checkout root; an empty path or a missing file yields
// the defaults, unknown keys are errors.
func Load(path string) (*Config, error) {
	if path == "" {
		return Defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, err
	}

	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the docker invocation cannot honor.
func (c *Config) Validate() error {
	if c.Docker.Binary == "" {
		return errors.New("docker.binary must not be empty")
	}
	switch c.Docker.Progress {
	case "auto", "plain", "tty":
	default:
		return fmt.Errorf("docker.progress %q (want auto, plain or tty)", c.Docker.Progress)
	}
	return nil
}

// Defaults returns the compiled-in configuration.
func Defaults() *Config {
	return &Config{
		Docker: DockerConfig{
			Binary:   "docker",
			Progress: "auto",
		},
		Scan: ScanConfig{
			Enabled: true,
			Paths:   []string{"docker"},
		},
		Receipts: ReceiptConfig{
			Enabled: true,
			Dir:     ".voxbuild/receipts",
		},
		Badges: BadgeConfig{
			Enabled: false,
			Dir:     ".voxbuild/badges",
		},
	}
}
