// Package config provides configuration loading and management for spimviews.
// It handles loading configuration from YAML or TOML files and provides
// default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"spimviews/internal/models"
)

// Config represents the application configuration
type Config struct {
	// Input selection
	Input struct {
		// Root is the directory scanned for input files
		Root string `yaml:"root" toml:"root"`

		// Include is a glob matched against file base names
		Include string `yaml:"include" toml:"include"`
	} `yaml:"input" toml:"input"`

	// Slots assigns a role to each filename pattern slot, left to right:
	// timepoint, channel, illumination, angle, tile, zplane or ignore
	Slots []string `yaml:"slots,omitempty" toml:"slots,omitempty"`

	// Disambiguation preferences, only consulted for ambiguous axis pairs
	Disambiguation struct {
		PreferChannelOverIllumination *bool `yaml:"preferChannelOverIllumination,omitempty" toml:"preferChannelOverIllumination,omitempty"`
		PreferTileOverAngle           *bool `yaml:"preferTileOverAngle,omitempty" toml:"preferTileOverAngle,omitempty"`
	} `yaml:"disambiguation" toml:"disambiguation"`

	// Metadata probing
	Probe struct {
		// Cache enables the on-disk probe cache
		Cache bool `yaml:"cache" toml:"cache"`

		// CacheDir is the cache location, relative to the input root
		CacheDir string `yaml:"cacheDir" toml:"cacheDir"`
	} `yaml:"probe" toml:"probe"`

	// Output parameters
	Output struct {
		// Verbose switches logging to debug level
		Verbose bool `yaml:"verbose" toml:"verbose"`

		// LogFormat is text or json
		LogFormat string `yaml:"logFormat" toml:"logFormat"`

		// Grid is the path of the occupancy grid image, empty to skip
		Grid string `yaml:"grid" toml:"grid"`

		// GridCell is the side of one grid cell in pixels
		GridCell int `yaml:"gridCell" toml:"gridCell"`

		// Dump is the path of the YAML view set dump, empty to skip
		Dump string `yaml:"dump" toml:"dump"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.Root = "."
	cfg.Input.Include = "*"

	cfg.Probe.Cache = false
	cfg.Probe.CacheDir = ".spimviews-cache"

	cfg.Output.Verbose = false
	cfg.Output.LogFormat = "text"
	cfg.Output.GridCell = 16

	return cfg
}

func isTOML(configPath string) bool {
	return strings.EqualFold(filepath.Ext(configPath), ".toml")
}

// LoadConfig loads configuration from a YAML file, or a TOML file when the
// name ends in .toml. If the file doesn't exist, it returns the default
// configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be checked by decoding alone
func (c *Config) Validate() error {
	if _, err := c.SlotRoles(); err != nil {
		return err
	}
	switch c.Output.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Output.LogFormat)
	}
	if c.Output.GridCell < 2 {
		return fmt.Errorf("grid cell size must be at least 2, got %d", c.Output.GridCell)
	}
	return nil
}

// SlotRoles parses the configured slot roles
func (c *Config) SlotRoles() ([]models.SlotRole, error) {
	return models.ParseSlotRoles(c.Slots)
}

// SaveConfig saves the configuration to a YAML file, or a TOML file when the
// name ends in .toml
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
