// Package config loads the .tangle.yaml configuration and prepares the
// program logger.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/morozRed/tangle/internal/languages"
	"github.com/morozRed/tangle/internal/options"
	"github.com/morozRed/tangle/internal/tangle"
	yaml "gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".tangle.yaml"

type Config struct {
	Version       int    `yaml:"version"`
	RelativeLinks bool   `yaml:"use_relative_file_links"`
	Strict        bool   `yaml:"strict_references"`
	MaxDepth      int    `yaml:"max_expansion_depth"`
	HeaderArgs    string `yaml:"header_args"`
	// Extensions maps a fragment language to the extension used for
	// ":tangle yes" targets.
	Extensions map[string]string `yaml:"extensions"`
	HomeDir    string            `yaml:"home_dir"`
	StateDir   string            `yaml:"state_dir"`
	Check      bool              `yaml:"check"`
	Logging    LoggerConfig      `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version:       1,
		RelativeLinks: true,
		MaxDepth:      tangle.DefaultMaxDepth,
		StateDir:      ".tangle",
		Logging:       LoggerConfig{Level: "normal"},
	}
}

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// unknown keys are errors, so yaml.Unmarshal is not enough
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration at path on top of the defaults. A missing
// file is not an error unless required is set.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	cfg, err := unmarshalConfig(data, Default())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d", c.Version)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_expansion_depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.StateDir == "" {
		return errors.New("state_dir must not be empty")
	}
	switch c.Logging.Level {
	case "none", "normal", "debug":
	default:
		return fmt.Errorf("unsupported logging level %q", c.Logging.Level)
	}
	if _, err := options.Resolve(options.Parse(c.HeaderArgs)); err != nil {
		return fmt.Errorf("header_args: %w", err)
	}
	return nil
}

// Settings builds the pipeline settings described by the configuration.
func (c *Config) Settings() tangle.Settings {
	registry := languages.NewDefaultRegistry()
	for lang, ext := range c.Extensions {
		registry.SetExtension(lang, ext)
	}
	return tangle.Settings{
		RelativeLinks: c.RelativeLinks,
		Strict:        c.Strict,
		MaxDepth:      c.MaxDepth,
		Defaults:      options.Parse(c.HeaderArgs),
		Registry:      registry,
		HomeDir:       c.HomeDir,
		Check:         c.Check,
	}
}
