// Package config handles objrt.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "objrt.toml"

// Defaults
const (
	DefaultInitialCapacity = 64
	DefaultInterval        = 30 * time.Second
)

// Config represents an objrt.toml runtime configuration.
type Config struct {
	Frames    Frames    `toml:"frames"`
	Collector Collector `toml:"collector"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the objrt.toml file (set at load time).
	Dir string `toml:"-"`
}

// Frames configures per-thread frame chains.
type Frames struct {
	InitialCapacity int  `toml:"initial-capacity"`
	CheckInvariants bool `toml:"check-invariants"`
}

// Collector configures the background collection loop.
type Collector struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"`
}

// Log configures commonlog. An empty Path logs to stderr.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns the configuration used when no objrt.toml exists.
func Default() *Config {
	return &Config{
		Frames: Frames{
			InitialCapacity: DefaultInitialCapacity,
		},
		Collector: Collector{
			Enabled:  true,
			Interval: DefaultInterval,
		},
	}
}

// Load parses an objrt.toml file from the given directory. Keys absent
// from the file keep their Default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(text, c); err != nil {
		return nil, err
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) normalize() error {
	if c.Frames.InitialCapacity < 0 {
		return fmt.Errorf("frames.initial-capacity must not be negative, got %d", c.Frames.InitialCapacity)
	}
	if c.Frames.InitialCapacity == 0 {
		c.Frames.InitialCapacity = DefaultInitialCapacity
	}
	if c.Collector.Interval < 0 {
		return fmt.Errorf("collector.interval must not be negative, got %s", c.Collector.Interval)
	}
	if c.Collector.Interval == 0 {
		c.Collector.Interval = DefaultInterval
	}
	return nil
}

// FindAndLoad walks up from startDir to find an objrt.toml file, then loads
// and returns it. Returns Default if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// LogPath returns the log file path resolved against Dir, or "" for stderr.
func (c *Config) LogPath() string {
	if c.Log.Path == "" || filepath.IsAbs(c.Log.Path) || c.Dir == "" {
		return c.Log.Path
	}
	return filepath.Join(c.Dir, c.Log.Path)
}
