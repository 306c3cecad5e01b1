// Package config handles configuration loading, validation, and management for edgy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"edgy/internal/gesture"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Actions are the gesture action phrases, in the order they run.
	Actions []string `toml:"actions" json:"actions" yaml:"actions"`

	// Gesture recognition settings.
	Gesture GestureConfig `toml:"gesture" json:"gesture" yaml:"gesture"`

	// Screen size in pixels.
	Screen ScreenConfig `toml:"screen" json:"screen" yaml:"screen"`

	// Devices to read touches from.
	Devices DevicesConfig `toml:"devices" json:"devices" yaml:"devices"`

	// Bus configuration for the D-Bus control interface.
	Bus BusConfig `toml:"bus" json:"bus" yaml:"bus"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// GestureConfig holds the classifier geometry.
type GestureConfig struct {
	// ZoneWidth is the width in pixels of the border zone along each edge.
	ZoneWidth float64 `toml:"zone_width" json:"zone_width" yaml:"zone_width"`

	// DetectionThreshold is the distance in pixels a touch must travel
	// before its direction is known.
	DetectionThreshold float64 `toml:"detection_threshold" json:"detection_threshold" yaml:"detection_threshold"`
}

// ScreenConfig holds the screen size. A zero dimension is taken from the
// axis range of the first touch device.
type ScreenConfig struct {
	Width  int `toml:"width" json:"width" yaml:"width"`
	Height int `toml:"height" json:"height" yaml:"height"`
}

// DevicesConfig selects the touch devices.
type DevicesConfig struct {
	// Names are kernel device names. If empty, every touch screen is used.
	Names []string `toml:"names" json:"names" yaml:"names"`

	// Grab takes the devices exclusively and replays touches that are not
	// part of a gesture through a virtual device.
	Grab bool `toml:"grab" json:"grab" yaml:"grab"`

	// MirrorName is the name of the virtual device used with Grab.
	MirrorName string `toml:"mirror_name" json:"mirror_name" yaml:"mirror_name"`
}

// BusConfig holds the D-Bus control interface settings.
type BusConfig struct {
	// Enabled exports the control interface on the session bus.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Name is the well-known bus name to request.
	Name string `toml:"name" json:"name" yaml:"name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file" or "both").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// DefaultBusName is the bus name the daemon requests by default.
const DefaultBusName = "org.edgy.Daemon1"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Actions: []string{},
		Gesture: GestureConfig{
			ZoneWidth:          256,
			DetectionThreshold: 24,
		},
		Devices: DevicesConfig{
			Names:      []string{},
			MirrorName: "edgy passthrough",
		},
		Bus: BusConfig{
			Enabled: true,
			Name:    DefaultBusName,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(StateDir(), "edgy.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// ConfigPath returns the configuration file to use when none is given:
// $EDGY_CONFIG, an existing config file in a standard location, or
// config.toml in the config directory.
func ConfigPath() string {
	if v := os.Getenv("EDGY_CONFIG"); v != "" {
		return v
	}
	if p := FindConfigFile(); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads configuration from the specified path and applies environment
// overrides. If the file doesn't exist, the default configuration is returned.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Params returns the classifier parameters for a screen of the given size.
func (c *Config) Params(width, height float64) gesture.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return gesture.Params{
		ScreenWidth:        width,
		ScreenHeight:       height,
		ZoneWidth:          c.Gesture.ZoneWidth,
		DetectionThreshold: c.Gesture.DetectionThreshold,
	}
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with EDGY_ and use underscores.
func (c *Config) ApplyEnvOverrides() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Gesture overrides
	if v := os.Getenv("EDGY_ZONE_WIDTH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EDGY_ZONE_WIDTH: %w", err)
		}
		c.Gesture.ZoneWidth = f
	}
	if v := os.Getenv("EDGY_DETECTION_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EDGY_DETECTION_THRESHOLD: %w", err)
		}
		c.Gesture.DetectionThreshold = f
	}

	// Device overrides
	if v := os.Getenv("EDGY_DEVICES"); v != "" {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		c.Devices.Names = names
	}

	// Logging overrides
	if v := os.Getenv("EDGY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EDGY_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version: c.Version,
		Actions: slices.Clone(c.Actions),
		Gesture: c.Gesture,
		Screen:  c.Screen,
		Devices: c.Devices,
		Bus:     c.Bus,
		Logging: c.Logging,
	}
	clone.Devices.Names = slices.Clone(c.Devices.Names)
	return clone
}
