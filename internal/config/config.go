// Package config provides unified configuration loading for mycelium.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/params"
	"gopkg.in/yaml.v3"
)

// MyceliumConfig contains all mycelium configuration settings.
type MyceliumConfig struct {
	// Simulation controls the population and tick rate.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Window configures the interactive viewer.
	Window WindowConfig `json:"window" yaml:"window"`

	// Params is the ordered list of live-tunable parameters. Order is the
	// order the viewer cycles through them.
	Params []params.Entry `json:"params" yaml:"params"`

	// Capture configures frame recording.
	Capture CaptureConfig `json:"capture" yaml:"capture"`

	// Server configures the snapshot HTTP server.
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig configures the growth population.
type SimulationConfig struct {
	// Agents is the number of growth agents kept alive.
	Agents int `json:"agents" yaml:"agents"`

	// Seed fixes the random seed. Zero draws a fresh seed at startup.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Policy is the replacement policy: "trickle" (default) or "flush".
	Policy string `json:"policy" yaml:"policy"`

	// TicksPerSecond is the simulation rate.
	TicksPerSecond int `json:"tps" yaml:"tps"`
}

// WindowConfig configures the viewer window.
type WindowConfig struct {
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	Title      string `json:"title" yaml:"title"`
	Fullscreen bool   `json:"fullscreen" yaml:"fullscreen"`
}

// CaptureConfig configures frame recording.
type CaptureConfig struct {
	// Dir is the root directory for recordings. Each session gets its own
	// timestamped subdirectory (png) or file (mjpeg).
	Dir string `json:"dir" yaml:"dir"`

	// Format is "png" for a numbered image sequence or "mjpeg" for an AVI.
	Format string `json:"format" yaml:"format"`

	// FPS is the frame rate recorded in MJPEG containers.
	FPS int `json:"fps" yaml:"fps"`

	// Quality is the JPEG quality (1-100) for MJPEG frames.
	Quality int `json:"quality" yaml:"quality"`
}

// ServerConfig configures the snapshot HTTP server.
type ServerConfig struct {
	// Addr is the listen address. An empty port picks a free one.
	Addr string `json:"addr" yaml:"addr"`
}

// LoggingConfig configures mycelium's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to <data dir>/events.jsonl.
	// "trace" additionally records every parameter adjustment.
	Level string `json:"level" yaml:"level"`
}

// Default returns a MyceliumConfig with sensible defaults.
func Default() *MyceliumConfig {
	return &MyceliumConfig{
		Simulation: SimulationConfig{
			Agents:         constants.DefaultAgents,
			Seed:           0,
			Policy:         string(growth.PolicyTrickle),
			TicksPerSecond: constants.DefaultTicksPerSecond,
		},
		Window: WindowConfig{
			Width:  constants.DefaultWindowSize,
			Height: constants.DefaultWindowSize,
			Title:  constants.DefaultWindowTitle,
		},
		Params: growth.DefaultParams(),
		Capture: CaptureConfig{
			Dir:     "output",
			Format:  "png",
			FPS:     constants.DefaultCaptureFPS,
			Quality: constants.DefaultJPEGQuality,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:0",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.mycelium/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mycelium", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.mycelium/config.yaml -> environment variables
func Load() (*MyceliumConfig, error) {
	config := Default()

	// Try to load from default config file
	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*MyceliumConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Capture.Dir = expandEnvVars(config.Capture.Dir)

	return config, nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *MyceliumConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *MyceliumConfig) Validate() error {
	if c.Simulation.Agents < 0 {
		return fmt.Errorf("agents must be non-negative, got %d", c.Simulation.Agents)
	}

	if c.Simulation.TicksPerSecond <= 0 || c.Simulation.TicksPerSecond > constants.MaxTicksPerSecond {
		return fmt.Errorf("tps must be between 1 and %d, got %d", constants.MaxTicksPerSecond, c.Simulation.TicksPerSecond)
	}

	if _, err := growth.ParsePolicy(c.Simulation.Policy); err != nil {
		return err
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}

	seen := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		if p.Name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter: %s", p.Name)
		}
		seen[p.Name] = true
	}

	validFormats := map[string]bool{"png": true, "mjpeg": true}
	if !validFormats[c.Capture.Format] {
		return fmt.Errorf("invalid capture format: %s (valid: png, mjpeg)", c.Capture.Format)
	}

	if c.Capture.FPS <= 0 {
		return fmt.Errorf("capture fps must be positive, got %d", c.Capture.FPS)
	}

	if c.Capture.Quality < 1 || c.Capture.Quality > 100 {
		return fmt.Errorf("capture quality must be between 1 and 100, got %d", c.Capture.Quality)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *MyceliumConfig) {
	if v := os.Getenv("MYCELIUM_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Agents = n
		}
	}

	if v := os.Getenv("MYCELIUM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("MYCELIUM_POLICY"); v != "" {
		config.Simulation.Policy = v
	}

	if v := os.Getenv("MYCELIUM_TPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.TicksPerSecond = n
		}
	}

	if v := os.Getenv("MYCELIUM_CAPTURE_DIR"); v != "" {
		config.Capture.Dir = v
	}

	if v := os.Getenv("MYCELIUM_CAPTURE_FORMAT"); v != "" {
		config.Capture.Format = v
	}

	if v := os.Getenv("MYCELIUM_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}

	if v := os.Getenv("MYCELIUM_FULLSCREEN"); v != "" {
		config.Window.Fullscreen = v == "true" || v == "1"
	}

	if v := os.Getenv("MYCELIUM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
