package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/mycelium/internal/constants"
)

func TestDefault(t *testing.T) {
	config := Default()

	// Simulation defaults
	if config.Simulation.Agents != constants.DefaultAgents {
		t.Errorf("expected Agents %d, got %d", constants.DefaultAgents, config.Simulation.Agents)
	}
	if config.Simulation.Seed != 0 {
		t.Errorf("expected Seed 0, got %d", config.Simulation.Seed)
	}
	if config.Simulation.Policy != "trickle" {
		t.Errorf("expected Policy 'trickle', got '%s'", config.Simulation.Policy)
	}
	if config.Simulation.TicksPerSecond != 60 {
		t.Errorf("expected TicksPerSecond 60, got %d", config.Simulation.TicksPerSecond)
	}

	// Params defaults
	if len(config.Params) == 0 {
		t.Fatal("expected default params")
	}
	if config.Params[0].Name != constants.ParamStepLength {
		t.Errorf("expected first param %q, got %q", constants.ParamStepLength, config.Params[0].Name)
	}

	// Capture defaults
	if config.Capture.Format != "png" {
		t.Errorf("expected Capture.Format 'png', got '%s'", config.Capture.Format)
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  agents: 12
  seed: 42
  policy: flush
  tps: 30

window:
  width: 640
  height: 480

params:
  - name: step_length
    value: 4
    step: 0.5
  - name: rand_factor
    value: 1

capture:
  format: mjpeg
  fps: 24
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Agents != 12 {
		t.Errorf("expected Agents 12, got %d", config.Simulation.Agents)
	}
	if config.Simulation.Seed != 42 {
		t.Errorf("expected Seed 42, got %d", config.Simulation.Seed)
	}
	if config.Simulation.Policy != "flush" {
		t.Errorf("expected Policy 'flush', got '%s'", config.Simulation.Policy)
	}
	if config.Window.Width != 640 || config.Window.Height != 480 {
		t.Errorf("expected window 640x480, got %dx%d", config.Window.Width, config.Window.Height)
	}
	if len(config.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(config.Params))
	}
	if config.Params[0].Value != 4 || config.Params[0].Step != 0.5 {
		t.Errorf("unexpected first param: %+v", config.Params[0])
	}
	if config.Capture.Format != "mjpeg" || config.Capture.FPS != 24 {
		t.Errorf("unexpected capture config: %+v", config.Capture)
	}
	// Unset fields keep their defaults
	if config.Capture.Quality != constants.DefaultJPEGQuality {
		t.Errorf("expected Quality %d, got %d", constants.DefaultJPEGQuality, config.Capture.Quality)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
capture:
  dir: ${TEST_CAPTURE_ROOT}/frames
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("TEST_CAPTURE_ROOT", "/tmp/captures")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Capture.Dir != "/tmp/captures/frames" {
		t.Errorf("expected Capture.Dir '/tmp/captures/frames', got '%s'", config.Capture.Dir)
	}
}

func TestLoad_UsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	dir := filepath.Join(home, ".mycelium")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("simulation:\n  agents: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MYCELIUM_SEED", "99")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Simulation.Agents != 7 {
		t.Errorf("expected Agents 7 from file, got %d", config.Simulation.Agents)
	}
	if config.Simulation.Seed != 99 {
		t.Errorf("expected Seed 99 from env, got %d", config.Simulation.Seed)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := Default()
	config.Simulation.Agents = 33
	config.Server.Addr = "127.0.0.1:8080"
	if err := config.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Simulation.Agents != 33 {
		t.Errorf("expected Agents 33, got %d", loaded.Simulation.Agents)
	}
	if loaded.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("expected Addr '127.0.0.1:8080', got '%s'", loaded.Server.Addr)
	}
	if len(loaded.Params) != len(config.Params) {
		t.Errorf("expected %d params, got %d", len(config.Params), len(loaded.Params))
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MYCELIUM_AGENTS", "8")
	t.Setenv("MYCELIUM_POLICY", "flush")
	t.Setenv("MYCELIUM_TPS", "24")
	t.Setenv("MYCELIUM_CAPTURE_DIR", "/var/frames")
	t.Setenv("MYCELIUM_CAPTURE_FORMAT", "mjpeg")
	t.Setenv("MYCELIUM_SERVER_ADDR", ":9000")
	t.Setenv("MYCELIUM_FULLSCREEN", "1")
	t.Setenv("MYCELIUM_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Agents != 8 {
		t.Errorf("expected Agents 8, got %d", config.Simulation.Agents)
	}
	if config.Simulation.Policy != "flush" {
		t.Errorf("expected Policy 'flush', got '%s'", config.Simulation.Policy)
	}
	if config.Simulation.TicksPerSecond != 24 {
		t.Errorf("expected TicksPerSecond 24, got %d", config.Simulation.TicksPerSecond)
	}
	if config.Capture.Dir != "/var/frames" || config.Capture.Format != "mjpeg" {
		t.Errorf("unexpected capture config: %+v", config.Capture)
	}
	if config.Server.Addr != ":9000" {
		t.Errorf("expected Addr ':9000', got '%s'", config.Server.Addr)
	}
	if !config.Window.Fullscreen {
		t.Error("expected Fullscreen to be true")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
}

func TestEnvOverrides_IgnoresGarbage(t *testing.T) {
	t.Setenv("MYCELIUM_AGENTS", "many")
	t.Setenv("MYCELIUM_SEED", "-1")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Agents != constants.DefaultAgents {
		t.Errorf("expected Agents unchanged, got %d", config.Simulation.Agents)
	}
	if config.Simulation.Seed != 0 {
		t.Errorf("expected Seed unchanged, got %d", config.Simulation.Seed)
	}
}

func TestValidate_Valid(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MyceliumConfig)
	}{
		{"negative agents", func(c *MyceliumConfig) { c.Simulation.Agents = -1 }},
		{"zero tps", func(c *MyceliumConfig) { c.Simulation.TicksPerSecond = 0 }},
		{"tps above max", func(c *MyceliumConfig) { c.Simulation.TicksPerSecond = constants.MaxTicksPerSecond + 1 }},
		{"tps overflowing the tick interval", func(c *MyceliumConfig) { c.Simulation.TicksPerSecond = 2_000_000_000 }},
		{"unknown policy", func(c *MyceliumConfig) { c.Simulation.Policy = "burst" }},
		{"zero window", func(c *MyceliumConfig) { c.Window.Width = 0 }},
		{"empty param name", func(c *MyceliumConfig) { c.Params = append(c.Params, c.Params[0]); c.Params[len(c.Params)-1].Name = "" }},
		{"duplicate param", func(c *MyceliumConfig) { c.Params = append(c.Params, c.Params[0]) }},
		{"capture format", func(c *MyceliumConfig) { c.Capture.Format = "gif" }},
		{"capture fps", func(c *MyceliumConfig) { c.Capture.FPS = 0 }},
		{"capture quality", func(c *MyceliumConfig) { c.Capture.Quality = 101 }},
		{"log level", func(c *MyceliumConfig) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	validLevels := []string{"", "info", "debug", "trace"}

	for _, level := range validLevels {
		t.Run(level, func(t *testing.T) {
			config := Default()
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestValidate_EmptyPolicyMeansTrickle(t *testing.T) {
	config := Default()
	config.Simulation.Policy = ""
	if err := config.Validate(); err != nil {
		t.Errorf("expected empty policy to be valid, got error: %v", err)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
simulation:
  agents: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
