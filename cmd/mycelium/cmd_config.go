package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nvandessel/mycelium/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mycelium configuration",
		Long: `View and modify mycelium configuration settings.

Configuration is stored in ~/.mycelium/config.yaml. MYCELIUM_* environment
variables override the file.

Examples:
  mycelium config list                         # Show all settings
  mycelium config get simulation.agents        # Get a specific setting
  mycelium config set simulation.agents 40     # Set a setting
  mycelium config set params.step_length 2.5   # Change a parameter default
  mycelium config set capture.format mjpeg`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Configuration (~/.mycelium/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Simulation:")
			fmt.Fprintf(out, "  simulation.agents:   %d\n", cfg.Simulation.Agents)
			fmt.Fprintf(out, "  simulation.seed:     %s\n", seedOrRandom(cfg.Simulation.Seed))
			fmt.Fprintf(out, "  simulation.policy:   %s\n", cfg.Simulation.Policy)
			fmt.Fprintf(out, "  simulation.tps:      %d\n", cfg.Simulation.TicksPerSecond)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Window:")
			fmt.Fprintf(out, "  window.width:        %d\n", cfg.Window.Width)
			fmt.Fprintf(out, "  window.height:       %d\n", cfg.Window.Height)
			fmt.Fprintf(out, "  window.title:        %s\n", cfg.Window.Title)
			fmt.Fprintf(out, "  window.fullscreen:   %v\n", cfg.Window.Fullscreen)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Parameters:")
			for _, p := range cfg.Params {
				fmt.Fprintf(out, "  params.%-22s %g\n", p.Name+":", p.Value)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Capture:")
			fmt.Fprintf(out, "  capture.dir:         %s\n", cfg.Capture.Dir)
			fmt.Fprintf(out, "  capture.format:      %s\n", cfg.Capture.Format)
			fmt.Fprintf(out, "  capture.fps:         %d\n", cfg.Capture.FPS)
			fmt.Fprintf(out, "  capture.quality:     %d\n", cfg.Capture.Quality)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  server.addr:         %s\n", cfg.Server.Addr)
			fmt.Fprintf(out, "  logging.level:       %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(out, "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			// Edit the file contents only, so env overrides are not persisted.
			cfg := config.Default()
			if fileCfg, loadErr := config.LoadFromFile(path); loadErr == nil {
				cfg = fileCfg
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.MyceliumConfig, key string) (interface{}, bool) {
	if name, ok := strings.CutPrefix(key, "params."); ok {
		for _, p := range cfg.Params {
			if p.Name == name {
				return p.Value, true
			}
		}
		return nil, false
	}

	switch key {
	case "simulation.agents":
		return cfg.Simulation.Agents, true
	case "simulation.seed":
		return cfg.Simulation.Seed, true
	case "simulation.policy":
		return cfg.Simulation.Policy, true
	case "simulation.tps":
		return cfg.Simulation.TicksPerSecond, true
	case "window.width":
		return cfg.Window.Width, true
	case "window.height":
		return cfg.Window.Height, true
	case "window.title":
		return cfg.Window.Title, true
	case "window.fullscreen":
		return cfg.Window.Fullscreen, true
	case "capture.dir":
		return cfg.Capture.Dir, true
	case "capture.format":
		return cfg.Capture.Format, true
	case "capture.fps":
		return cfg.Capture.FPS, true
	case "capture.quality":
		return cfg.Capture.Quality, true
	case "server.addr":
		return cfg.Server.Addr, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.MyceliumConfig, key, value string) error {
	if name, ok := strings.CutPrefix(key, "params."); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		for i := range cfg.Params {
			if cfg.Params[i].Name == name {
				cfg.Params[i].Value = f
				return nil
			}
		}
		return fmt.Errorf("unknown parameter: %s", name)
	}

	switch key {
	case "simulation.agents":
		return setInt(&cfg.Simulation.Agents, key, value)
	case "simulation.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		cfg.Simulation.Seed = n
	case "simulation.policy":
		cfg.Simulation.Policy = value
	case "simulation.tps":
		return setInt(&cfg.Simulation.TicksPerSecond, key, value)
	case "window.width":
		return setInt(&cfg.Window.Width, key, value)
	case "window.height":
		return setInt(&cfg.Window.Height, key, value)
	case "window.title":
		cfg.Window.Title = value
	case "window.fullscreen":
		cfg.Window.Fullscreen = value == "true" || value == "1"
	case "capture.dir":
		cfg.Capture.Dir = value
	case "capture.format":
		cfg.Capture.Format = value
	case "capture.fps":
		return setInt(&cfg.Capture.FPS, key, value)
	case "capture.quality":
		return setInt(&cfg.Capture.Quality, key, value)
	case "server.addr":
		cfg.Server.Addr = value
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %s", key, value)
	}
	*dst = n
	return nil
}

func seedOrRandom(seed uint64) string {
	if seed == 0 {
		return "(random)"
	}
	return strconv.FormatUint(seed, 10)
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
