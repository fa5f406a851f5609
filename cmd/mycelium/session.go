package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/mycelium/internal/config"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/params"
	"github.com/nvandessel/mycelium/internal/sanitize"
	"github.com/nvandessel/mycelium/internal/store"
	"github.com/spf13/cobra"
)

// session bundles what every simulation command needs: the loaded config,
// the data directory and the loggers.
type session struct {
	cfg     *config.MyceliumConfig
	dataDir string
	logger  *slog.Logger
	events  *logging.EventLogger
}

// openSession loads and validates the configuration and opens the loggers.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	flagDir, _ := cmd.Flags().GetString("data-dir")
	dataDir, err := store.ResolveDataDir(flagDir)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureDataDir(dataDir); err != nil {
		return nil, err
	}

	return &session{
		cfg:     cfg,
		dataDir: dataDir,
		logger:  logging.NewLogger(cfg.Logging.Level, os.Stderr),
		events:  logging.NewEventLogger(dataDir, cfg.Logging.Level),
	}, nil
}

func (s *session) openStore() (*store.SQLiteRunStore, error) {
	st, err := store.NewSQLiteRunStore(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return st, nil
}

func (s *session) Close() {
	s.events.Close()
}

// simFlags are the population flags shared by run, simulate and serve.
type simFlags struct {
	replay int64
	seed   uint64
	agents int
	policy string
	label  string
	params []string
}

func (f *simFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.replay, "replay", 0, "Replay a recorded run: reuse its seed, agents, policy and parameters")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Random seed (0 draws a fresh one)")
	cmd.Flags().IntVar(&f.agents, "agents", 0, "Population size (default from config)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "Replacement policy: trickle or flush (default from config)")
	cmd.Flags().StringVar(&f.label, "label", "", "Label stored with the run record")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "Override a parameter, name=value (repeatable)")
}

// simSettings is the resolved population setup.
type simSettings struct {
	Agents int
	Seed   uint64
	Policy growth.Policy
	Params []params.Entry
	Label  string
}

// resolve layers config, then the replayed run, then explicit flags.
// runStore is only consulted for --replay and may be nil otherwise.
func (f *simFlags) resolve(ctx context.Context, cmd *cobra.Command, cfg *config.MyceliumConfig, runStore store.RunStore) (simSettings, error) {
	s := simSettings{
		Agents: cfg.Simulation.Agents,
		Seed:   cfg.Simulation.Seed,
		Params: cfg.Params,
		Label:  sanitize.Label(f.label),
	}
	policy := cfg.Simulation.Policy

	if f.replay != 0 {
		if runStore == nil {
			return simSettings{}, fmt.Errorf("--replay needs the run history")
		}
		run, err := runStore.GetRun(ctx, f.replay)
		if err != nil {
			return simSettings{}, fmt.Errorf("failed to load run %d: %w", f.replay, err)
		}
		s.Agents = run.Agents
		s.Seed = run.Seed
		policy = run.Policy
		if len(run.Params) > 0 {
			s.Params = run.Params
		}
		if s.Label == "" {
			s.Label = fmt.Sprintf("replay of #%d", run.ID)
		}
	}

	if cmd.Flags().Changed("seed") {
		s.Seed = f.seed
	}
	if cmd.Flags().Changed("agents") {
		if f.agents < 0 {
			return simSettings{}, fmt.Errorf("--agents must not be negative, got %d", f.agents)
		}
		s.Agents = f.agents
	}
	if cmd.Flags().Changed("policy") {
		policy = f.policy
	}

	p, err := growth.ParsePolicy(policy)
	if err != nil {
		return simSettings{}, err
	}
	s.Policy = p

	if len(s.Params) == 0 {
		s.Params = growth.DefaultParams()
	}
	if len(f.params) > 0 {
		overrides := make(map[string]float64, len(f.params))
		for _, a := range f.params {
			name, v, err := params.ParseAssignment(a)
			if err != nil {
				return simSettings{}, fmt.Errorf("--param: %w", err)
			}
			overrides[name] = v
		}
		if s.Params, err = params.Override(s.Params, overrides); err != nil {
			return simSettings{}, fmt.Errorf("--param: %w", err)
		}
	}

	return s, nil
}
