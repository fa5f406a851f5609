package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/store"
)

// cancelCheckInterval is how many ticks pass between context checks.
const cancelCheckInterval = 64

// Runner orchestrates headless simulation runs.
type Runner struct {
	store  store.RunStore
	logger *slog.Logger
	events *logging.EventLogger
	now    func() time.Time
}

// NewRunner creates a runner. runStore, logger and events may be nil.
func NewRunner(runStore store.RunStore, logger *slog.Logger, events *logging.EventLogger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{store: runStore, logger: logger, events: events, now: time.Now}
}

// Run executes the scenario and returns the collected results. A cancelled
// context stops the run early; the partial result is returned alongside the
// context error.
func (r *Runner) Run(ctx context.Context, scenario Scenario) (Result, error) {
	sc := scenario.withDefaults()

	seed := sc.Seed
	if seed == 0 {
		seed = growth.RandomSeed()
	}

	sim := growth.New(growth.Options{
		Agents: sc.Agents,
		Policy: sc.Policy,
		Params: sc.Params,
	}, seed, sc.Bounds)

	result := Result{
		Name:    sc.Name,
		Seed:    seed,
		Agents:  sc.Agents,
		Policy:  sc.Policy,
		Params:  sim.Params().Entries(),
		PerTick: make([]TickStats, 0, sc.Ticks),
	}

	if r.store != nil {
		id, err := r.store.StartRun(ctx, store.Run{
			Seed:   seed,
			Agents: sc.Agents,
			Policy: string(sc.Policy),
			Mode:   store.ModeHeadless,
			Label:  sc.Label,
			Params: result.Params,
		})
		if err != nil {
			return result, fmt.Errorf("recording run: %w", err)
		}
		result.RunID = id
	}

	r.logger.Debug("simulation starting", "name", sc.Name, "seed", seed, "agents", sc.Agents, "ticks", sc.Ticks)
	r.events.Reseed(seed, sc.Agents)

	start := r.now()
	var runErr error
	for tick := 0; tick < sc.Ticks; tick++ {
		if tick%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
		}

		frame := sim.Tick(growth.TickInput{
			Bounds:   sc.Bounds,
			Elapsed:  sc.elapsed(tick),
			Commands: sc.Commands[tick],
		})

		ts := statsFromFrame(tick, frame)
		result.PerTick = append(result.PerTick, ts)
		result.Ticks++
		result.Retired += ts.Retired
		result.Spawned += ts.Spawned
		if ts.Reseeded {
			result.Reseeds++
			result.Seed = frame.Seed
			r.events.Reseed(frame.Seed, frame.Agents)
		} else {
			r.events.Replace(frame.Tick, ts.Retired, ts.Spawned)
		}
		result.Final = frame

		if sc.OnFrame != nil {
			sc.OnFrame(frame)
		}
	}
	result.Duration = r.now().Sub(start)
	result.FinalAgents = sim.Population().Len()

	if r.store != nil {
		// Record the outcome even when cancelled; use a fresh context so the
		// write is not refused by the cancelled one.
		if err := r.store.FinishRun(context.WithoutCancel(ctx), result.RunID, uint64(result.Ticks), result.Retired); err != nil {
			return result, fmt.Errorf("finishing run %d: %w", result.RunID, err)
		}
	}

	r.logger.Info("simulation finished",
		"name", sc.Name,
		"seed", result.Seed,
		"ticks", result.Ticks,
		"retired", result.Retired,
		"duration", result.Duration)

	return result, runErr
}
