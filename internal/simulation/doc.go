// Package simulation runs growth simulations headlessly for a fixed number of
// ticks and collects per-tick statistics.
//
// The runner drives the real growth.Simulation with a synthetic clock, so a
// run is fully determined by its scenario and seed. Runs are optionally
// recorded in a store.RunStore so they can be listed and replayed later.
//
// Usage:
//
//	r := simulation.NewRunner(runStore, logger, events)
//	result, err := r.Run(ctx, simulation.Scenario{
//	    Name:   "baseline",
//	    Agents: 20,
//	    Seed:   42,
//	    Ticks:  1000,
//	})
//	simulation.AssertPopulationStable(t, result, 20)
package simulation
