// Package growth implements the mycelium growth engine.
//
// A Population holds a fixed number of Agents. Every Agent owns one Filament
// per other agent, growing from its own centre toward that agent's centre by
// a biased random walk. Filaments snap to their target once inside the
// termination radius and freeze on the following step. Agents whose filaments
// have all finished are retired and replaced so the population size never
// changes.
//
// Simulation is the explicit context object that ties a Population to its
// parameter store and random generator. Hosts drive it one tick at a time:
//
//	sim := growth.New(growth.Options{Agents: 20}, seed, bounds)
//	for {
//	    frame := sim.Tick(growth.TickInput{Bounds: bounds, Elapsed: elapsed})
//	    draw(frame)
//	}
//
// The engine performs no I/O, never blocks and never returns errors; every
// tick leaves the population in a valid, renderable state.
package growth
