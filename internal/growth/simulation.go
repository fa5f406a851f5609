package growth

import (
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/oscillator"
	"github.com/nvandessel/mycelium/internal/params"
)

// Command is a user-issued request applied at the start of a tick.
type Command int

const (
	CommandSelectNext Command = iota + 1
	CommandSelectPrevious
	CommandIncrease
	CommandDecrease
	CommandReseed
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandSelectNext:
		return "select-next"
	case CommandSelectPrevious:
		return "select-previous"
	case CommandIncrease:
		return "increase"
	case CommandDecrease:
		return "decrease"
	case CommandReseed:
		return "reseed"
	default:
		return "unknown"
	}
}

// ParseCommand maps a command name back to its Command.
func ParseCommand(s string) (Command, bool) {
	for c := CommandSelectNext; c <= CommandReseed; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// TickInput is everything the host supplies for one tick.
type TickInput struct {
	Bounds   Bounds
	Elapsed  time.Duration
	Commands []Command
}

// Strand is a render-ready filament.
type Strand struct {
	Key      FilamentKey `json:"key"`
	Points   []Vec2      `json:"points"`
	Colour   color.NRGBA `json:"colour"`
	Finished bool        `json:"finished"`
}

// Frame is the renderer-facing result of a tick. It shares no memory with
// the simulation.
type Frame struct {
	Tick     uint64         `json:"tick"`
	Seed     uint64         `json:"seed"`
	Agents   int            `json:"agents"`
	Jitter   float64        `json:"jitter"`
	Strands  []Strand       `json:"strands"`
	Params   []params.Entry `json:"params"`
	Selected string         `json:"selected"`
	Retired  int            `json:"retired"`
	Spawned  int            `json:"spawned"`
	Reseeded bool           `json:"reseeded"`
}

// Options configures a Simulation.
type Options struct {
	// Agents is the population size.
	Agents int

	// Policy selects the replacement policy. Empty means PolicyTrickle.
	Policy Policy

	// Palette is the colour set for new agents. Empty means DefaultPalette.
	Palette Palette

	// Params seeds the parameter store. The simulation keeps its own clone.
	Params []params.Entry

	// DefaultParamStep is used by increase/decrease commands when the
	// selected entry declares no step.
	DefaultParamStep float64
}

// Simulation is the explicit context object for one running animation: it
// owns the population, the parameter store and the random generator.
// It is not safe for concurrent use.
type Simulation struct {
	opts   Options
	params *params.Store
	pop    *Population
	rng    *rand.Rand
	seed   uint64
	tick   uint64
	bounds Bounds

	totalRetired int
}

// New creates a simulation seeded with seed and populated inside bounds.
func New(opts Options, seed uint64, bounds Bounds) *Simulation {
	if opts.DefaultParamStep == 0 {
		opts.DefaultParamStep = constants.DefaultParamStep
	}
	s := &Simulation{
		opts:   opts,
		params: params.New(opts.Params...),
		pop:    NewPopulation(opts.Agents, opts.Policy, opts.Palette),
		bounds: bounds,
	}
	s.Reseed(seed)
	return s
}

// Seed returns the seed the current population was built from.
func (s *Simulation) Seed() uint64 {
	return s.seed
}

// TickCount returns the number of ticks stepped since the last reseed.
func (s *Simulation) TickCount() uint64 {
	return s.tick
}

// TotalRetired returns the number of agents retired since the last reseed.
func (s *Simulation) TotalRetired() int {
	return s.totalRetired
}

// Params returns the live parameter store.
func (s *Simulation) Params() *params.Store {
	return s.params
}

// Population returns the population.
func (s *Simulation) Population() *Population {
	return s.pop
}

// Reseed rebuilds the whole population from seed. Reseeding twice with the
// same seed and bounds yields identical populations.
func (s *Simulation) Reseed(seed uint64) {
	s.seed = seed
	s.rng = NewRand(seed)
	s.tick = 0
	s.totalRetired = 0
	s.pop.Seed(s.bounds, s.params, s.rng)
}

// ReseedRandom rebuilds the population from a fresh entropy seed and returns it.
func (s *Simulation) ReseedRandom() uint64 {
	seed := RandomSeed()
	s.Reseed(seed)
	return seed
}

// Apply executes a single command. It reports whether the command reseeded.
func (s *Simulation) Apply(cmd Command) bool {
	switch cmd {
	case CommandSelectNext:
		s.params.SelectNext()
	case CommandSelectPrevious:
		s.params.SelectPrevious()
	case CommandIncrease:
		s.params.AdjustSelected(s.params.SelectedStep(s.opts.DefaultParamStep))
	case CommandDecrease:
		s.params.AdjustSelected(-s.params.SelectedStep(s.opts.DefaultParamStep))
	case CommandReseed:
		s.ReseedRandom()
		return true
	}
	return false
}

// Tick applies pending commands, steps every agent, replaces finished ones
// and returns the resulting frame. A tick that reseeds does not step, so the
// fresh population is rendered before it grows.
func (s *Simulation) Tick(in TickInput) Frame {
	s.bounds = in.Bounds

	reseeded := false
	for _, cmd := range in.Commands {
		if s.Apply(cmd) {
			reseeded = true
		}
	}
	if reseeded {
		f := s.Snapshot(in.Elapsed)
		f.Reseeded = true
		return f
	}

	s.pop.StepPopulation(StepConfigFrom(s.params), s.rng)
	stats := s.pop.CullAndReplace(s.bounds, s.params, s.rng)
	s.tick++
	s.totalRetired += stats.Retired

	f := s.Snapshot(in.Elapsed)
	f.Retired = stats.Retired
	f.Spawned = stats.Spawned
	return f
}

// JitterAmount returns the display wiggle for the given elapsed time.
func (s *Simulation) JitterAmount(elapsed time.Duration) float64 {
	cycle := s.params.GetOr(constants.ParamJitterCycle, constants.DefaultJitterCycleSeconds)
	return oscillator.Cycle(
		elapsed,
		time.Duration(cycle*float64(time.Second)),
		s.params.GetOr(constants.ParamJitterMin, constants.DefaultJitterMin),
		s.params.GetOr(constants.ParamJitterMax, constants.DefaultJitterMax),
	)
}

// Snapshot renders the current state without stepping.
func (s *Simulation) Snapshot(elapsed time.Duration) Frame {
	jitter := s.JitterAmount(elapsed)

	agents := s.pop.agents
	count := 0
	for _, a := range agents {
		count += len(a.Filaments)
	}

	strands := make([]Strand, 0, count)
	for _, a := range agents {
		for _, f := range a.Filaments {
			strands = append(strands, Strand{
				Key:      f.Key,
				Points:   f.RenderPoints(jitter),
				Colour:   a.Colour,
				Finished: f.Finished,
			})
		}
	}

	selected, _, _ := s.params.Selected()
	return Frame{
		Tick:     s.tick,
		Seed:     s.seed,
		Agents:   len(agents),
		Jitter:   jitter,
		Strands:  strands,
		Params:   s.params.Entries(),
		Selected: selected,
	}
}

// DefaultParams returns the built-in tunables in display order.
func DefaultParams() []params.Entry {
	return []params.Entry{
		{Name: constants.ParamStepLength, Value: constants.DefaultStepLength, Step: 0.25},
		{Name: constants.ParamRandFactor, Value: constants.DefaultRandFactor, Step: 0.25},
		{Name: constants.ParamTerminationRadius, Value: constants.DefaultTerminationRadius, Step: 0.25},
		{Name: constants.ParamJitterMin, Value: constants.DefaultJitterMin, Step: 0.1},
		{Name: constants.ParamJitterMax, Value: constants.DefaultJitterMax, Step: 0.1},
		{Name: constants.ParamJitterCycle, Value: constants.DefaultJitterCycleSeconds, Step: 1},
		{Name: constants.ParamSpawnPadding, Value: constants.DefaultSpawnPadding, Step: 0.01},
		{Name: constants.ParamFlushFraction, Value: constants.DefaultFlushFraction, Step: 0.05},
	}
}
