package simulation

import (
	"time"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/params"
)

// Scenario defines a complete headless run.
type Scenario struct {
	Name   string
	Agents int
	Policy growth.Policy

	// Seed fixes the random seed. Zero draws a fresh one; the drawn seed is
	// reported in the result.
	Seed uint64

	// Ticks is the number of ticks to run.
	Ticks int

	// Params seeds the parameter store. Nil means growth.DefaultParams().
	Params []params.Entry

	// Bounds is the viewport. The zero value means a square of
	// constants.DefaultWindowSize centred on the origin.
	Bounds growth.Bounds

	// TicksPerSecond drives the synthetic clock that feeds the oscillator.
	// Zero means constants.DefaultTicksPerSecond.
	TicksPerSecond int

	// Commands schedules commands on specific ticks (0-based).
	Commands map[int][]growth.Command

	// Label is stored with the run record.
	Label string

	// OnFrame, when non-nil, is called with every frame produced. Use this to
	// feed a capture sink or a live view.
	OnFrame func(growth.Frame)
}

// withDefaults fills zero-valued fields.
func (s Scenario) withDefaults() Scenario {
	if s.Params == nil {
		s.Params = growth.DefaultParams()
	}
	if s.Bounds == (growth.Bounds{}) {
		s.Bounds = growth.Square(constants.DefaultWindowSize)
	}
	if s.TicksPerSecond <= 0 {
		s.TicksPerSecond = constants.DefaultTicksPerSecond
	}
	if s.Policy == "" {
		s.Policy = growth.PolicyTrickle
	}
	if s.Ticks < 0 {
		s.Ticks = 0
	}
	return s
}

// elapsed returns the synthetic clock value at the given tick.
func (s Scenario) elapsed(tick int) time.Duration {
	return time.Duration(tick) * time.Second / time.Duration(s.TicksPerSecond)
}

// TickStats captures the outcome of a single tick.
type TickStats struct {
	Tick              int     `json:"tick"`
	Retired           int     `json:"retired"`
	Spawned           int     `json:"spawned"`
	Agents            int     `json:"agents"`
	Filaments         int     `json:"filaments"`
	FinishedFilaments int     `json:"finished_filaments"`
	Points            int     `json:"points"`
	Jitter            float64 `json:"jitter"`
	Reseeded          bool    `json:"reseeded,omitempty"`
}

// FinishedFraction is the share of filaments that have finished.
func (ts TickStats) FinishedFraction() float64 {
	if ts.Filaments == 0 {
		return 0
	}
	return float64(ts.FinishedFilaments) / float64(ts.Filaments)
}

// Result captures a whole run.
type Result struct {
	Name        string         `json:"name,omitempty"`
	RunID       int64          `json:"run_id,omitempty"`
	Seed        uint64         `json:"seed"`
	Agents      int            `json:"agents"`
	Policy      growth.Policy  `json:"policy"`
	Ticks       int            `json:"ticks"`
	Retired     int            `json:"retired"`
	Spawned     int            `json:"spawned"`
	Reseeds     int            `json:"reseeds"`
	FinalAgents int            `json:"final_agents"`
	Params      []params.Entry `json:"params"`
	PerTick     []TickStats    `json:"per_tick,omitempty"`
	Duration    time.Duration  `json:"duration"`

	// Final is the last frame produced.
	Final growth.Frame `json:"-"`
}

// statsFromFrame summarises a frame.
func statsFromFrame(tick int, f growth.Frame) TickStats {
	ts := TickStats{
		Tick:      tick,
		Retired:   f.Retired,
		Spawned:   f.Spawned,
		Agents:    f.Agents,
		Filaments: len(f.Strands),
		Jitter:    f.Jitter,
		Reseeded:  f.Reseeded,
	}
	for _, s := range f.Strands {
		if s.Finished {
			ts.FinishedFilaments++
		}
		ts.Points += len(s.Points)
	}
	return ts
}
