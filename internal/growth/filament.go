package growth

import (
	"math/rand/v2"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/params"
)

// AgentID identifies an agent for the lifetime of a simulation. IDs are
// never reused, even across reseeds.
type AgentID uint64

// FilamentKey identifies the directed filament from one agent to another.
type FilamentKey struct {
	Source AgentID `json:"source"`
	Dest   AgentID `json:"dest"`
}

// StepConfig holds the tunables consumed by Filament.Step.
type StepConfig struct {
	StepLength        float64
	RandFactor        float64
	TerminationRadius float64
}

// StepConfigFrom reads the stepping tunables from a parameter store, falling
// back to the built-in defaults for missing keys.
func StepConfigFrom(p *params.Store) StepConfig {
	return StepConfig{
		StepLength:        p.GetOr(constants.ParamStepLength, constants.DefaultStepLength),
		RandFactor:        p.GetOr(constants.ParamRandFactor, constants.DefaultRandFactor),
		TerminationRadius: p.GetOr(constants.ParamTerminationRadius, constants.DefaultTerminationRadius),
	}
}

// Filament is a growing path from Start toward End.
//
// Points always begins at Start. Once Finished is set no point is appended
// and the last point sits exactly at End.
type Filament struct {
	Key      FilamentKey `json:"key"`
	Start    Vec2        `json:"start"`
	End      Vec2        `json:"end"`
	Points   []Point     `json:"points"`
	Finished bool        `json:"finished"`
}

// NewFilament creates an unfinished filament holding only its origin point.
func NewFilament(key FilamentKey, start, end Vec2) *Filament {
	return &Filament{
		Key:    key,
		Start:  start,
		End:    end,
		Points: []Point{{Pos: start}},
	}
}

// Last returns the position of the most recent point.
func (f *Filament) Last() Vec2 {
	return f.Points[len(f.Points)-1].Pos
}

// Step advances the filament by one point.
//
// Completion takes two calls: the step that comes within the termination
// radius appends a point exactly at End, and the following call observes
// that the filament sits on End and marks it finished.
//
// The step toward End is clamped to the remaining distance, so a step_length
// above the termination radius cannot carry the filament past End. A point
// that lands on End within PointTolerance is snapped onto it.
func (f *Filament) Step(cfg StepConfig, rng *rand.Rand) {
	if f.Finished {
		return
	}

	last := f.Last()
	if last.ApproxEqual(f.End, constants.PointTolerance) {
		f.Finished = true
		return
	}

	remaining := last.Dist(f.End)
	if remaining <= cfg.TerminationRadius {
		f.Points = append(f.Points, Point{Pos: f.End})
		return
	}

	away, ok := last.Sub(f.End).Normalize()
	if !ok {
		// No direction left to travel: already on target.
		f.Finished = true
		return
	}

	// Never step past the target, or a long step would oscillate around it.
	step := min(max(cfg.StepLength, 0), remaining)
	jitter := randomUnit(rng).Scale(cfg.RandFactor)
	next := last.Sub(away.Scale(step).Add(jitter))

	if next.ApproxEqual(f.End, constants.PointTolerance) {
		f.Points = append(f.Points, Point{Pos: f.End})
		return
	}
	f.Points = append(f.Points, Point{Pos: next, Variation: randomUnit(rng)})
}

// RenderPoints returns every point displaced by its variation scaled by
// jitterAmount. The filament itself is not modified.
func (f *Filament) RenderPoints(jitterAmount float64) []Vec2 {
	out := make([]Vec2, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.Displaced(jitterAmount)
	}
	return out
}
