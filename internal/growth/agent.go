package growth

import (
	"image/color"
	"math/rand/v2"

	"github.com/nvandessel/mycelium/internal/constants"
)

// Target is another agent a new agent grows toward.
type Target struct {
	ID     AgentID
	Centre Vec2
}

// Agent is a centre point plus one filament toward every other live agent.
// Filaments toward agents retired since they were started are kept.
type Agent struct {
	ID        AgentID
	Centre    Vec2
	Colour    color.NRGBA
	Filaments []*Filament

	byDest map[AgentID]int
}

// NewAgent creates an agent with one filament per target. The agent's own ID
// and targets sharing its exact centre are skipped, so no filament ever
// starts on its own end.
func NewAgent(id AgentID, centre Vec2, targets []Target, colour color.NRGBA) *Agent {
	a := &Agent{
		ID:        id,
		Centre:    centre,
		Colour:    colour,
		Filaments: make([]*Filament, 0, len(targets)),
		byDest:    make(map[AgentID]int, len(targets)),
	}
	for _, t := range targets {
		a.AddTarget(t)
	}
	return a
}

// AddTarget starts a filament toward t and reports whether it did. Targets
// already grown toward, the agent itself and targets on its centre are
// skipped.
func (a *Agent) AddTarget(t Target) bool {
	if t.ID == a.ID || t.Centre.ApproxEqual(a.Centre, constants.PointTolerance) {
		return false
	}
	if _, dup := a.byDest[t.ID]; dup {
		return false
	}
	a.byDest[t.ID] = len(a.Filaments)
	a.Filaments = append(a.Filaments, NewFilament(FilamentKey{Source: a.ID, Dest: t.ID}, a.Centre, t.Centre))
	return true
}

// AsTarget returns the agent as a growth target for other agents.
func (a *Agent) AsTarget() Target {
	return Target{ID: a.ID, Centre: a.Centre}
}

// Step advances every filament once.
func (a *Agent) Step(cfg StepConfig, rng *rand.Rand) {
	for _, f := range a.Filaments {
		f.Step(cfg, rng)
	}
}

// Finished reports whether every filament has finished. An agent without
// filaments is trivially finished.
func (a *Agent) Finished() bool {
	for _, f := range a.Filaments {
		if !f.Finished {
			return false
		}
	}
	return true
}

// Filament returns the filament growing toward dest.
func (a *Agent) Filament(dest AgentID) (*Filament, bool) {
	i, ok := a.byDest[dest]
	if !ok {
		return nil, false
	}
	return a.Filaments[i], true
}

// RenderPoints returns the displaced point sequence of every filament, in
// filament order.
func (a *Agent) RenderPoints(jitterAmount float64) [][]Vec2 {
	out := make([][]Vec2, len(a.Filaments))
	for i, f := range a.Filaments {
		out[i] = f.RenderPoints(jitterAmount)
	}
	return out
}
