package growth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/params"
)

// Bounds is an axis-aligned viewport.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Square returns bounds of the given size centred on the origin.
func Square(size float64) Bounds {
	h := size / 2
	return Bounds{MinX: -h, MinY: -h, MaxX: h, MaxY: h}
}

// Width returns the horizontal extent, clamped at zero for inverted bounds.
func (b Bounds) Width() float64 {
	return max(b.MaxX-b.MinX, 0)
}

// Height returns the vertical extent, clamped at zero for inverted bounds.
func (b Bounds) Height() float64 {
	return max(b.MaxY-b.MinY, 0)
}

// Padded expands the bounds on every side by fraction of their size.
func (b Bounds) Padded(fraction float64) Bounds {
	if math.IsNaN(fraction) {
		fraction = 0
	}
	dx := b.Width() * fraction
	dy := b.Height() * fraction
	padded := Bounds{MinX: b.MinX - dx, MinY: b.MinY - dy, MaxX: b.MinX + b.Width() + dx, MaxY: b.MinY + b.Height() + dy}
	// A large negative fraction must not invert the bounds.
	if padded.MaxX < padded.MinX {
		mid := b.MinX + b.Width()/2
		padded.MinX, padded.MaxX = mid, mid
	}
	if padded.MaxY < padded.MinY {
		mid := b.MinY + b.Height()/2
		padded.MinY, padded.MaxY = mid, mid
	}
	return padded
}

// RandomPoint returns a point uniformly distributed inside the bounds. A
// zero-extent axis collapses to its minimum.
func (b Bounds) RandomPoint(rng *rand.Rand) Vec2 {
	return Vec2{
		X: b.MinX + rng.Float64()*b.Width(),
		Y: b.MinY + rng.Float64()*b.Height(),
	}
}

// Policy decides when finished agents are replaced.
type Policy string

const (
	// PolicyTrickle replaces each finished agent on the tick it finishes.
	PolicyTrickle Policy = "trickle"

	// PolicyFlush rebuilds the whole population once enough agents finished.
	PolicyFlush Policy = "flush"
)

// ParsePolicy validates a policy name. The empty string means PolicyTrickle.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyTrickle:
		return PolicyTrickle, nil
	case PolicyFlush:
		return PolicyFlush, nil
	default:
		return "", fmt.Errorf("invalid replacement policy: %s (valid: trickle, flush)", s)
	}
}

// ReplaceStats summarises one CullAndReplace pass.
type ReplaceStats struct {
	Kept    int
	Retired int
	Spawned int
}

// Population is a fixed-size ordered collection of agents.
type Population struct {
	agents  []*Agent
	size    int
	policy  Policy
	palette Palette
	nextID  AgentID
}

// NewPopulation creates an empty population that will hold size agents once
// seeded. Negative sizes are treated as zero.
func NewPopulation(size int, policy Policy, palette Palette) *Population {
	if policy == "" {
		policy = PolicyTrickle
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Population{
		size:    max(size, 0),
		policy:  policy,
		palette: palette,
	}
}

// Size returns the configured population size.
func (p *Population) Size() int {
	return p.size
}

// Len returns the current number of agents.
func (p *Population) Len() int {
	return len(p.agents)
}

// Policy returns the replacement policy.
func (p *Population) Policy() Policy {
	return p.policy
}

// Agents returns the agents in order. The slice is a copy; the agents are
// shared and must be treated as read-only.
func (p *Population) Agents() []*Agent {
	out := make([]*Agent, len(p.agents))
	copy(out, p.agents)
	return out
}

// Seed replaces every agent with a fresh one at a random centre inside the
// padded bounds. Each new agent grows toward every other new agent.
func (p *Population) Seed(bounds Bounds, store *params.Store, rng *rand.Rand) {
	spawn := bounds.Padded(store.GetOr(constants.ParamSpawnPadding, constants.DefaultSpawnPadding))

	targets := make([]Target, p.size)
	for i := range targets {
		targets[i] = Target{ID: p.newID(), Centre: spawn.RandomPoint(rng)}
	}

	agents := make([]*Agent, p.size)
	for i, t := range targets {
		agents[i] = NewAgent(t.ID, t.Centre, targets, p.palette.Pick(rng))
	}
	p.agents = agents
}

// StepPopulation steps every agent once.
func (p *Population) StepPopulation(cfg StepConfig, rng *rand.Rand) {
	for _, a := range p.agents {
		a.Step(cfg, rng)
	}
}

// CullAndReplace retires finished agents according to the policy and spawns
// replacements so that the population keeps its size.
func (p *Population) CullAndReplace(bounds Bounds, store *params.Store, rng *rand.Rand) ReplaceStats {
	finished := 0
	for _, a := range p.agents {
		if a.Finished() {
			finished++
		}
	}

	if p.policy == PolicyFlush {
		return p.flush(finished, bounds, store, rng)
	}
	return p.trickle(bounds, store, rng)
}

// trickle removes every finished agent and spawns exactly one replacement per
// removal. Replacements grow toward the survivors and toward replacements
// spawned earlier in the same pass, never toward removed agents. Every agent
// then starts a filament toward each replacement it lacks one for, so all
// live agents stay connected pairwise.
func (p *Population) trickle(bounds Bounds, store *params.Store, rng *rand.Rand) ReplaceStats {
	kept := make([]*Agent, 0, p.size)
	for _, a := range p.agents {
		if !a.Finished() {
			kept = append(kept, a)
		}
	}
	stats := ReplaceStats{Kept: len(kept), Retired: len(p.agents) - len(kept)}

	// Top up to the configured size in case the population was ever short.
	missing := p.size - len(kept)
	if missing <= 0 {
		p.agents = kept
		return stats
	}

	spawn := bounds.Padded(store.GetOr(constants.ParamSpawnPadding, constants.DefaultSpawnPadding))
	for i := 0; i < missing; i++ {
		targets := make([]Target, len(kept))
		for j, a := range kept {
			targets[j] = a.AsTarget()
		}
		agent := NewAgent(p.newID(), spawn.RandomPoint(rng), targets, p.palette.Pick(rng))
		kept = append(kept, agent)
		stats.Spawned++
	}

	newcomers := kept[stats.Kept:]
	for _, a := range kept {
		for _, n := range newcomers {
			a.AddTarget(n.AsTarget())
		}
	}
	p.agents = kept
	return stats
}

// flush rebuilds the whole population once the finished fraction reaches the
// flush_fraction parameter.
func (p *Population) flush(finished int, bounds Bounds, store *params.Store, rng *rand.Rand) ReplaceStats {
	total := len(p.agents)
	threshold := store.GetOr(constants.ParamFlushFraction, constants.DefaultFlushFraction)
	if total > 0 && (finished == 0 || float64(finished) < threshold*float64(total)) {
		return ReplaceStats{Kept: total}
	}
	if total == 0 && p.size == 0 {
		return ReplaceStats{}
	}

	p.Seed(bounds, store, rng)
	return ReplaceStats{Retired: total, Spawned: len(p.agents)}
}

func (p *Population) newID() AgentID {
	p.nextID++
	return p.nextID
}
