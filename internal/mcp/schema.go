// Package mcp provides an MCP (Model Context Protocol) server for mycelium.
package mcp

import (
	"time"
)

// MaxSimulateTicks bounds a single mycelium_simulate call.
const MaxSimulateTicks = 20000

// MaxAgents bounds the population of a single tool call. Filaments grow
// with the square of the population.
const MaxAgents = 200

// SimulateInput defines the input for the mycelium_simulate tool.
type SimulateInput struct {
	Agents int                `json:"agents,omitempty" jsonschema:"Population size (default 20, max 200)"`
	Ticks  int                `json:"ticks,omitempty" jsonschema:"Number of ticks to run (default 600, max 20000)"`
	Seed   uint64             `json:"seed,omitempty" jsonschema:"Random seed; 0 draws a fresh one"`
	Policy string             `json:"policy,omitempty" jsonschema:"Replacement policy: 'trickle' (default) or 'flush'"`
	Label  string             `json:"label,omitempty" jsonschema:"Label stored with the run record"`
	Params map[string]float64 `json:"params,omitempty" jsonschema:"Parameter overrides by name (e.g. step_length, rand_factor)"`
}

// SimulateOutput defines the output for the mycelium_simulate tool.
type SimulateOutput struct {
	RunID                int64   `json:"run_id" jsonschema:"ID of the stored run record"`
	Seed                 uint64  `json:"seed" jsonschema:"Seed used for the run"`
	Agents               int     `json:"agents" jsonschema:"Population size"`
	Policy               string  `json:"policy" jsonschema:"Replacement policy used"`
	Ticks                int     `json:"ticks" jsonschema:"Ticks completed"`
	Retired              int     `json:"retired" jsonschema:"Agents retired over the run"`
	Spawned              int     `json:"spawned" jsonschema:"Agents spawned over the run"`
	FinalAgents          int     `json:"final_agents" jsonschema:"Population size at the end"`
	MeanFinishedFraction float64 `json:"mean_finished_fraction" jsonschema:"Mean share of finished filaments per tick"`
	DurationMs           int64   `json:"duration_ms" jsonschema:"Wall-clock duration in milliseconds"`
	Message              string  `json:"message" jsonschema:"Human-readable summary"`
}

// RunsInput defines the input for the mycelium_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return, newest first (default 20)"`
}

// RunsOutput defines the output for the mycelium_runs tool.
type RunsOutput struct {
	Runs  []RunSummary `json:"runs" jsonschema:"Recorded runs"`
	Count int          `json:"count" jsonschema:"Number of runs returned"`
}

// RunSummary provides a list view of a run.
type RunSummary struct {
	ID        int64      `json:"id"`
	Seed      uint64     `json:"seed"`
	Agents    int        `json:"agents"`
	Policy    string     `json:"policy"`
	Mode      string     `json:"mode"`
	Label     string     `json:"label,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Ticks     uint64     `json:"ticks"`
	Retired   int        `json:"retired"`
}

// RunShowInput defines the input for the mycelium_run_show tool.
type RunShowInput struct {
	ID int64 `json:"id" jsonschema:"Run ID"`
}

// RunShowOutput defines the output for the mycelium_run_show tool.
type RunShowOutput struct {
	Run    RunSummary         `json:"run" jsonschema:"The run record"`
	Params map[string]float64 `json:"params" jsonschema:"Parameters the run started with"`
	Replay string             `json:"replay" jsonschema:"CLI command that replays the run"`
}

// SnapshotInput defines the input for the mycelium_snapshot tool.
type SnapshotInput struct {
	Seed   uint64 `json:"seed,omitempty" jsonschema:"Random seed; 0 draws a fresh one"`
	Agents int    `json:"agents,omitempty" jsonschema:"Population size (default 20, max 200)"`
	Ticks  int    `json:"ticks,omitempty" jsonschema:"Ticks to run before rendering (default 300, max 20000)"`
	Size   int    `json:"size,omitempty" jsonschema:"Canvas width and height in pixels (default 900)"`
}

// SnapshotOutput defines the output for the mycelium_snapshot tool.
type SnapshotOutput struct {
	Seed    uint64 `json:"seed" jsonschema:"Seed used"`
	Ticks   int    `json:"ticks" jsonschema:"Ticks run before rendering"`
	Strands int    `json:"strands" jsonschema:"Number of filaments drawn"`
	SVG     string `json:"svg" jsonschema:"The rendered SVG document"`
}
