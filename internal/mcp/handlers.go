package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/params"
	"github.com/nvandessel/mycelium/internal/ratelimit"
	"github.com/nvandessel/mycelium/internal/render"
	"github.com/nvandessel/mycelium/internal/sanitize"
	"github.com/nvandessel/mycelium/internal/simulation"
	"github.com/nvandessel/mycelium/internal/store"
	"github.com/nvandessel/mycelium/internal/visualization"
)

// Tool defaults
const (
	defaultSimulateTicks = 600
	defaultSnapshotTicks = 300
	defaultRunsLimit     = 20
	maxSnapshotSize      = 2048
	recentRunsURI        = "mycelium://runs/recent"
)

// registerTools registers all mycelium MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "mycelium_simulate",
		Description: "Run the growth simulation headlessly for a number of ticks and record the run",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "mycelium_runs",
		Description: "List recorded simulation runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "mycelium_run_show",
		Description: "Show a recorded run with its parameters and the command that replays it",
	}, s.handleRunShow)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "mycelium_snapshot",
		Description: "Grow a population for a number of ticks and return the final frame as SVG",
	}, s.handleSnapshot)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         recentRunsURI,
		Name:        "mycelium-recent-runs",
		Description: "The most recent simulation runs with their seeds, for replaying.",
		MIMEType:    "text/markdown",
	}, s.handleRecentRunsResource)
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("mycelium_simulate", start, retErr, toolParams(map[string]any{
			"agents": args.Agents, "ticks": args.Ticks, "seed": args.Seed, "policy": args.Policy, "label": args.Label,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "mycelium_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	sc, err := scenarioFromInput(args.Agents, args.Ticks, defaultSimulateTicks, args.Policy, args.Params)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	sc.Name = "mcp"
	sc.Seed = args.Seed
	sc.Label = sanitize.Label(args.Label)

	result, err := s.runner.Run(ctx, sc)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	var finished float64
	for _, ts := range result.PerTick {
		finished += ts.FinishedFraction()
	}
	if len(result.PerTick) > 0 {
		finished /= float64(len(result.PerTick))
	}

	return nil, SimulateOutput{
		RunID:                result.RunID,
		Seed:                 result.Seed,
		Agents:               result.Agents,
		Policy:               string(result.Policy),
		Ticks:                result.Ticks,
		Retired:              result.Retired,
		Spawned:              result.Spawned,
		FinalAgents:          result.FinalAgents,
		MeanFinishedFraction: finished,
		DurationMs:           result.Duration.Milliseconds(),
		Message: fmt.Sprintf("Ran %d ticks with %d agents (seed %d): %d retired, %d spawned. Replay with `mycelium run --replay %d`.",
			result.Ticks, result.Agents, result.Seed, result.Retired, result.Spawned, result.RunID),
	}, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (_ *sdk.CallToolResult, _ RunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("mycelium_runs", start, retErr, toolParams(map[string]any{"limit": args.Limit}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "mycelium_runs"); err != nil {
		return nil, RunsOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, summarize(r))
	}
	return nil, RunsOutput{Runs: summaries, Count: len(summaries)}, nil
}

func (s *Server) handleRunShow(ctx context.Context, req *sdk.CallToolRequest, args RunShowInput) (_ *sdk.CallToolResult, _ RunShowOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("mycelium_run_show", start, retErr, toolParams(map[string]any{"id": args.ID}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "mycelium_run_show"); err != nil {
		return nil, RunShowOutput{}, err
	}
	if args.ID <= 0 {
		return nil, RunShowOutput{}, fmt.Errorf("id is required")
	}

	run, err := s.store.GetRun(ctx, args.ID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return nil, RunShowOutput{}, fmt.Errorf("run %d not found", args.ID)
		}
		return nil, RunShowOutput{}, fmt.Errorf("failed to get run: %w", err)
	}

	values := make(map[string]float64, len(run.Params))
	for _, e := range run.Params {
		values[e.Name] = e.Value
	}
	return nil, RunShowOutput{
		Run:    summarize(*run),
		Params: values,
		Replay: fmt.Sprintf("mycelium run --replay %d", run.ID),
	}, nil
}

func (s *Server) handleSnapshot(ctx context.Context, req *sdk.CallToolRequest, args SnapshotInput) (_ *sdk.CallToolResult, _ SnapshotOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("mycelium_snapshot", start, retErr, toolParams(map[string]any{
			"seed": args.Seed, "agents": args.Agents, "ticks": args.Ticks, "size": args.Size,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "mycelium_snapshot"); err != nil {
		return nil, SnapshotOutput{}, err
	}

	size := args.Size
	if size <= 0 {
		size = constants.DefaultWindowSize
	}
	if size > maxSnapshotSize {
		return nil, SnapshotOutput{}, fmt.Errorf("size %d exceeds the maximum of %d", size, maxSnapshotSize)
	}

	sc, err := scenarioFromInput(args.Agents, args.Ticks, defaultSnapshotTicks, "", nil)
	if err != nil {
		return nil, SnapshotOutput{}, err
	}
	sc.Seed = args.Seed
	sc.Bounds = render.CentredBounds(size, size)

	// Snapshots are previews; they are not recorded as runs.
	result, err := simulation.NewRunner(nil, s.logger, nil).Run(ctx, sc)
	if err != nil {
		return nil, SnapshotOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	svg := visualization.RenderSVG(result.Final, render.NewTransform(sc.Bounds, size, size))
	return nil, SnapshotOutput{
		Seed:    result.Seed,
		Ticks:   result.Ticks,
		Strands: len(result.Final.Strands),
		SVG:     svg,
	}, nil
}

// handleRecentRunsResource returns the latest runs formatted as markdown.
func (s *Server) handleRecentRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.store.ListRuns(ctx, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Recent mycelium runs\n\n")
	if len(runs) == 0 {
		b.WriteString("No runs recorded yet. Start one with `mycelium_simulate`.\n")
	} else {
		b.WriteString("| id | seed | agents | policy | mode | ticks | retired |\n")
		b.WriteString("|----|------|--------|--------|------|-------|---------|\n")
		for _, r := range runs {
			fmt.Fprintf(&b, "| %d | %d | %d | %s | %s | %d | %d |\n",
				r.ID, r.Seed, r.Agents, r.Policy, r.Mode, r.Ticks, r.Retired)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      recentRunsURI,
				MIMEType: "text/markdown",
				Text:     b.String(),
			},
		},
	}, nil
}

// scenarioFromInput validates the shared tool inputs.
func scenarioFromInput(agents, ticks, defaultTicks int, policy string, overrides map[string]float64) (simulation.Scenario, error) {
	if agents < 0 {
		return simulation.Scenario{}, fmt.Errorf("agents must not be negative")
	}
	if agents == 0 {
		agents = constants.DefaultAgents
	}
	if agents > MaxAgents {
		return simulation.Scenario{}, fmt.Errorf("agents %d exceeds the maximum of %d", agents, MaxAgents)
	}
	if ticks < 0 {
		return simulation.Scenario{}, fmt.Errorf("ticks must not be negative")
	}
	if ticks == 0 {
		ticks = defaultTicks
	}
	if ticks > MaxSimulateTicks {
		return simulation.Scenario{}, fmt.Errorf("ticks %d exceeds the maximum of %d", ticks, MaxSimulateTicks)
	}

	p, err := growth.ParsePolicy(policy)
	if err != nil {
		return simulation.Scenario{}, err
	}

	entries := growth.DefaultParams()
	if len(overrides) > 0 {
		if entries, err = params.Override(entries, overrides); err != nil {
			return simulation.Scenario{}, fmt.Errorf("%w (known: %s)", err, knownParams())
		}
	}

	return simulation.Scenario{Agents: agents, Ticks: ticks, Policy: p, Params: entries}, nil
}

func knownParams() string {
	var names []string
	for _, e := range growth.DefaultParams() {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func summarize(r store.Run) RunSummary {
	return RunSummary{
		ID:        r.ID,
		Seed:      r.Seed,
		Agents:    r.Agents,
		Policy:    r.Policy,
		Mode:      string(r.Mode),
		Label:     r.Label,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Ticks:     r.Ticks,
		Retired:   r.Retired,
	}
}
