// Package store defines the RunStore interface for recording simulation runs
// so that any run can be inspected or replayed from its seed later.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/mycelium/internal/params"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Mode identifies the host that produced a run.
type Mode string

const (
	ModeWindow   Mode = "window"   // Interactive ebiten viewer
	ModeHeadless Mode = "headless" // simulate command or MCP tool
	ModeServe    Mode = "serve"    // Snapshot HTTP server
)

// Run is one recorded simulation session.
type Run struct {
	ID        int64          `json:"id"`
	Seed      uint64         `json:"seed"`
	Agents    int            `json:"agents"`
	Policy    string         `json:"policy"`
	Mode      Mode           `json:"mode"`
	Label     string         `json:"label,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"` // nil while the run is in progress
	Ticks     uint64         `json:"ticks"`
	Retired   int            `json:"retired"`
	Params    []params.Entry `json:"params,omitempty"`
}

// Finished reports whether the run was closed with FinishRun.
func (r Run) Finished() bool {
	return r.EndedAt != nil
}

// RunStore defines the interface for storing and querying run history.
type RunStore interface {
	// StartRun records a new run and returns its ID. ID and EndedAt are ignored.
	StartRun(ctx context.Context, run Run) (int64, error)

	// FinishRun records the final tick count and retirements of a run.
	FinishRun(ctx context.Context, id int64, ticks uint64, retired int) error

	// GetRun returns a run with its parameters, or ErrRunNotFound.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns returns the most recent runs first. limit <= 0 means no limit.
	// Parameters are not loaded.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// DeleteRun removes a run and its parameters, or returns ErrRunNotFound.
	DeleteRun(ctx context.Context, id int64) error

	Close() error
}
