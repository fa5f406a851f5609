// Package constants provides named constants used throughout the mycelium codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

import "time"

// Population constants
const (
	// DefaultAgents is the number of growth agents kept alive at all times.
	DefaultAgents = 20

	// DefaultTicksPerSecond is the simulation rate used by the window and the server.
	DefaultTicksPerSecond = 60

	// MaxTicksPerSecond caps the simulation rate.
	MaxTicksPerSecond = 1000
)

// Window constants
const (
	// DefaultWindowSize is the width and height of the square viewer window.
	DefaultWindowSize = 900

	// DefaultWindowTitle is shown in the viewer title bar.
	DefaultWindowTitle = "mycelium"

	// StrandWidth is the stroke width used when drawing filaments.
	StrandWidth = 3.0

	// PaletteAlpha is the alpha shared by every palette colour. Filaments overlap
	// heavily, so a low alpha lets density build up visibly.
	PaletteAlpha = 48
)

// Parameter names read by the growth engine.
const (
	ParamStepLength        = "step_length"
	ParamRandFactor        = "rand_factor"
	ParamTerminationRadius = "termination_radius"
	ParamJitterMin         = "jitter_min"
	ParamJitterMax         = "jitter_max"
	ParamJitterCycle       = "jitter_cycle_seconds"
	ParamSpawnPadding      = "spawn_padding"
	ParamFlushFraction     = "flush_fraction"
)

// Built-in parameter defaults. The engine falls back to these whenever a
// parameter is missing from the store.
const (
	// DefaultStepLength is how far a filament moves toward its target per tick.
	DefaultStepLength = 2.0

	// DefaultRandFactor scales the random jitter added to every step.
	DefaultRandFactor = 2.0

	// DefaultTerminationRadius is the distance below which a filament snaps to its target.
	DefaultTerminationRadius = 2.0

	// DefaultJitterMin and DefaultJitterMax bound the display wiggle amplitude.
	DefaultJitterMin = 0.0
	DefaultJitterMax = 3.0

	// DefaultJitterCycleSeconds is the period of the display wiggle oscillation.
	DefaultJitterCycleSeconds = 12.0

	// DefaultSpawnPadding expands the viewport (as a fraction of its size on
	// each side) when choosing new agent centres.
	DefaultSpawnPadding = 0.05

	// DefaultFlushFraction is the finished fraction that triggers a full
	// rebuild under the flush replacement policy.
	DefaultFlushFraction = 2.0 / 3.0

	// DefaultParamStep is the adjustment applied per key press when a
	// parameter entry does not declare its own step.
	DefaultParamStep = 0.1
)

// Filament geometry constants
const (
	// PointTolerance is the distance under which two positions are considered equal.
	PointTolerance = 1e-9
)

// Capture constants
const (
	// DefaultCaptureFPS is the frame rate recorded in MJPEG containers.
	DefaultCaptureFPS = 30

	// DefaultJPEGQuality is the JPEG quality used for MJPEG frames.
	DefaultJPEGQuality = 90

	// CaptureDirTimeFormat names the per-session capture directory.
	CaptureDirTimeFormat = "2006-01-02_15-04-05"
)

// Key repeat constants for held parameter keys.
const (
	// KeyRepeatRate is the number of repeated adjustments per second while a key is held.
	KeyRepeatRate = 12.0

	// KeyRepeatBurst is the number of adjustments allowed immediately on press.
	KeyRepeatBurst = 1
)

// Server constants
const (
	// StreamInterval is how often the websocket stream pushes a frame.
	StreamInterval = time.Second / 30

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout = 5 * time.Second
)
