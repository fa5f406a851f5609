// Package viewer runs the growth simulation in a desktop window.
package viewer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/nvandessel/mycelium/internal/capture"
	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/params"
	"github.com/nvandessel/mycelium/internal/ratelimit"
	"github.com/nvandessel/mycelium/internal/render"
	"github.com/nvandessel/mycelium/internal/store"
)

// Options configures a viewer session.
type Options struct {
	Width      int
	Height     int
	Title      string
	Fullscreen bool

	// TicksPerSecond is the update rate. Zero means constants.DefaultTicksPerSecond.
	TicksPerSecond int

	Agents int
	Policy growth.Policy
	Params []params.Entry

	// Seed fixes the initial seed. Zero draws a fresh one.
	Seed uint64

	// Label is stored with every run record.
	Label string

	// Capture configures the C key. Width, Height and Now are filled in
	// when recording starts.
	Capture capture.Options

	// CaptureOnStart begins recording before the first frame.
	CaptureOnStart bool

	HideOverlay bool
}

// Deps are the collaborators of a Game. All of them may be nil.
type Deps struct {
	Store  store.RunStore
	Logger *slog.Logger
	Events *logging.EventLogger
	Input  Input
	Clock  func() time.Time
}

// Game implements ebiten.Game around a growth.Simulation.
type Game struct {
	opts Options
	sim  *growth.Simulation

	input     Input
	clock     func() time.Time
	start     time.Time
	keyRepeat *ratelimit.Limiter

	width, height int
	bounds        growth.Bounds
	frame         growth.Frame
	overlay       bool

	sink   capture.Sink
	pixels []byte

	store  store.RunStore
	runID  int64
	logger *slog.Logger
	events *logging.EventLogger
}

// New creates a game. The first frame is the freshly seeded population.
func New(opts Options, deps Deps) *Game {
	if opts.Width <= 0 {
		opts.Width = constants.DefaultWindowSize
	}
	if opts.Height <= 0 {
		opts.Height = constants.DefaultWindowSize
	}
	if opts.Title == "" {
		opts.Title = constants.DefaultWindowTitle
	}
	if opts.TicksPerSecond <= 0 {
		opts.TicksPerSecond = constants.DefaultTicksPerSecond
	}
	if opts.Params == nil {
		opts.Params = growth.DefaultParams()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Input == nil {
		deps.Input = KeyboardInput{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	seed := opts.Seed
	if seed == 0 {
		seed = growth.RandomSeed()
	}

	bounds := render.CentredBounds(opts.Width, opts.Height)
	g := &Game{
		opts:      opts,
		input:     deps.Input,
		clock:     deps.Clock,
		start:     deps.Clock(),
		keyRepeat: ratelimit.NewLimiter(constants.KeyRepeatRate, constants.KeyRepeatBurst).WithClock(deps.Clock),
		width:     opts.Width,
		height:    opts.Height,
		bounds:    bounds,
		overlay:   !opts.HideOverlay,
		store:     deps.Store,
		logger:    deps.Logger,
		events:    deps.Events,
	}
	g.sim = growth.New(growth.Options{
		Agents: opts.Agents,
		Policy: opts.Policy,
		Params: opts.Params,
	}, seed, bounds)
	g.frame = g.sim.Snapshot(0)
	g.startRun()
	g.events.Reseed(seed, opts.Agents)
	return g
}

// Simulation returns the underlying simulation.
func (g *Game) Simulation() *growth.Simulation {
	return g.sim
}

// Frame returns the most recent frame.
func (g *Game) Frame() growth.Frame {
	return g.frame
}

// RunID returns the run record of the current seed, or 0 without a store.
func (g *Game) RunID() int64 {
	return g.runID
}

// Capturing reports whether frames are being recorded.
func (g *Game) Capturing() bool {
	return g.sink != nil
}

// OverlayVisible reports whether the parameter overlay is drawn.
func (g *Game) OverlayVisible() bool {
	return g.overlay
}

// Commands translates the current key state into simulation commands.
// Held Up/Down keys repeat at constants.KeyRepeatRate.
func (g *Game) Commands() []growth.Command {
	in := g.input
	var cmds []growth.Command

	if in.JustPressed(ebiten.KeyTab) {
		if anyPressed(in, keysShift) {
			cmds = append(cmds, growth.CommandSelectPrevious)
		} else {
			cmds = append(cmds, growth.CommandSelectNext)
		}
	}
	if anyJustPressed(in, keysNext) {
		cmds = append(cmds, growth.CommandSelectNext)
	}
	if anyJustPressed(in, keysPrevious) {
		cmds = append(cmds, growth.CommandSelectPrevious)
	}
	if g.repeat(ebiten.KeyArrowUp) {
		cmds = append(cmds, growth.CommandIncrease)
	}
	if g.repeat(ebiten.KeyArrowDown) {
		cmds = append(cmds, growth.CommandDecrease)
	}
	if anyJustPressed(in, keysReseed) {
		cmds = append(cmds, growth.CommandReseed)
	}
	return cmds
}

// repeat reports whether a held key fires this tick.
func (g *Game) repeat(k ebiten.Key) bool {
	name := k.String()
	if g.input.JustPressed(k) || g.input.JustReleased(k) {
		g.keyRepeat.Reset(name)
	}
	return g.input.Pressed(k) && g.keyRepeat.Allow(name)
}

// Update handles input and advances the simulation by one tick.
func (g *Game) Update() error {
	if g.input.JustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if g.input.JustPressed(ebiten.KeyH) {
		g.overlay = !g.overlay
	}
	if g.input.JustPressed(ebiten.KeyF) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if g.input.JustPressed(ebiten.KeyC) {
		if err := g.ToggleCapture(); err != nil {
			g.logger.Error("capture toggle failed", "error", err)
		}
	}

	cmds := g.Commands()
	ticks, retired := g.sim.TickCount(), g.sim.TotalRetired()
	g.frame = g.sim.Tick(growth.TickInput{
		Bounds:   g.bounds,
		Elapsed:  g.clock().Sub(g.start),
		Commands: cmds,
	})

	if g.frame.Reseeded {
		g.finishRun(ticks, retired)
		g.startRun()
		g.events.Reseed(g.frame.Seed, g.frame.Agents)
		g.logger.Info("reseeded", "seed", g.frame.Seed)
	} else {
		g.events.Replace(g.frame.Tick, g.frame.Retired, g.frame.Spawned)
	}
	for _, cmd := range cmds {
		if cmd == growth.CommandIncrease || cmd == growth.CommandDecrease {
			if name, value, ok := g.sim.Params().Selected(); ok {
				g.events.Param(name, value)
			}
		}
	}
	return nil
}

// Draw renders the current frame and, while recording, captures it.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(render.Background)

	t := render.NewTransform(g.bounds, g.width, g.height)
	render.Segments(g.frame, t, func(x0, y0, x1, y1 float64, c color.NRGBA) {
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), constants.StrandWidth, c, true)
	})

	if g.sink != nil {
		g.captureScreen(screen)
	}
	if g.overlay {
		drawOverlay(screen, g.OverlayLines(ebiten.ActualFPS()))
	}
}

// Layout tracks the window size; the simulation bounds follow it.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		g.bounds = render.CentredBounds(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}

// ToggleCapture starts or stops recording frames.
func (g *Game) ToggleCapture() error {
	if g.sink != nil {
		return g.stopCapture()
	}

	opts := g.opts.Capture
	opts.Width, opts.Height = g.width, g.height
	opts.Now = g.clock()
	sink, err := capture.New(opts)
	if err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	g.sink = sink
	g.events.Capture(true, sink.Target(), 0)
	g.logger.Info("capture started", "target", sink.Target())
	return nil
}

func (g *Game) stopCapture() error {
	sink := g.sink
	g.sink = nil
	err := sink.Close()
	g.events.Capture(false, sink.Target(), sink.Frames())
	g.logger.Info("capture stopped", "target", sink.Target(), "frames", sink.Frames())
	if err != nil {
		return fmt.Errorf("stopping capture: %w", err)
	}
	return nil
}

func (g *Game) captureScreen(screen *ebiten.Image) {
	b := screen.Bounds()
	w, h := b.Dx(), b.Dy()
	if need := 4 * w * h; len(g.pixels) != need {
		g.pixels = make([]byte, need)
	}
	screen.ReadPixels(g.pixels)
	img := &image.RGBA{Pix: g.pixels, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}

	if err := g.sink.WriteFrame(img); err != nil {
		g.logger.Error("capture frame failed, stopping capture", "error", err)
		if err := g.stopCapture(); err != nil {
			g.logger.Error("closing capture", "error", err)
		}
	}
}

func (g *Game) startRun() {
	if g.store == nil {
		return
	}
	id, err := g.store.StartRun(context.Background(), store.Run{
		Seed:   g.sim.Seed(),
		Agents: g.opts.Agents,
		Policy: string(g.sim.Population().Policy()),
		Mode:   store.ModeWindow,
		Label:  g.opts.Label,
		Params: g.sim.Params().Entries(),
	})
	if err != nil {
		g.logger.Warn("recording run failed", "error", err)
		g.runID = 0
		return
	}
	g.runID = id
}

func (g *Game) finishRun(ticks uint64, retired int) {
	if g.store == nil || g.runID == 0 {
		return
	}
	if err := g.store.FinishRun(context.Background(), g.runID, ticks, retired); err != nil {
		g.logger.Warn("finishing run failed", "run", g.runID, "error", err)
	}
	g.runID = 0
}

// Close stops any capture and finishes the current run record.
func (g *Game) Close() error {
	var err error
	if g.sink != nil {
		err = g.stopCapture()
	}
	g.finishRun(g.sim.TickCount(), g.sim.TotalRetired())
	return err
}

// Run opens the window and blocks until it is closed.
func Run(g *Game) error {
	ebiten.SetWindowSize(g.opts.Width, g.opts.Height)
	ebiten.SetWindowTitle(g.opts.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(g.opts.Fullscreen)
	ebiten.SetTPS(g.opts.TicksPerSecond)

	if g.opts.CaptureOnStart {
		if err := g.ToggleCapture(); err != nil {
			return err
		}
	}

	runErr := ebiten.RunGame(g)
	closeErr := g.Close()
	if runErr != nil {
		return fmt.Errorf("running window: %w", runErr)
	}
	return closeErr
}
