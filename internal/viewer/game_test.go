package viewer

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/nvandessel/mycelium/internal/capture"
	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"github.com/nvandessel/mycelium/internal/logging"
	"github.com/nvandessel/mycelium/internal/store"
)

// fakeInput is a scripted keyboard. Keys in pressed are held; keys in
// just were pressed this tick.
type fakeInput struct {
	pressed  map[ebiten.Key]bool
	just     map[ebiten.Key]bool
	released map[ebiten.Key]bool
}

func newFakeInput() *fakeInput {
	return &fakeInput{
		pressed:  map[ebiten.Key]bool{},
		just:     map[ebiten.Key]bool{},
		released: map[ebiten.Key]bool{},
	}
}

func (f *fakeInput) Pressed(k ebiten.Key) bool      { return f.pressed[k] }
func (f *fakeInput) JustPressed(k ebiten.Key) bool  { return f.just[k] }
func (f *fakeInput) JustReleased(k ebiten.Key) bool { return f.released[k] }

func (f *fakeInput) press(keys ...ebiten.Key) {
	for _, k := range keys {
		f.pressed[k] = true
		f.just[k] = true
	}
}

// next advances to the following tick: held keys stay held.
func (f *fakeInput) next() {
	clear(f.just)
	clear(f.released)
}

func (f *fakeInput) release(k ebiten.Key) {
	delete(f.pressed, k)
	f.released[k] = true
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGame(t *testing.T, opts Options, deps Deps) (*Game, *fakeInput, *fakeClock) {
	t.Helper()
	in := newFakeInput()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	deps.Input = in
	deps.Clock = clock.Now
	if opts.Agents == 0 {
		opts.Agents = 5
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	return New(opts, deps), in, clock
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		keys []ebiten.Key
		want []growth.Command
	}{
		{"nothing", nil, nil},
		{"tab selects next", []ebiten.Key{ebiten.KeyTab}, []growth.Command{growth.CommandSelectNext}},
		{"shift tab selects previous", []ebiten.Key{ebiten.KeyShiftLeft, ebiten.KeyTab}, []growth.Command{growth.CommandSelectPrevious}},
		{"right selects next", []ebiten.Key{ebiten.KeyArrowRight}, []growth.Command{growth.CommandSelectNext}},
		{"left selects previous", []ebiten.Key{ebiten.KeyArrowLeft}, []growth.Command{growth.CommandSelectPrevious}},
		{"up increases", []ebiten.Key{ebiten.KeyArrowUp}, []growth.Command{growth.CommandIncrease}},
		{"down decreases", []ebiten.Key{ebiten.KeyArrowDown}, []growth.Command{growth.CommandDecrease}},
		{"enter reseeds", []ebiten.Key{ebiten.KeyEnter}, []growth.Command{growth.CommandReseed}},
		{"numpad enter reseeds", []ebiten.Key{ebiten.KeyNumpadEnter}, []growth.Command{growth.CommandReseed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, in, _ := newTestGame(t, Options{}, Deps{})
			in.press(tt.keys...)
			got := g.Commands()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Commands() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeldKeyRepeats(t *testing.T) {
	g, in, clock := newTestGame(t, Options{}, Deps{})

	in.press(ebiten.KeyArrowUp)
	increases := 0
	// One second at 60 ticks per second
	for i := 0; i < 60; i++ {
		for _, cmd := range g.Commands() {
			if cmd == growth.CommandIncrease {
				increases++
			}
		}
		in.next()
		clock.Advance(time.Second / 60)
	}

	// One on press plus roughly KeyRepeatRate per second
	if increases < 10 || increases > 14 {
		t.Errorf("held key produced %d increases in one second, want about %d", increases, int(constants.KeyRepeatRate)+1)
	}

	// Releasing and pressing again fires immediately
	in.release(ebiten.KeyArrowUp)
	g.Commands()
	in.next()
	in.press(ebiten.KeyArrowUp)
	if !slices.Contains(g.Commands(), growth.CommandIncrease) {
		t.Error("re-pressed key should fire on the first tick")
	}
}

func TestUpdateAdjustsSelectedParameter(t *testing.T) {
	g, in, _ := newTestGame(t, Options{}, Deps{})

	in.press(ebiten.KeyArrowUp)
	if err := g.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	name, value, ok := g.Simulation().Params().Selected()
	if !ok || name != constants.ParamStepLength {
		t.Fatalf("selected = %q, want %q", name, constants.ParamStepLength)
	}
	if value != constants.DefaultStepLength+0.25 {
		t.Errorf("%s = %f, want %f", name, value, constants.DefaultStepLength+0.25)
	}
}

func TestUpdateReseedStartsNewRun(t *testing.T) {
	runStore := store.NewInMemoryRunStore()
	g, in, _ := newTestGame(t, Options{Label: "window"}, Deps{Store: runStore})

	first := g.RunID()
	if first == 0 {
		t.Fatal("expected a run record for the initial seed")
	}
	for i := 0; i < 10; i++ {
		if err := g.Update(); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}

	in.press(ebiten.KeyEnter)
	if err := g.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !g.Frame().Reseeded {
		t.Fatal("frame after Enter should be reseeded")
	}
	for _, s := range g.Frame().Strands {
		if len(s.Points) != 1 {
			t.Fatalf("strand %v has %d points after reseed, want 1", s.Key, len(s.Points))
		}
	}

	second := g.RunID()
	if second == 0 || second == first {
		t.Fatalf("reseed should start a new run record, got %d after %d", second, first)
	}

	ctx := context.Background()
	run, err := runStore.GetRun(ctx, first)
	if err != nil {
		t.Fatalf("GetRun(%d) error = %v", first, err)
	}
	if !run.Finished() || run.Ticks != 10 || run.Mode != store.ModeWindow || run.Label != "window" {
		t.Errorf("first run = %+v", run)
	}

	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	run, err = runStore.GetRun(ctx, second)
	if err != nil {
		t.Fatalf("GetRun(%d) error = %v", second, err)
	}
	if !run.Finished() {
		t.Error("Close should finish the current run")
	}
}

func TestUpdateEscapeTerminates(t *testing.T) {
	g, in, _ := newTestGame(t, Options{}, Deps{})
	in.press(ebiten.KeyEscape)
	if err := g.Update(); err != ebiten.Termination {
		t.Errorf("Update() error = %v, want ebiten.Termination", err)
	}
}

func TestOverlayToggle(t *testing.T) {
	g, in, _ := newTestGame(t, Options{}, Deps{})
	if !g.OverlayVisible() {
		t.Fatal("overlay should be visible by default")
	}
	in.press(ebiten.KeyH)
	if err := g.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if g.OverlayVisible() {
		t.Error("H should hide the overlay")
	}

	hidden, _, _ := newTestGame(t, Options{HideOverlay: true}, Deps{})
	if hidden.OverlayVisible() {
		t.Error("HideOverlay should start with the overlay hidden")
	}
}

func TestOverlayLines(t *testing.T) {
	g, in, _ := newTestGame(t, Options{Seed: 99}, Deps{})
	in.press(ebiten.KeyTab)
	if err := g.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	lines := g.OverlayLines(60)
	if !strings.Contains(lines[0], "seed 99") {
		t.Errorf("header = %q, want the seed", lines[0])
	}
	// Header, one line per parameter, help
	if len(lines) != 1+len(growth.DefaultParams())+1 {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[2], "> "+constants.ParamRandFactor) {
		t.Errorf("second parameter should be selected, got %q", lines[2])
	}
	if strings.HasPrefix(lines[1], ">") {
		t.Errorf("first parameter should not be marked, got %q", lines[1])
	}
}

func TestToggleCapture(t *testing.T) {
	dataDir := t.TempDir()
	events := logging.NewEventLogger(dataDir, "debug")
	captureDir := filepath.Join(t.TempDir(), "output")

	g, in, _ := newTestGame(t, Options{
		Capture: capture.Options{Format: capture.FormatPNG, Dir: captureDir},
	}, Deps{Events: events})

	in.press(ebiten.KeyC)
	if err := g.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !g.Capturing() {
		t.Fatal("C should start capturing")
	}
	if lines := g.OverlayLines(0); !strings.HasPrefix(lines[len(lines)-2], "REC ") {
		t.Errorf("overlay should show the recording, got %q", lines[len(lines)-2])
	}

	in.next()
	in.press(ebiten.KeyC)
	if err := g.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if g.Capturing() {
		t.Error("second C should stop capturing")
	}
	events.Close()

	entries, err := os.ReadDir(captureDir)
	if err != nil {
		t.Fatalf("capture dir not created: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Errorf("expected one session directory, got %v", entries)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, logging.EventsFile))
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	for _, ev := range []string{"capture_start", "capture_stop"} {
		if !strings.Contains(string(data), ev) {
			t.Errorf("events missing %s", ev)
		}
	}
}

func TestLayoutFollowsWindow(t *testing.T) {
	g, _, _ := newTestGame(t, Options{Width: 400, Height: 300}, Deps{})
	w, h := g.Layout(800, 600)
	if w != 800 || h != 600 {
		t.Errorf("Layout() = %d, %d; want 800, 600", w, h)
	}
	if g.bounds.MaxX != 400 || g.bounds.MaxY != 300 {
		t.Errorf("bounds = %+v, want half the window on each side", g.bounds)
	}
}

func TestDefaults(t *testing.T) {
	g, _, _ := newTestGame(t, Options{}, Deps{})
	if g.opts.Width != constants.DefaultWindowSize || g.opts.Title != constants.DefaultWindowTitle {
		t.Errorf("defaults not applied: %+v", g.opts)
	}
	if g.Frame().Agents != 5 {
		t.Errorf("initial frame has %d agents, want 5", g.Frame().Agents)
	}
	if g.RunID() != 0 {
		t.Errorf("RunID() = %d without a store, want 0", g.RunID())
	}
}
