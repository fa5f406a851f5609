package viewer

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Input reports keyboard state for the current tick.
type Input interface {
	Pressed(k ebiten.Key) bool
	JustPressed(k ebiten.Key) bool
	JustReleased(k ebiten.Key) bool
}

// KeyboardInput reads the real keyboard through ebiten.
type KeyboardInput struct{}

func (KeyboardInput) Pressed(k ebiten.Key) bool      { return ebiten.IsKeyPressed(k) }
func (KeyboardInput) JustPressed(k ebiten.Key) bool  { return inpututil.IsKeyJustPressed(k) }
func (KeyboardInput) JustReleased(k ebiten.Key) bool { return inpututil.IsKeyJustReleased(k) }

// Bindings
var (
	keysNext     = []ebiten.Key{ebiten.KeyArrowRight}
	keysPrevious = []ebiten.Key{ebiten.KeyArrowLeft}
	keysReseed   = []ebiten.Key{ebiten.KeyEnter, ebiten.KeyNumpadEnter}
	keysShift    = []ebiten.Key{ebiten.KeyShiftLeft, ebiten.KeyShiftRight}
)

func anyJustPressed(in Input, keys []ebiten.Key) bool {
	for _, k := range keys {
		if in.JustPressed(k) {
			return true
		}
	}
	return false
}

func anyPressed(in Input, keys []ebiten.Key) bool {
	for _, k := range keys {
		if in.Pressed(k) {
			return true
		}
	}
	return false
}
