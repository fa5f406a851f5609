package viewer

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

const (
	overlayMarginX    = 8
	overlayMarginY    = 16
	overlayLineHeight = 14
)

var (
	overlayColour  = color.RGBA{R: 245, G: 222, B: 179, A: 255} // wheat
	selectedColour = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	overlayHelp    = "tab/arrows select  up/down adjust  enter reseed  c capture  h hide  esc quit"
)

// OverlayLines returns the text drawn over the animation, top to bottom.
// The selected parameter is marked with '>'.
func (g *Game) OverlayLines(fps float64) []string {
	lines := []string{
		fmt.Sprintf("seed %d  agents %d  tick %d  %.0f fps", g.frame.Seed, g.frame.Agents, g.frame.Tick, fps),
	}
	for _, e := range g.frame.Params {
		marker := " "
		if e.Name == g.frame.Selected {
			marker = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %-22s %8.3f", marker, e.Name, e.Value))
	}
	if g.sink != nil {
		lines = append(lines, fmt.Sprintf("REC %s (%d frames)", g.sink.Target(), g.sink.Frames()))
	}
	lines = append(lines, overlayHelp)
	return lines
}

func drawOverlay(screen *ebiten.Image, lines []string) {
	for i, line := range lines {
		c := overlayColour
		if len(line) > 0 && line[0] == '>' {
			c = selectedColour
		}
		text.Draw(screen, line, basicfont.Face7x13, overlayMarginX, overlayMarginY+i*overlayLineHeight, c)
	}
}
