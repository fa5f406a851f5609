package growth

import (
	"image/color"
	"math/rand/v2"

	"github.com/nvandessel/mycelium/internal/constants"
)

// Palette is the fixed set of colours new agents draw from.
type Palette []color.NRGBA

// DefaultPalette is a set of warm off-whites with a shared low alpha.
var DefaultPalette = Palette{
	{R: 255, G: 235, B: 205, A: constants.PaletteAlpha}, // blanched almond
	{R: 245, G: 222, B: 179, A: constants.PaletteAlpha}, // wheat
	{R: 250, G: 240, B: 230, A: constants.PaletteAlpha}, // linen
	{R: 255, G: 228, B: 196, A: constants.PaletteAlpha}, // bisque
	{R: 238, G: 232, B: 170, A: constants.PaletteAlpha}, // pale goldenrod
}

// Pick returns a colour chosen uniformly at random. An empty palette yields
// the first default colour.
func (p Palette) Pick(rng *rand.Rand) color.NRGBA {
	if len(p) == 0 {
		return DefaultPalette[0]
	}
	return p[rng.IntN(len(p))]
}
