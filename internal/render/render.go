// Package render maps simulation space onto pixels and rasterizes frames
// without a window, for capture and the HTTP snapshot endpoints.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nvandessel/mycelium/internal/constants"
	"github.com/nvandessel/mycelium/internal/growth"
	"golang.org/x/image/vector"
)

// Background is the canvas colour.
var Background = color.NRGBA{A: 255}

// Transform maps simulation coordinates (y up) onto a pixel grid (y down).
type Transform struct {
	Bounds growth.Bounds
	Width  int
	Height int
}

// NewTransform returns a transform for a width x height canvas showing bounds.
func NewTransform(bounds growth.Bounds, width, height int) Transform {
	return Transform{Bounds: bounds, Width: max(width, 0), Height: max(height, 0)}
}

// CentredBounds returns simulation bounds of the canvas size centred on the
// origin, one simulation unit per pixel.
func CentredBounds(width, height int) growth.Bounds {
	hw, hh := float64(width)/2, float64(height)/2
	return growth.Bounds{MinX: -hw, MinY: -hh, MaxX: hw, MaxY: hh}
}

// ToPixel converts a simulation point to pixel coordinates. Degenerate
// bounds collapse onto the canvas centre.
func (t Transform) ToPixel(v growth.Vec2) (x, y float64) {
	w, h := t.Bounds.Width(), t.Bounds.Height()
	if w == 0 {
		x = float64(t.Width) / 2
	} else {
		x = (v.X - t.Bounds.MinX) / w * float64(t.Width)
	}
	if h == 0 {
		y = float64(t.Height) / 2
	} else {
		y = (t.Bounds.MaxY - v.Y) / h * float64(t.Height)
	}
	return x, y
}

// Segments calls fn for every consecutive pair of points in every strand.
func Segments(frame growth.Frame, t Transform, fn func(x0, y0, x1, y1 float64, c color.NRGBA)) {
	for _, s := range frame.Strands {
		for i := 1; i < len(s.Points); i++ {
			x0, y0 := t.ToPixel(s.Points[i-1])
			x1, y1 := t.ToPixel(s.Points[i])
			fn(x0, y0, x1, y1, s.Colour)
		}
	}
}

// Rasterize draws frame onto a new RGBA image the size of the transform.
// Each segment is rasterized inside its own clipped bounding box, so the
// cost follows the stroked area rather than the canvas size.
func Rasterize(frame growth.Frame, t Transform) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	if t.Width == 0 || t.Height == 0 {
		return img
	}

	r := vector.NewRasterizer(0, 0)
	half := constants.StrandWidth / 2
	canvas := img.Bounds()
	Segments(frame, t, func(x0, y0, x1, y1 float64, c color.NRGBA) {
		dx, dy := x1-x0, y1-y0
		l := math.Hypot(dx, dy)
		if l == 0 {
			return
		}
		// Perpendicular offset for a quad of width StrandWidth.
		nx, ny := -dy/l*half, dx/l*half
		quad := [4][2]float64{
			{x0 + nx, y0 + ny},
			{x1 + nx, y1 + ny},
			{x1 - nx, y1 - ny},
			{x0 - nx, y0 - ny},
		}

		box := quadBounds(quad).Intersect(canvas)
		if box.Empty() {
			return
		}
		ox, oy := float64(box.Min.X), float64(box.Min.Y)

		r.Reset(box.Dx(), box.Dy())
		r.MoveTo(float32(quad[0][0]-ox), float32(quad[0][1]-oy))
		for _, p := range quad[1:] {
			r.LineTo(float32(p[0]-ox), float32(p[1]-oy))
		}
		r.ClosePath()
		r.Draw(img, box, image.NewUniform(c), image.Point{})
	})
	return img
}

// quadBounds returns the smallest integer rectangle covering the quad.
func quadBounds(quad [4][2]float64) image.Rectangle {
	minX, minY := quad[0][0], quad[0][1]
	maxX, maxY := minX, minY
	for _, p := range quad[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	if math.IsNaN(minX) || math.IsNaN(minY) || math.IsNaN(maxX) || math.IsNaN(maxY) {
		return image.Rectangle{}
	}
	return image.Rect(
		clampInt(math.Floor(minX)), clampInt(math.Floor(minY)),
		clampInt(math.Ceil(maxX)), clampInt(math.Ceil(maxY)),
	)
}

// clampInt converts v to int, saturating far outside any canvas.
func clampInt(v float64) int {
	const limit = 1 << 30
	return int(math.Max(-limit, math.Min(limit, v)))
}
