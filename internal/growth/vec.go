package growth

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Vec2 is a plain 2D coordinate or direction.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Len()
}

// Normalize returns v scaled to unit length. A zero-length (or non-finite)
// vector has no direction: Normalize returns the zero vector and false.
func (v Vec2) Normalize() (Vec2, bool) {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Vec2{}, false
	}
	return Vec2{X: v.X / l, Y: v.Y / l}, true
}

// ApproxEqual reports whether v and o are within tol of each other.
func (v Vec2) ApproxEqual(o Vec2, tol float64) bool {
	return v.Dist(o) <= tol
}

// Point is a simulated position plus a fixed display variation.
//
// Variation is a unit vector sampled once when the point is created, or zero
// for points that must not wiggle. It only perturbs rendering; Pos is the
// true simulated position.
type Point struct {
	Pos       Vec2 `json:"pos"`
	Variation Vec2 `json:"variation"`
}

// Displaced returns Pos moved along Variation by amount.
func (p Point) Displaced(amount float64) Vec2 {
	return p.Pos.Add(p.Variation.Scale(amount))
}

// randomUnit samples a uniformly distributed unit direction.
func randomUnit(rng *rand.Rand) Vec2 {
	theta := rng.Float64() * 2 * math.Pi
	return Vec2{X: math.Cos(theta), Y: math.Sin(theta)}
}

// NewRand returns a ChaCha8 generator fully determined by seed.
func NewRand(seed uint64) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return rand.New(rand.NewChaCha8(key))
}

// RandomSeed draws a fresh seed from the runtime's entropy-seeded source.
func RandomSeed() uint64 {
	return rand.Uint64()
}
