// Package oscillator produces slowly varying values from elapsed time.
//
// The wave is a triangle: Cycle returns high at every period boundary, falls
// linearly to low at the middle of the period, and climbs back to high.
package oscillator

import (
	"math"
	"time"
)

// Cycle maps elapsed time onto a triangle wave between low and high with the
// given period. A non-positive period returns low.
func Cycle(elapsed, period time.Duration, low, high float64) float64 {
	if period <= 0 {
		return low
	}
	ratio := elapsed.Seconds() / period.Seconds()
	fraction := ratio - math.Floor(ratio)
	folded := math.Abs(fraction - 0.5)
	return mapRange(folded, 0, 0.5, low, high)
}

// New returns a function that evaluates Cycle with a fixed period and range.
func New(period time.Duration, low, high float64) func(time.Duration) float64 {
	return func(elapsed time.Duration) float64 {
		return Cycle(elapsed, period, low, high)
	}
}

// Stagger shifts elapsed by fraction of a period so that several consumers of
// the same wave stay out of phase with each other.
func Stagger(elapsed, period time.Duration, fraction float64) time.Duration {
	return elapsed + time.Duration(float64(period)*fraction)
}

func mapRange(v, inMin, inMax, outMin, outMax float64) float64 {
	return outMin + (v-inMin)/(inMax-inMin)*(outMax-outMin)
}
