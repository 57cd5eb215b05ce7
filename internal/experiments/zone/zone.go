// Package zone implements the safe-zone interval used by the positional
// experiments. Positions live in feature space [-1, 1], which wraps around
// at the ends, so a zone whose Low exceeds its High spans the seam.
package zone

import "math"

// Zone is a closed interval in feature space, possibly wrapped.
type Zone struct {
	Low  float64
	High float64
}

// Wrapped reports whether the zone crosses the +1/-1 seam.
func (z Zone) Wrapped() bool { return z.Low > z.High }

// Contains reports whether pos lies inside the zone. NaN is never inside.
func (z Zone) Contains(pos float64) bool {
	if math.IsNaN(pos) {
		return false
	}
	high := z.High
	if z.Wrapped() {
		if pos < high {
			pos += 2
		}
		high += 2
	}
	return pos >= z.Low && pos <= high
}

// Mid returns the centre of the zone, taking the seam into account.
func (z Zone) Mid() float64 {
	if z.Wrapped() {
		return WrapAdd(z.Low, (z.High+2-z.Low)/2)
	}
	return z.Low + (z.High-z.Low)/2
}

// Shift moves both bounds by delta, wrapping at the seam.
func (z Zone) Shift(delta float64) Zone {
	return Zone{Low: WrapAdd(z.Low, delta), High: WrapAdd(z.High, delta)}
}

// WrapAdd adds b to a and wraps the result back into [-1, 1).
func WrapAdd(a, b float64) float64 {
	s := a + b
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return s
	}
	s = math.Mod(s+1, 2)
	if s < 0 {
		s += 2
	}
	return s - 1
}

// Count returns how many positions lie inside the zone.
func (z Zone) Count(positions []float64) int {
	n := 0
	for _, p := range positions {
		if z.Contains(p) {
			n++
		}
	}
	return n
}
