package zone

import "math/rand/v2"

// Moving is an environment whose zone slides by Speed every tick, wrapping
// at the seam.
type Moving struct {
	Zone  Zone
	Speed float64
}

// Advance shifts the zone.
func (m *Moving) Advance(*rand.Rand) {
	m.Zone = m.Zone.Shift(m.Speed)
}

// Current returns the zone in force.
func (m *Moving) Current() Zone { return m.Zone }

// Jumping is an environment whose zone is redrawn every tick: Low is uniform
// in [0, Span) and High is Low+Width.
type Jumping struct {
	Zone  Zone
	Span  float64
	Width float64
}

// Advance draws a new zone from rng.
func (j *Jumping) Advance(rng *rand.Rand) {
	low := rng.Float64() * j.Span
	j.Zone = Zone{Low: low, High: low + j.Width}
}

// Current returns the zone in force.
func (j *Jumping) Current() Zone { return j.Zone }
