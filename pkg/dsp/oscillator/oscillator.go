// Package oscillator provides the voice's shape-morphing waveform generator:
// a single phase accumulator whose output interpolates continuously across
// sine, triangle, square, and sawtooth as `shape` sweeps 0..1, with a
// `skew` phase-warp for asymmetric (PWM-like) waveshapes. This replaces the
// teacher's fixed-waveform-selection Oscillator (Sine/Saw/Square/Pulse/
// Triangle as separate methods) with the single continuously-morphing
// generator spec.md §4.5 step 1 calls for; the phase bookkeeping (phase
// accumulator, wrap-at-1.0) is kept from the teacher's design.
package oscillator

import "math"

// Oscillator is one phase accumulator. A voice owns exactly one.
type Oscillator struct {
	phase float64
}

// New creates an oscillator at phase 0.
func New() *Oscillator {
	return &Oscillator{}
}

// Phase returns the current phase in [0, 1).
func (o *Oscillator) Phase() float64 { return o.phase }

// SetPhase sets the phase, wrapping into [0, 1).
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Reset returns the oscillator to phase 0, as on voice start.
func (o *Oscillator) Reset() {
	o.phase = 0
}

// Next advances the phase by increment (cycles per sample, i.e. freq/sampleRate)
// and returns the shape-morphed, skew-warped sample at the pre-advance phase.
// shape and skew are expected in [0, 1] (callers clamp via pkg/control).
func (o *Oscillator) Next(increment, shape, skew float64) float32 {
	sample := Sample(o.phase, shape, skew)
	o.phase += increment
	if o.phase >= 1.0 || o.phase < 0.0 {
		o.phase -= math.Floor(o.phase)
	}
	return sample
}

// Sample evaluates the morphed waveform at an arbitrary phase without
// advancing any state; Next uses it, and callers needing FM-style phase
// modulation (spec.md's Fm/Mf OscMode) can call it directly with a
// caller-advanced phase.
func Sample(phase, shape, skew float64) float32 {
	warped := warpPhase(phase, skew)
	return float32(morph(warped, shape))
}

// warpPhase bends the unit cycle around the breakpoint skew (default 0.5 =
// no warp), stretching [0, skew) over the first half of the output cycle
// and [skew, 1) over the second half. This produces the PWM-like asymmetry
// spec.md §4.5 describes as "skew scales phase before wave lookup".
func warpPhase(phase, skew float64) float64 {
	if skew <= 0.0 {
		skew = 1e-6
	} else if skew >= 1.0 {
		skew = 1 - 1e-6
	}
	if phase < skew {
		return 0.5 * phase / skew
	}
	return 0.5 + 0.5*(phase-skew)/(1-skew)
}

// morph crossfades sine -> triangle -> square -> sawtooth across three
// equal segments of shape ∈ [0, 1].
func morph(phase, shape float64) float64 {
	const third = 1.0 / 3.0
	switch {
	case shape <= third:
		return lerp(sine(phase), triangle(phase), shape/third)
	case shape <= 2*third:
		return lerp(triangle(phase), square(phase), (shape-third)/third)
	default:
		return lerp(square(phase), sawtooth(phase), (shape-2*third)/third)
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func sine(phase float64) float64 {
	return math.Sin(2.0 * math.Pi * phase)
}

func sawtooth(phase float64) float64 {
	return 2.0*phase - 1.0
}

func square(phase float64) float64 {
	if phase < 0.5 {
		return 1.0
	}
	return -1.0
}

func triangle(phase float64) float64 {
	if phase < 0.5 {
		return 4.0*phase - 1.0
	}
	return 3.0 - 4.0*phase
}
