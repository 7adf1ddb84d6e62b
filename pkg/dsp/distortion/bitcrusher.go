// Package distortion provides the voice and mix-bus waveshaping stages: a
// phase/increment bit crusher and a stateless drive/mix distortion.
package distortion

import "math"

// BitCrusher implements spec.md §4.4's bit-crusher state machine: state
// `(last_output, phase)`, parameters `(range, increment)`. Each step, phase
// advances by increment; crossing 1.0 emits a newly quantized sample, else
// the last output holds. This replaces the teacher's bit-depth/sample-rate-
// ratio BitCrusher (which modeled bit depth in bits and decimation as a
// ratio, with anti-aliasing pre/post filters and dithering) with the
// simpler phase-counter model the spec calls for; the teacher's DCBlocker
// is dropped along with it since the phase-counter model has no DC-offset
// side effect to correct (see DESIGN.md).
type BitCrusher struct {
	rang      float32 // quantization range; <= 0 bypasses depth reduction
	increment float32

	phase      float32
	lastOutput float32
}

// NewBitCrusher creates a bit crusher that passes every sample through
// (range=0, increment=1).
func NewBitCrusher() *BitCrusher {
	return &BitCrusher{increment: 1.0}
}

// SetRange sets the quantization range. A value <= 0 bypasses bit-depth
// reduction, per spec.md.
func (c *BitCrusher) SetRange(rang float32) {
	if rang < 0 {
		rang = 0
	}
	c.rang = rang
}

// SetIncrement sets the phase advance per sample. Zero holds the last
// output forever, per spec.md.
func (c *BitCrusher) SetIncrement(increment float32) {
	if increment < 0 {
		increment = 0
	}
	c.increment = increment
}

// Reset clears phase/held-output state.
func (c *BitCrusher) Reset() {
	c.phase = 0
	c.lastOutput = 0
}

// Next advances the bit crusher by one sample.
func (c *BitCrusher) Next(x float32) float32 {
	c.phase += c.increment
	if c.phase < 1.0 {
		return c.lastOutput
	}
	c.phase -= float32(math.Floor(float64(c.phase)))

	if c.rang <= 0 {
		c.lastOutput = x
		return c.lastOutput
	}
	c.lastOutput = float32(math.Round(float64(x*c.rang))) / c.rang
	return c.lastOutput
}
