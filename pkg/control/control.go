// Package control implements spec.md §3's Control and NoteControl
// types: "float-valued parameters each with (value, min, max) triples.
// Setting clamps." Values are stored with a lock-free atomic bit-cast
// so the control thread can write (e.g. in response to a host
// automation callback) while the audio thread reads without blocking —
// adapted from the teacher's pkg/framework/param.Parameter, which used
// the identical atomic-uint64-over-float64 trick for VST host
// parameter automation. Unlike the teacher, values here are stored in
// plain engineering units (Hz, dB, seconds, ...) rather than
// normalized [0,1] host values, since spec.md's controls are never
// exposed through a host automation surface — so Normalize/Denormalize/
// FormatValue/ParseValue and the StepCount/Flags/UnitID host-metadata
// fields are dropped; see DESIGN.md.
//
// Per-sample "smooth voice-params toward their targets" (spec.md
// §4.5 step 7) is not done here: a Control only stores the
// control-thread's most recent target. Each voice keeps its own
// utility.SmoothParameter per control it reads, seeded from Get, and
// advances that local smoothed copy once per sample.
package control

import (
	"math"
	"sync/atomic"
)

// Control is a float-valued parameter with a clamped range.
type Control struct {
	min, max float64
	bits     uint64
}

// New creates a Control at defaultValue, clamped to [min, max].
func New(min, max, defaultValue float64) *Control {
	c := &Control{min: min, max: max}
	c.Set(defaultValue)
	return c
}

// Get returns the current value.
func (c *Control) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&c.bits))
}

// Set clamps value to [min, max] and stores it.
func (c *Control) Set(value float64) {
	if value < c.min {
		value = c.min
	} else if value > c.max {
		value = c.max
	}
	atomic.StoreUint64(&c.bits, math.Float64bits(value))
}

// Range returns the control's (min, max) bounds.
func (c *Control) Range() (min, max float64) {
	return c.min, c.max
}

// NoteControl is a Control scoped to a single playing note (spec.md
// §3: "Per-note controls: gain, pitch_shift"). It is the same shape as
// Control; the distinct name exists so instrument code can tell
// instrument-wide and per-note parameters apart at the type level.
type NoteControl = Control

// NewNoteControl creates a NoteControl at defaultValue.
func NewNoteControl(min, max, defaultValue float64) *NoteControl {
	return New(min, max, defaultValue)
}
