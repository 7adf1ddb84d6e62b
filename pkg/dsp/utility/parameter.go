package utility

import "math"

// ClampParameter ensures a parameter value stays within the specified
// range. Used for the clamp-on-set behavior of spec.md §3's Control and
// NoteControl types.
func ClampParameter(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SmoothParameter exponentially smooths a value toward a target with a
// fixed coefficient, grounding spec.md §4.5 step 7: "smooth all
// voice-params toward their targets with a fixed coefficient (≈
// 1 - exp(-1/N) for N≈one audio block) to eliminate zipper noise." The
// teacher's additional parameter-scaling helpers (ScaleParameter(Exp),
// UnscaleParameter(Exp), QuantizeParameter, Bipolar/Unipolar
// conversion, SkewParameter) mapped normalized VST host values to
// parameter ranges — nothing in spec.md normalizes controls that way,
// so they're dropped; see DESIGN.md.
type SmoothParameter struct {
	current   float64
	target    float64
	smoothing float64
}

// NewSmoothParameter creates a parameter smoother with a time constant
// of smoothingTime seconds at sampleRate.
func NewSmoothParameter(smoothingTime, sampleRate float64) *SmoothParameter {
	smoothing := 1.0 - math.Exp(-1.0/(smoothingTime*sampleRate))
	return &SmoothParameter{smoothing: smoothing}
}

// SetTarget sets the value the parameter smooths toward.
func (s *SmoothParameter) SetTarget(target float64) {
	s.target = target
}

// SetImmediate sets both current and target, skipping smoothing.
func (s *SmoothParameter) SetImmediate(value float64) {
	s.current = value
	s.target = value
}

// Process advances and returns the next smoothed value.
func (s *SmoothParameter) Process() float64 {
	s.current += (s.target - s.current) * s.smoothing
	return s.current
}

// IsSmoothing reports whether the current value has not yet converged
// to the target.
func (s *SmoothParameter) IsSmoothing() bool {
	const epsilon = 1e-6
	return math.Abs(s.current-s.target) > epsilon
}

// GetCurrent returns the current value without advancing it.
func (s *SmoothParameter) GetCurrent() float64 {
	return s.current
}
