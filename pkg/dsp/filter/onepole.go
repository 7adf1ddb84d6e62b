package filter

import "math"

// OnePoleType selects a OnePole's response.
type OnePoleType int

const (
	OnePoleLowPass OnePoleType = iota
	OnePoleHighPass
)

// OnePole is a first-order low/high-pass, used on the shared delay's
// feedback path (spec.md §4.9 step 3: "apply low-pass then high-pass
// one-poles on the feedback path"). Grounded on
// original_source/barelymusician/dsp/one_pole_filter.{h,cpp}, the C++
// original's `OnePoleFilter` — the teacher has no one-pole filter type, so
// this one is translated into the teacher's Go style (exported
// constructor, `Next`/`Reset`, `Set*` setters) rather than adapted from an
// existing Go file.
type OnePole struct {
	typ         OnePoleType
	coefficient float32
	output      float32
}

// NewOnePole creates a one-pole filter with coefficient 1 (fully passed
// through for low-pass, silent for high-pass) until configured.
func NewOnePole(typ OnePoleType) *OnePole {
	return &OnePole{typ: typ, coefficient: 1.0}
}

// SetCoefficient sets the pole location directly, in [0, 1].
func (f *OnePole) SetCoefficient(coefficient float32) {
	if coefficient < 0 {
		coefficient = 0
	} else if coefficient > 1 {
		coefficient = 1
	}
	f.coefficient = coefficient
}

// SetCutoff derives the coefficient from a cutoff frequency in Hz at the
// given sample rate using the standard one-pole exponential relationship.
func (f *OnePole) SetCutoff(sampleRate, cutoffHz float64) {
	if cutoffHz <= 0 || sampleRate <= 0 {
		f.coefficient = 1.0
		return
	}
	f.coefficient = float32(math.Exp(-2.0 * math.Pi * cutoffHz / sampleRate))
}

// Reset clears the filter's delay state.
func (f *OnePole) Reset() {
	f.output = 0
}

// Next filters one sample.
func (f *OnePole) Next(input float32) float32 {
	f.output = f.coefficient*(f.output-input) + input
	if f.typ == OnePoleHighPass {
		return input - f.output
	}
	return f.output
}
