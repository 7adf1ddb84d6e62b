// Package pan computes the per-voice stereo pan gains used by spec.md
// §4.5 step 6: "pan stereo by stereo_pan ∈ [-1,+1] with constant-power
// linear law". Kept from the teacher's pan package almost unchanged;
// the buffer-oriented Process/ProcessStereo/Width/Balance helpers and
// the LFO-driven AutoPan type aren't named by any control or operation
// in spec.md (voices compute one gain pair per sample from a smoothed
// control, never pan a whole buffer at once) and are dropped.
package pan

import "math"

// Law selects the panning curve used to derive left/right gains.
type Law int

const (
	// Linear pans with a straight-line gain ramp; does not maintain
	// constant power.
	Linear Law = iota
	// ConstantPower pans with sine/cosine gains so perceived loudness
	// stays constant across the stereo field. This is the law spec.md
	// names for voice output panning.
	ConstantPower
	// Balanced is ConstantPower with center-loudness compensation.
	Balanced
)

// MonoToStereo converts a pan position in [-1, +1] (hard left to hard
// right) into left/right gains under the given law.
func MonoToStereo(pan float32, law Law) (left, right float32) {
	switch law {
	case Linear:
		return linearPan(pan)
	case Balanced:
		return balancedPan(pan)
	default:
		return constantPowerPan(pan)
	}
}

func linearPan(pan float32) (left, right float32) {
	left = (1.0 - pan) * 0.5
	right = (1.0 + pan) * 0.5
	return
}

func constantPowerPan(pan float32) (left, right float32) {
	angle := (pan + 1.0) * math.Pi / 4.0
	left = float32(math.Cos(float64(angle)))
	right = float32(math.Sin(float64(angle)))
	return
}

func balancedPan(pan float32) (left, right float32) {
	left, right = constantPowerPan(pan)
	compensation := 1.0 - (1.0-pan*pan)*0.159
	left *= compensation
	right *= compensation
	return
}
