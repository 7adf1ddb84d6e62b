// Package gain provides the dB-to-linear conversion the mix-bus duck stage
// needs to turn a gain-reduction amount back into a multiplier.
package gain

import "math"

// MinDB is the floor below which a dB value is treated as silence.
const MinDB = -200.0

// DbToLinear32 converts a decibel value to linear amplitude. Values <= MinDB
// return 0. Used by dynamics.Duck to turn its computed gain reduction (in
// dB) into the per-sample multiplier it applies to the ducked signal.
func DbToLinear32(db float32) float32 {
	if db <= MinDB {
		return 0
	}
	return float32(math.Pow(10.0, float64(db)/20.0))
}
