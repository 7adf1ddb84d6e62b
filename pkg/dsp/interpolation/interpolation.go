// Package interpolation provides the fractional-sample lookup used for
// slice playback, which is read "by linear interpolation of the current
// slice at slice_offset" (§4.5 step 2). The mix-bus delay line in
// pkg/dsp/delay does its own inline linear interpolation and does not
// use this package. The teacher's much larger package
// (Cubic/Hermite/Sinc/Lanczos interpolators, AllPass fractional delay,
// buffer Resample/ResampleCubic, value-smoothing helpers) isn't named
// by any spec.md operation — everything in this engine interpolates
// linearly — so only Linear is kept; see DESIGN.md.
package interpolation

// Linear interpolates between y0 and y1 at fractional position frac
// in [0, 1].
func Linear(y0, y1, frac float32) float32 {
	return y0 + (y1-y0)*frac
}
