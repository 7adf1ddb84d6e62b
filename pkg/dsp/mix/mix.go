// Package mix provides the dry/wet blend the mix-bus compressor uses to
// blend its processed signal back with the unprocessed input.
package mix

// DryWet performs a dry/wet mix between two signals. amount: 0.0 = 100%
// dry, 1.0 = 100% wet. Used by dynamics.Compressor.ProcessStereoSample to
// apply spec.md §4.9 step 4's "compress, mix-blended with dry".
func DryWet(dry, wet, amount float32) float32 {
	return dry*(1.0-amount) + wet*amount
}
