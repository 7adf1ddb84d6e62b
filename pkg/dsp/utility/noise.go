package utility

import "math/rand"

// Noise generates the "uniform noise" mixed into a voice's oscillator
// stage by osc_noise_mix (spec.md §4.5 step 1). It runs on the audio
// thread, so it carries its own *rand.Rand rather than using the
// package-level generator, and is seeded explicitly for the
// deterministic-RNG needs described in §4.2 (nearest-root-pitch
// round-robin ties use the same pattern). The teacher's noise package
// additionally generated pink/brown/blue/violet and Gaussian noise;
// spec.md names only "uniform noise", so those generators are dropped
// — see DESIGN.md.
type Noise struct {
	rand *rand.Rand
}

// NewNoise creates a white-noise generator seeded from seed.
func NewNoise(seed int64) *Noise {
	return &Noise{rand: rand.New(rand.NewSource(seed))}
}

// Next returns the next uniformly-distributed sample in [-1, 1].
func (n *Noise) Next() float32 {
	return float32(n.rand.Float64()*2.0 - 1.0)
}

// Reseed reinitializes the generator's sequence.
func (n *Noise) Reseed(seed int64) {
	n.rand = rand.New(rand.NewSource(seed))
}
