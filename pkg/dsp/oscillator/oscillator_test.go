package oscillator

import (
	"math"
	"testing"
)

func TestSampleShapeEndpointsMatchPureWaveforms(t *testing.T) {
	phases := []float64{0.1, 0.25, 0.4, 0.6, 0.9}
	for _, p := range phases {
		if got, want := Sample(p, 0, 0.5), float32(sine(p)); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("shape=0 phase=%v: got %v want sine %v", p, got, want)
		}
		if got, want := Sample(p, 1, 0.5), float32(sawtooth(p)); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("shape=1 phase=%v: got %v want saw %v", p, got, want)
		}
	}
}

func TestNextWrapsPhase(t *testing.T) {
	o := New()
	o.SetPhase(0.9)
	for i := 0; i < 5; i++ {
		o.Next(0.05, 0.5, 0.5)
	}
	if p := o.Phase(); p < 0 || p >= 1.0 {
		t.Errorf("phase escaped [0,1): %v", p)
	}
}

func TestWarpPhaseIdentityAtHalf(t *testing.T) {
	for _, p := range []float64{0, 0.2, 0.5, 0.8, 0.999} {
		if got := warpPhase(p, 0.5); math.Abs(got-p) > 1e-6 {
			t.Errorf("warpPhase(%v, 0.5) = %v, want identity", p, got)
		}
	}
}
