package dynamics

import "testing"

func TestDuckNoGainReductionBelowThreshold(t *testing.T) {
	d := NewDuck(48000)
	d.SetThreshold(-10)
	for i := 0; i < 100; i++ {
		if g := d.Next(0.001); g != 1.0 {
			t.Fatalf("Next with quiet sidechain should not duck, got gain %v", g)
		}
	}
}

func TestDuckReducesGainAboveThreshold(t *testing.T) {
	d := NewDuck(48000)
	d.SetThreshold(-20)
	d.SetRatio(4)
	d.SetMix(1.0)
	d.SetAttack(0.001)

	var g float32
	for i := 0; i < 2000; i++ {
		g = d.Next(1.0) // full-scale sidechain, well above -20dB
	}
	if g >= 1.0 {
		t.Errorf("sustained loud sidechain should reduce gain, got %v", g)
	}
}
