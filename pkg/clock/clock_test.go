package clock

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestBeatsSecondsRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tempo := rapid.Float64Range(0.001, 10000).Draw(rt, "tempo")
		x := rapid.Float64Range(-1e6, 1e6).Draw(rt, "x")

		got := BeatsFromSeconds(tempo, SecondsFromBeats(tempo, x))
		if diff := math.Abs(got - x); diff > 1e-9*math.Max(1, math.Abs(x)) {
			rt.Fatalf("round trip: got %v want %v (diff %v)", got, x, diff)
		}
	})
}

func TestFramesAdditive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sr := rapid.Float64Range(1000, 192000).Draw(rt, "sr")
		s := rapid.Float64Range(0, 100).Draw(rt, "s")
		u := rapid.Float64Range(0, 100).Draw(rt, "u")

		sum := FramesFromSeconds(sr, s+u)
		parts := FramesFromSeconds(sr, s) + FramesFromSeconds(sr, u)
		if d := sum - parts; d < -1 || d > 1 {
			rt.Fatalf("frames(%v)+frames(%v) = %v, frames(sum) = %v", s, u, parts, sum)
		}
	})
}

func TestTempoZeroOrNegativeFreezesBeatTime(t *testing.T) {
	cases := []float64{0, -1, -120}
	for _, tempo := range cases {
		if got := BeatsFromSeconds(tempo, 1); !math.IsInf(got, 1) {
			t.Errorf("tempo=%v: BeatsFromSeconds(1) = %v, want +Inf", tempo, got)
		}
		if got := BeatsFromSeconds(tempo, -1); !math.IsInf(got, -1) {
			t.Errorf("tempo=%v: BeatsFromSeconds(-1) = %v, want -Inf", tempo, got)
		}
		if got := BeatsFromSeconds(tempo, 0); got != 0 {
			t.Errorf("tempo=%v: BeatsFromSeconds(0) = %v, want 0", tempo, got)
		}
	}
}

func TestFramesFromSecondsFloor(t *testing.T) {
	cases := []struct {
		sr, s float64
		want  int64
	}{
		{48000, 0.5, 24000},
		{4, 1.0, 4},
		{4, 1.24, 4},
		{44100, 0, 0},
	}
	for _, c := range cases {
		if got := FramesFromSeconds(c.sr, c.s); got != c.want {
			t.Errorf("FramesFromSeconds(%v, %v) = %v, want %v", c.sr, c.s, got, c.want)
		}
	}
}
