// Package clock converts between the three time domains the engine speaks:
// beats, seconds, and audio frames. Every function here is pure and stateless;
// the only state the time map needs (tempo, timestamp) is owned by Musician.
package clock

import "math"

// BeatsFromSeconds converts a duration in seconds to beats at the given tempo
// (beats per minute). When tempo <= 0 beat-time does not advance: the result
// is +Inf for positive seconds, -Inf for negative seconds, and 0 for 0,
// matching IEEE-754 division-by-zero semantics.
func BeatsFromSeconds(tempo, seconds float64) float64 {
	if tempo <= 0 {
		if seconds == 0 {
			return 0
		}
		if seconds > 0 {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return tempo * seconds / 60
}

// SecondsFromBeats converts a duration in beats to seconds at the given
// tempo. When tempo <= 0 the result follows the same sign convention as
// BeatsFromSeconds.
func SecondsFromBeats(tempo, beats float64) float64 {
	if tempo <= 0 {
		if beats == 0 {
			return 0
		}
		if beats > 0 {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	return 60 * beats / tempo
}

// FramesFromSeconds converts a duration in seconds to a frame count at the
// given sample rate, truncating toward zero (floor for non-negative input).
func FramesFromSeconds(sampleRate float64, seconds float64) int64 {
	return int64(math.Floor(seconds * sampleRate))
}

// SecondsFromFrames converts a frame count back to seconds.
func SecondsFromFrames(sampleRate float64, frames int64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(frames) / sampleRate
}
