package dsp

import "testing"

func TestClear(t *testing.T) {
	buffer := []float32{1, -2, 3.5, -4.25}
	Clear(buffer)
	for i, v := range buffer {
		if v != 0 {
			t.Errorf("Clear: buffer[%d] = %f, want 0", i, v)
		}
	}
}
