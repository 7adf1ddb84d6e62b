package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barelymusician/pkg/message"
)

func drain(r *Ring, end int64) []message.Message {
	var out []message.Message
	for {
		m, _, ok := r.PeekNext(end)
		if !ok {
			break
		}
		out = append(out, m)
		r.Pop()
	}
	return out
}

func TestRingFIFOOrder(t *testing.T) {
	r := NewRing(8)
	for i := 0; i < 5; i++ {
		require.True(t, r.Push(int64(i), message.TempoChange(float32(i))))
	}
	got := drain(r, 100)
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, float32(i), m.Tempo)
	}
}

func TestRingPeekRespectsEndFrame(t *testing.T) {
	r := NewRing(8)
	require.True(t, r.Push(10, message.TempoChange(1)))
	_, _, ok := r.PeekNext(10)
	assert.False(t, ok, "frame 10 should not be visible to endFrame=10")
	_, _, ok = r.PeekNext(11)
	assert.True(t, ok)
}

func TestRingOverflowReturnsFalse(t *testing.T) {
	r := NewRing(4) // rounds up to DefaultCapacity
	cap := r.Cap()
	for i := 0; i < cap; i++ {
		require.True(t, r.Push(int64(i), message.TempoChange(0)))
	}
	assert.False(t, r.Push(int64(cap), message.TempoChange(0)), "push into a full ring must fail, not block")
}

func TestRingSPSCStress(t *testing.T) {
	r := NewRing(DefaultCapacity)
	const n = 200000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		sent := 0
		for sent < n {
			if r.Push(int64(sent), message.NoteOn(0, float32(sent), message.NoteOnParams{})) {
				sent++
			}
		}
	}()

	received := make([]int64, 0, n)
	go func() {
		defer wg.Done()
		for len(received) < n {
			m, f, ok := r.PeekNext(int64(n) + 1)
			if !ok {
				continue
			}
			received = append(received, f)
			require.Equal(t, float32(f), m.Pitch)
			r.Pop()
		}
	}()

	wg.Wait()
	require.Len(t, received, n)
	for i, f := range received {
		require.Equal(t, int64(i), f, "FIFO order violated at index %d", i)
	}
}
