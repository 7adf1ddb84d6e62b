// Package slicedata implements spec.md §4.3's slice pool and deferred
// release: "A fixed array of slice records with a free-list... The
// control thread polls the retirement queue and returns slots to the
// free-list only once retire_frame < safe_frame. This yields wait-free
// reads on the audio side and no use-after-free across sample-data
// swaps." There is no teacher equivalent of a slot pool with deferred
// retirement; this is grounded on the atomic-index, power-of-2-free
// bookkeeping style of the teacher's pkg/dsp/buffer.WriteAheadBuffer
// (one atomically-published cursor the audio thread owns, polled by
// the control thread) rather than on any single teacher file.
package slicedata

import (
	"math/rand"
	"sync"
	"sync/atomic"
)

// Slice is a view over mono PCM samples with a root pitch, matching
// spec.md §3: "(samples: &[f32], sample_rate: i32, root_pitch: f32)".
type Slice struct {
	Samples    []float32
	SampleRate int32
	RootPitch  float32
}

const noNext = -1

type slot struct {
	slice Slice
	next  int32
}

type retirement struct {
	firstIndex  int32
	retireFrame int64
}

// Pool is a fixed-capacity array of slice slots backing every
// instrument's SampleData chains. acquire/release happen on the
// control thread; SliceAt is read by the audio thread only.
type Pool struct {
	slots    []slot
	freeHead int32

	mu          sync.Mutex // guards freeHead and retireQueue; control-thread only
	retireQueue []retirement

	safeFrame int64 // atomic, published by the audio thread each process call

	rng *rand.Rand
}

// NewPool creates a slice pool with room for capacity slots.
func NewPool(capacity int) *Pool {
	p := &Pool{
		slots: make([]slot, capacity),
		rng:   rand.New(rand.NewSource(1)),
	}
	for i := range p.slots {
		if i == capacity-1 {
			p.slots[i].next = noNext
		} else {
			p.slots[i].next = int32(i + 1)
		}
	}
	p.freeHead = 0
	if capacity == 0 {
		p.freeHead = noNext
	}
	return p
}

// Acquire takes a contiguous chain of len(slices) free slots, fills
// each with the corresponding Slice, and returns the index of the
// first slot. ok is false if the pool doesn't have enough free slots.
func (p *Pool) Acquire(slices []Slice) (firstIndex int32, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	indices := make([]int32, 0, len(slices))
	cursor := p.freeHead
	for range slices {
		if cursor == noNext {
			// Not enough free slots; put back what we peeked.
			return 0, false
		}
		indices = append(indices, cursor)
		cursor = p.slots[cursor].next
	}

	p.freeHead = cursor
	for i, idx := range indices {
		p.slots[idx].slice = slices[i]
		if i == len(indices)-1 {
			p.slots[idx].next = noNext
		} else {
			p.slots[idx].next = indices[i+1]
		}
	}
	return indices[0], true
}

// ReleaseAt queues the chain starting at firstIndex for release once
// the audio thread has advanced past frame.
func (p *Pool) ReleaseAt(firstIndex int32, frame int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retireQueue = append(p.retireQueue, retirement{firstIndex: firstIndex, retireFrame: frame})
}

// PublishSafeFrame is called by the audio thread once per process
// call to advance the frame below which retired chains are safe to
// reclaim.
func (p *Pool) PublishSafeFrame(frame int64) {
	atomic.StoreInt64(&p.safeFrame, frame)
}

// Poll is called periodically by the control thread to return expired
// retirements to the free list.
func (p *Pool) Poll() {
	safe := atomic.LoadInt64(&p.safeFrame)

	p.mu.Lock()
	defer p.mu.Unlock()

	remaining := p.retireQueue[:0]
	for _, r := range p.retireQueue {
		if r.retireFrame < safe {
			p.freeChain(r.firstIndex)
		} else {
			remaining = append(remaining, r)
		}
	}
	p.retireQueue = remaining
}

func (p *Pool) freeChain(firstIndex int32) {
	if firstIndex == noNext {
		return
	}
	last := firstIndex
	for p.slots[last].next != noNext {
		last = p.slots[last].next
	}
	p.slots[last].next = p.freeHead
	p.freeHead = firstIndex
}

// SliceAt returns a pointer to the slice stored at index. Only valid
// for indices returned by Acquire and not yet released; the audio
// thread may call this freely since released chains are only reused
// after safeFrame has passed the release point.
func (p *Pool) SliceAt(index int32) *Slice {
	return &p.slots[index].slice
}

// Next returns the next index in a chain, or noNext at the end.
func (p *Pool) Next(index int32) int32 {
	return p.slots[index].next
}

// SeedRNG reseeds the round-robin tie-break generator. NewPool seeds it
// with 1; nothing in this module calls SeedRNG.
func (p *Pool) SeedRNG(seed int64) {
	p.rng = rand.New(rand.NewSource(seed))
}

// Select walks the chain starting at head and returns the index of
// the slice whose RootPitch is nearest playedPitch, preferring the
// upper neighbor on a tie (spec.md §4.3). If more than one slice
// shares that nearest root pitch (a round-robin sample set), one is
// chosen uniformly via the pool's deterministic RNG.
func (p *Pool) Select(head int32, playedPitch float32) int32 {
	if head == noNext {
		return noNext
	}

	bestDist := float32(-1)
	for idx := head; idx != noNext; idx = p.slots[idx].next {
		dist := playedPitch - p.slots[idx].slice.RootPitch
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
		}
	}

	// Among slices at the winning distance, the upper neighbor (larger
	// root pitch) wins the tie.
	bestRootPitch := float32(0)
	haveBest := false
	var sameRoot []int32
	for idx := head; idx != noNext; idx = p.slots[idx].next {
		dist := playedPitch - p.slots[idx].slice.RootPitch
		if dist < 0 {
			dist = -dist
		}
		if dist != bestDist {
			continue
		}
		rootPitch := p.slots[idx].slice.RootPitch
		switch {
		case !haveBest || rootPitch > bestRootPitch:
			bestRootPitch = rootPitch
			haveBest = true
			sameRoot = sameRoot[:0]
			sameRoot = append(sameRoot, idx)
		case rootPitch == bestRootPitch:
			sameRoot = append(sameRoot, idx)
		}
	}

	if len(sameRoot) <= 1 {
		return sameRoot[0]
	}
	return sameRoot[p.rng.Intn(len(sameRoot))]
}
