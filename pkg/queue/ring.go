// Package queue implements the single-producer/single-consumer timestamped
// message ring that carries events from the control thread to the audio
// thread. It is lock-free: the only synchronization is a pair of atomic
// index counters, following the same power-of-two-mask, atomic-index
// discipline as the teacher's buffer.WriteAheadBuffer.
package queue

import (
	"sync/atomic"

	"barelymusician/pkg/message"
)

// DefaultCapacity is the ring's default slot count (a power of two, per
// spec.md §4.2 "implementation target >= 4096 entries").
const DefaultCapacity = 4096

// entry is one ring slot: a frame-stamped message.
type entry struct {
	frame int64
	msg   message.Message
}

// Ring is a bounded SPSC queue of frame-stamped messages. One goroutine may
// call Push (the control thread); a single, possibly different, goroutine
// may call PeekNext/Pop (the audio thread). Mixing producers or consumers is
// not supported and not checked.
type Ring struct {
	buf  []entry
	mask uint64

	// writeIdx is advanced only by the producer; readIdx only by the
	// consumer. Each is published with Store and observed with Load so the
	// other side never reads a torn value.
	writeIdx uint64
	readIdx  uint64
}

// NewRing allocates a ring with capacity rounded up to the next power of
// two, never smaller than DefaultCapacity. Construction is the only place
// this package allocates.
func NewRing(capacity int) *Ring {
	if capacity < DefaultCapacity {
		capacity = DefaultCapacity
	}
	size := nextPowerOf2(uint64(capacity))
	return &Ring{
		buf:  make([]entry, size),
		mask: size - 1,
	}
}

// Push enqueues msg stamped with frame. It returns false without blocking if
// the ring is full; the caller (control side) treats this as a fatal drop
// for that message per spec.md §7.2.
func (r *Ring) Push(frame int64, msg message.Message) bool {
	w := atomic.LoadUint64(&r.writeIdx)
	read := atomic.LoadUint64(&r.readIdx)
	if w-read >= uint64(len(r.buf)) {
		return false
	}
	r.buf[w&r.mask] = entry{frame: frame, msg: msg}
	atomic.StoreUint64(&r.writeIdx, w+1)
	return true
}

// PeekNext returns the next queued message and true iff it exists and its
// frame is strictly less than endFrame. It does not advance the consumer
// index; call Pop after applying the message.
func (r *Ring) PeekNext(endFrame int64) (message.Message, int64, bool) {
	read := atomic.LoadUint64(&r.readIdx)
	w := atomic.LoadUint64(&r.writeIdx)
	if read == w {
		return message.Message{}, 0, false
	}
	e := r.buf[read&r.mask]
	if e.frame >= endFrame {
		return message.Message{}, 0, false
	}
	return e.msg, e.frame, true
}

// Pop advances the consumer index past the entry last returned by PeekNext.
func (r *Ring) Pop() {
	read := atomic.LoadUint64(&r.readIdx)
	atomic.StoreUint64(&r.readIdx, read+1)
}

// Len reports the number of queued-but-unconsumed entries. Safe to call
// from either side; the value may be stale by the time it's used.
func (r *Ring) Len() int {
	w := atomic.LoadUint64(&r.writeIdx)
	read := atomic.LoadUint64(&r.readIdx)
	return int(w - read)
}

// Cap reports the ring's slot count.
func (r *Ring) Cap() int {
	return len(r.buf)
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
