// Package capture implements the CaptureBuffer: a fixed-length mono
// accumulator that forms chunks of K frames from the audio callback's
// downmixed input and hands them off to the ASR worker under a mutex.
package capture

import "sync"

// Chunk is a completed handoff: a copy of the most recent K mono samples
// together with the absolute delay-line write position at the instant of
// handoff.
type Chunk struct {
	Samples       []float32
	CaptureEndPos uint64
}

// Buffer accumulates mono samples into a ring of length K and produces a
// Chunk each time K new samples have arrived and the previous chunk has
// been claimed. It rings during an ASR stall rather than dropping samples —
// the worker only ever reads the most recent K frames.
type Buffer struct {
	k    int
	ring []float32
	pos  int // total samples ever written; ring index is pos % k

	sinceLast int // samples written since the last successful handoff

	mu         sync.Mutex
	cond        *sync.Cond
	hasNewChunk bool
	pending     Chunk
	closed      bool
}

// New creates a Buffer that forms chunks of k mono samples.
func New(k int) *Buffer {
	if k <= 0 {
		k = 1
	}
	b := &Buffer{
		k:    k,
		ring: make([]float32, k),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Write appends one downmixed sample. When a full chunk of K samples has
// accumulated since the last successful handoff, it is copied into the
// pending slot and the worker is woken — the "advance" case. If a chunk is
// already pending and unclaimed, new samples continue to overwrite the
// oldest ring contents ("ASR stall": deferred handoff, no drop).
func (b *Buffer) Write(sample float32, writePos uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring[b.pos%b.k] = sample
	b.pos++
	b.sinceLast++

	if b.sinceLast < b.k || b.hasNewChunk {
		return
	}

	// b.pos % b.k is the index about to be overwritten next, i.e. the
	// oldest sample still in the window; read the ring starting there so
	// the chunk comes out oldest-to-newest regardless of how many extra
	// writes happened since pos last crossed a multiple of k.
	chunk := make([]float32, b.k)
	start := b.pos % b.k
	for i := 0; i < b.k; i++ {
		chunk[i] = b.ring[(start+i)%b.k]
	}
	b.pending = Chunk{Samples: chunk, CaptureEndPos: writePos}
	b.hasNewChunk = true
	b.sinceLast = 0
	b.cond.Signal()
}

// Wait blocks until a chunk is ready or the buffer is closed, then returns
// it. ok is false only when the buffer has been closed with no chunk
// pending.
func (b *Buffer) Wait() (chunk Chunk, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for !b.hasNewChunk && !b.closed {
		b.cond.Wait()
	}
	if !b.hasNewChunk {
		return Chunk{}, false
	}
	chunk = b.pending
	b.hasNewChunk = false
	return chunk, true
}

// Close signals shutdown to any blocked Wait call.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
