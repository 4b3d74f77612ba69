// Package delayline implements the stereo ring buffer that sits between
// audio capture and playback: a fixed-length window large enough to hide
// transcription latency, and the sole substrate the censor mutates.
package delayline

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Mode selects how [DelayLine.Patch] redacts a span.
type Mode int

const (
	// Mute zero-fills the span unconditionally.
	Mute Mode = iota
	// Reverse time-reverses the span per channel, attenuates by 0.5, then
	// applies a linear fade in/out at each end.
	Reverse
)

const maxFadeFrames = 480

// String returns the metric/log-friendly name of the mode ("mute" or "reverse").
func (m Mode) String() string {
	if m == Reverse {
		return "reverse"
	}
	return "mute"
}

// cell is one sample slot, stored as the bit pattern of a float32 so it can
// be read and written without a lock. The audio callback and the censor's
// patch path may touch the same cell concurrently; [sync/atomic] makes that
// race well-defined instead of undefined behavior, while each side still
// never blocks.
type cell = atomic.Uint32

// DelayLine is a ring buffer of L frames across C independent channels.
// Two monotonic cursors — a write cursor W advanced by capture and a read
// cursor R advanced by playback — are reduced modulo L for indexing. The
// zero value is not usable; construct with [New].
type DelayLine struct {
	channels [][]cell
	length   int

	w atomic.Uint64
	r atomic.Uint64
}

// New allocates a DelayLine with the given channel count and ring length in
// frames.
func New(channelCount, length int) *DelayLine {
	if channelCount <= 0 {
		channelCount = 1
	}
	if length <= 0 {
		length = 1
	}
	dl := &DelayLine{
		channels: make([][]cell, channelCount),
		length:   length,
	}
	for c := range dl.channels {
		dl.channels[c] = make([]cell, length)
	}
	return dl
}

// Channels returns the channel count.
func (d *DelayLine) Channels() int { return len(d.channels) }

// Length returns the ring length in frames.
func (d *DelayLine) Length() int { return d.length }

// W returns the current write cursor, an absolute monotonic frame count.
func (d *DelayLine) W() uint64 { return d.w.Load() }

// R returns the current read cursor, an absolute monotonic frame count.
func (d *DelayLine) R() uint64 { return d.r.Load() }

// WriteFrame writes one frame — one sample per channel — at W mod L in
// every channel, then advances W. Wait-free.
func (d *DelayLine) WriteFrame(frame []float32) {
	w := d.w.Load()
	idx := int(w % uint64(d.length))
	for c := 0; c < len(d.channels) && c < len(frame); c++ {
		d.channels[c][idx].Store(math.Float32bits(frame[c]))
	}
	d.w.Store(w + 1)
}

// ReadFrame reads one frame at R mod L, returns it, then advances R.
// Wait-free. The caller owns the returned slice.
func (d *DelayLine) ReadFrame() []float32 {
	r := d.r.Load()
	idx := int(r % uint64(d.length))
	frame := make([]float32, len(d.channels))
	for c := range d.channels {
		frame[c] = math.Float32frombits(d.channels[c][idx].Load())
	}
	d.r.Store(r + 1)
	return frame
}

// CurrentFill returns W − R, the number of frames buffered between capture
// and playback.
func (d *DelayLine) CurrentFill() uint64 {
	return d.w.Load() - d.r.Load()
}

// Patch applies Mute or Reverse to every channel across the closed-open
// absolute range [startAbs, endAbs). The range must lie entirely within
// [R, W) — frames already written but not yet read — or the patch is
// truncated to that intersection and the number of frames dropped from the
// front (already output, §7 "Censor miss") is returned as leaked.
func (d *DelayLine) Patch(startAbs, endAbs uint64, mode Mode) (leaked uint64, err error) {
	if endAbs <= startAbs {
		return 0, fmt.Errorf("delayline: empty or inverted patch range [%d, %d)", startAbs, endAbs)
	}

	r := d.r.Load()
	w := d.w.Load()

	if startAbs < r {
		leaked = min64(r-startAbs, endAbs-startAbs)
		startAbs = r
	}
	if endAbs > w {
		endAbs = w
	}
	if endAbs <= startAbs {
		return leaked, nil
	}

	span := endAbs - startAbs
	switch mode {
	case Mute:
		d.mute(startAbs, span)
	case Reverse:
		d.reverse(startAbs, span)
	default:
		return leaked, fmt.Errorf("delayline: unknown patch mode %d", mode)
	}
	return leaked, nil
}

func (d *DelayLine) mute(startAbs, span uint64) {
	for c := range d.channels {
		for i := uint64(0); i < span; i++ {
			idx := int((startAbs + i) % uint64(d.length))
			d.channels[c][idx].Store(0)
		}
	}
}

func (d *DelayLine) reverse(startAbs, span uint64) {
	fade := int(span) / 4
	if fade > maxFadeFrames {
		fade = maxFadeFrames
	}

	for c := range d.channels {
		ch := d.channels[c]
		orig := make([]float32, span)
		for i := uint64(0); i < span; i++ {
			idx := int((startAbs + i) % uint64(d.length))
			orig[i] = math.Float32frombits(ch[idx].Load())
		}

		for i := uint64(0); i < span; i++ {
			v := orig[span-1-i] * 0.5
			v *= fadeGain(int(i), int(span), fade)
			idx := int((startAbs + i) % uint64(d.length))
			ch[idx].Store(math.Float32bits(v))
		}
	}
}

// fadeGain returns the linear fade-in/fade-out gain for position i within a
// span of the given length, ramping over fade frames at each end.
func fadeGain(i, length, fade int) float32 {
	if fade <= 0 {
		return 1
	}
	if i < fade {
		return float32(i+1) / float32(fade+1)
	}
	if i >= length-fade {
		return float32(length-i) / float32(fade+1)
	}
	return 1
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
