// Package gate implements the Playback Gate: the state machine that decides
// whether the DelayLine's read cursor is allowed to advance on a given
// output frame.
package gate

// State is one of the three playback gate states.
type State int

const (
	// Warming is the initial state: output is silence until enough fill
	// has accumulated to hide ASR latency.
	Warming State = iota
	// Playing advances the read cursor and outputs real samples.
	Playing
	// Paused re-enters silence after an underrun, until fill recovers.
	Paused
)

func (s State) String() string {
	switch s {
	case Warming:
		return "warming"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Gate tracks playback state as a pure function of delay-line fill. It has
// no concurrency primitives of its own: callers (the audio callback) own
// synchronization, and a Gate instance must not be shared across engines —
// see the scoping note on the now-per-instance pause tracking this type
// replaces.
type Gate struct {
	sampleRate     float64
	initialDelay   float64
	pauseMargin    float64
	resumeMargin   float64
	headroom       float64
	state          State
	bufferUnderrun bool
}

// Config holds the thresholds, in seconds, that parameterize a Gate.
type Config struct {
	// SampleRate is F, frames per second.
	SampleRate float64
	// InitialDelay is the fill (in seconds) required before the gate first
	// transitions Warming -> Playing.
	InitialDelay float64
	// Headroom is subtracted from InitialDelay to determine the
	// BufferUnderrun threshold during Playing.
	Headroom float64
}

// New builds a Gate with pauseMargin = initialDelay - 2s and
// resumeMargin = initialDelay.
func New(cfg Config) *Gate {
	if cfg.Headroom <= 0 {
		cfg.Headroom = 1
	}
	return &Gate{
		sampleRate:   cfg.SampleRate,
		initialDelay: cfg.InitialDelay,
		pauseMargin:  cfg.InitialDelay - 2,
		resumeMargin: cfg.InitialDelay,
		headroom:     cfg.Headroom,
		state:        Warming,
	}
}

// Observe updates the gate's state given the current delay-line fill in
// frames, and returns whether the output path may advance the read cursor
// for this frame.
func (g *Gate) Observe(fillFrames uint64) (advance bool) {
	fillSec := float64(fillFrames) / g.sampleRate

	switch g.state {
	case Warming:
		if fillSec >= g.initialDelay {
			g.state = Playing
		}
	case Playing:
		if fillSec < g.pauseMargin {
			g.state = Paused
		}
	case Paused:
		if fillSec >= g.resumeMargin {
			g.state = Playing
		}
	}

	if g.state == Playing {
		g.bufferUnderrun = fillSec < g.initialDelay-g.headroom
	} else {
		g.bufferUnderrun = false
	}

	return g.state == Playing
}

// State returns the current gate state.
func (g *Gate) State() State { return g.state }

// BufferUnderrun reports whether fill has dropped below the underrun
// threshold during Playing; the censor suspends patching while this is set.
func (g *Gate) BufferUnderrun() bool { return g.bufferUnderrun }
