// Package energy implements a pure-Go voice activity detector using RMS
// energy thresholds with hysteresis, avoiding state flicker at the
// speech/silence boundary.
package energy

import (
	"fmt"
	"math"

	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
)

const (
	defaultSpeechFrames  = 3
	defaultSilenceFrames = 15
	bytesPerSample       = 2
	int16FullScale       = 32768.0
)

// Engine is a [vad.Engine] backed by [Session].
type Engine struct{}

// New returns an Engine. Every session it creates carries its own
// hysteresis state, so multiple concurrent streams never interfere.
func New() *Engine { return &Engine{} }

// NewSession implements [vad.Engine].
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("energy: sample rate must be positive")
	}
	if cfg.FrameSizeMs <= 0 {
		return nil, fmt.Errorf("energy: frame size must be positive")
	}
	speechThreshold := cfg.SpeechThreshold
	if speechThreshold <= 0 {
		speechThreshold = 0.02
	}
	silenceThreshold := cfg.SilenceThreshold
	if silenceThreshold <= 0 || silenceThreshold > speechThreshold {
		silenceThreshold = speechThreshold * 0.6
	}
	return &Session{
		frameLen:         cfg.SampleRate * cfg.FrameSizeMs / 1000,
		speechThreshold:  speechThreshold,
		silenceThreshold: silenceThreshold,
		speechFrames:     defaultSpeechFrames,
		silenceFrames:    defaultSilenceFrames,
	}, nil
}

// Session is a stateful RMS-hysteresis VAD session for a single stream.
// Not safe for concurrent use by multiple goroutines.
type Session struct {
	frameLen int

	speechThreshold  float64
	silenceThreshold float64
	speechFrames     int
	silenceFrames    int

	inSpeech     bool
	speechCount  int
	silenceCount int
	closed       bool
}

// ProcessFrame implements [vad.SessionHandle]. frame must be raw
// little-endian int16 PCM matching the session's configured frame size.
func (s *Session) ProcessFrame(frame []byte) (vad.VADEvent, error) {
	if s.closed {
		return vad.VADEvent{}, fmt.Errorf("energy: session closed")
	}
	wantBytes := s.frameLen * bytesPerSample
	if len(frame) != wantBytes {
		return vad.VADEvent{}, fmt.Errorf("energy: frame size %d bytes, want %d", len(frame), wantBytes)
	}

	level := rms(frame)
	wasSpeech := s.inSpeech
	if s.inSpeech {
		if level < s.silenceThreshold {
			s.silenceCount++
			s.speechCount = 0
			if s.silenceCount >= s.silenceFrames {
				s.inSpeech = false
				s.silenceCount = 0
			}
		} else {
			s.silenceCount = 0
		}
	} else {
		if level >= s.speechThreshold {
			s.speechCount++
			s.silenceCount = 0
			if s.speechCount >= s.speechFrames {
				s.inSpeech = true
				s.speechCount = 0
			}
		} else {
			s.speechCount = 0
		}
	}

	ev := vad.VADEvent{Probability: math.Min(1, level/s.speechThreshold)}
	switch {
	case s.inSpeech && !wasSpeech:
		ev.Type = vad.VADSpeechStart
	case s.inSpeech:
		ev.Type = vad.VADSpeechContinue
	case wasSpeech && !s.inSpeech:
		ev.Type = vad.VADSpeechEnd
	default:
		ev.Type = vad.VADSilence
	}
	return ev, nil
}

// Reset implements [vad.SessionHandle].
func (s *Session) Reset() {
	s.inSpeech = false
	s.speechCount = 0
	s.silenceCount = 0
}

// Close implements [vad.SessionHandle]. Safe to call more than once.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// rms computes the normalized root-mean-square energy of a little-endian
// int16 PCM frame, scaled to [0, ~1].
func rms(frame []byte) float64 {
	n := len(frame) / bytesPerSample
	if n == 0 {
		return 0
	}
	var sumSq float64
	for i := 0; i < n; i++ {
		sample := int16(uint16(frame[2*i]) | uint16(frame[2*i+1])<<8)
		v := float64(sample) / int16FullScale
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(n))
}
