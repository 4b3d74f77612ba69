package energy

import (
	"testing"

	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
)

func silentFrame(n int) []byte { return make([]byte, n*bytesPerSample) }

func loudFrame(n int) []byte {
	frame := make([]byte, n*bytesPerSample)
	for i := 0; i < n; i++ {
		v := int16(20000)
		frame[2*i] = byte(v)
		frame[2*i+1] = byte(v >> 8)
	}
	return frame
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	eng := New()
	sess, err := eng.NewSession(vad.Config{SampleRate: 16000, FrameSizeMs: 20})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return sess.(*Session)
}

func TestNewSessionRejectsInvalidConfig(t *testing.T) {
	eng := New()
	if _, err := eng.NewSession(vad.Config{SampleRate: 0, FrameSizeMs: 20}); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := eng.NewSession(vad.Config{SampleRate: 16000, FrameSizeMs: 0}); err == nil {
		t.Fatal("expected error for zero frame size")
	}
}

func TestProcessFrameRejectsWrongSize(t *testing.T) {
	sess := newTestSession(t)
	if _, err := sess.ProcessFrame(make([]byte, 3)); err == nil {
		t.Fatal("expected error for wrong frame size")
	}
}

func TestSustainedSilenceStaysSilent(t *testing.T) {
	sess := newTestSession(t)
	frame := silentFrame(sess.frameLen)
	for i := 0; i < 10; i++ {
		ev, err := sess.ProcessFrame(frame)
		if err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		if ev.Type != vad.VADSilence {
			t.Fatalf("frame %d: Type = %v, want VADSilence", i, ev.Type)
		}
	}
}

func TestSustainedSpeechTransitionsThroughStates(t *testing.T) {
	sess := newTestSession(t)
	loud := loudFrame(sess.frameLen)

	var types []vad.VADEventType
	for i := 0; i < defaultSpeechFrames+2; i++ {
		ev, err := sess.ProcessFrame(loud)
		if err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		types = append(types, ev.Type)
	}

	if types[defaultSpeechFrames-1] != vad.VADSpeechStart {
		t.Fatalf("expected VADSpeechStart at frame %d, got %v", defaultSpeechFrames-1, types[defaultSpeechFrames-1])
	}
	if types[len(types)-1] != vad.VADSpeechContinue {
		t.Fatalf("expected VADSpeechContinue after sustained speech, got %v", types[len(types)-1])
	}
}

func TestSpeechEndsAfterSustainedSilence(t *testing.T) {
	sess := newTestSession(t)
	loud := loudFrame(sess.frameLen)
	quiet := silentFrame(sess.frameLen)

	for i := 0; i < defaultSpeechFrames; i++ {
		if _, err := sess.ProcessFrame(loud); err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
	}

	var last vad.VADEvent
	for i := 0; i < defaultSilenceFrames; i++ {
		ev, err := sess.ProcessFrame(quiet)
		if err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
		last = ev
	}
	if last.Type != vad.VADSpeechEnd {
		t.Fatalf("Type = %v, want VADSpeechEnd", last.Type)
	}

	ev, err := sess.ProcessFrame(quiet)
	if err != nil {
		t.Fatalf("ProcessFrame() error = %v", err)
	}
	if ev.Type != vad.VADSilence {
		t.Fatalf("Type = %v, want VADSilence after speech end settles", ev.Type)
	}
}

func TestResetClearsHysteresisState(t *testing.T) {
	sess := newTestSession(t)
	loud := loudFrame(sess.frameLen)
	for i := 0; i < defaultSpeechFrames; i++ {
		if _, err := sess.ProcessFrame(loud); err != nil {
			t.Fatalf("ProcessFrame() error = %v", err)
		}
	}
	if !sess.inSpeech {
		t.Fatal("expected session to be in speech before Reset")
	}

	sess.Reset()
	if sess.inSpeech || sess.speechCount != 0 || sess.silenceCount != 0 {
		t.Fatal("Reset did not clear hysteresis state")
	}
}

func TestProcessFrameAfterCloseErrors(t *testing.T) {
	sess := newTestSession(t)
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := sess.ProcessFrame(silentFrame(sess.frameLen)); err == nil {
		t.Fatal("expected error processing a frame on a closed session")
	}
}
