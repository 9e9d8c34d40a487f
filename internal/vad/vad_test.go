package vad

import (
	"bytes"
	"testing"

	"github.com/babelroom/babelroom/internal/config"
)

const frameBytes = 960 // 30ms of s16le mono at 16kHz

// loudFrame returns one frame of constant-amplitude samples well above the
// default threshold.
func loudFrame() []byte {
	return frameWithAmplitude(2000)
}

// quietFrame returns one frame of near-silence.
func quietFrame() []byte {
	return frameWithAmplitude(2)
}

func frameWithAmplitude(amp int16) []byte {
	frame := make([]byte, frameBytes)
	for i := 0; i < frameBytes; i += 2 {
		frame[i] = byte(amp)
		frame[i+1] = byte(amp >> 8)
	}
	return frame
}

// repeatFrame concatenates n copies of frame.
func repeatFrame(frame []byte, n int) []byte {
	return bytes.Repeat(frame, n)
}

func newTestProcessor(opts ...Option) *Processor {
	cfg := config.Default()
	return New(cfg.Audio, cfg.VAD, opts...)
}

func TestEnergyClassifierThresholdScaling(t *testing.T) {
	tests := []struct {
		name           string
		aggressiveness int
		amplitude      int16
		want           bool
	}{
		{name: "loud at default", aggressiveness: 2, amplitude: 2000, want: true},
		{name: "quiet at default", aggressiveness: 2, amplitude: 2, want: false},
		{name: "borderline passes when permissive", aggressiveness: 0, amplitude: 20, want: true},
		{name: "borderline fails when strict", aggressiveness: 3, amplitude: 20, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewEnergyClassifier(30, tt.aggressiveness)
			if got := c.IsSpeech(frameWithAmplitude(tt.amplitude)); got != tt.want {
				t.Errorf("IsSpeech = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasSpeech(t *testing.T) {
	p := newTestProcessor()

	tests := []struct {
		name  string
		chunk []byte
		want  bool
	}{
		{name: "all speech", chunk: repeatFrame(loudFrame(), 4), want: true},
		{name: "all silence", chunk: repeatFrame(quietFrame(), 4), want: false},
		{name: "short chunk is silence", chunk: loudFrame()[:frameBytes-2], want: false},
		{
			// 1 of 4 frames is speech: 25% < 30%.
			name:  "below ratio",
			chunk: append(repeatFrame(quietFrame(), 3), loudFrame()...),
			want:  false,
		},
		{
			// 2 of 5 frames is speech: 40% >= 30%.
			name:  "above ratio",
			chunk: append(repeatFrame(quietFrame(), 3), repeatFrame(loudFrame(), 2)...),
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.HasSpeech(tt.chunk); got != tt.want {
				t.Errorf("HasSpeech = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterSpeech(t *testing.T) {
	p := newTestProcessor()

	chunk := append(append(repeatFrame(loudFrame(), 2), quietFrame()...), loudFrame()...)
	got := p.FilterSpeech(chunk)
	if len(got) != 3*frameBytes {
		t.Errorf("filtered length = %d, want %d", len(got), 3*frameBytes)
	}

	if got := p.FilterSpeech(repeatFrame(quietFrame(), 3)); len(got) != 0 {
		t.Errorf("all-silence filter length = %d, want 0", len(got))
	}

	short := loudFrame()[:100]
	if got := p.FilterSpeech(short); !bytes.Equal(got, short) {
		t.Error("sub-frame chunk should pass through unchanged")
	}
}

func TestProcessChunkEntersSpeaking(t *testing.T) {
	p := newTestProcessor()
	speech := repeatFrame(loudFrame(), 2)

	for i := 0; i < 3; i++ {
		hasSpeech, sentenceEnd := p.ProcessChunk(speech)
		if !hasSpeech || sentenceEnd {
			t.Fatalf("chunk %d: got (%v, %v), want (true, false)", i, hasSpeech, sentenceEnd)
		}
	}
	if !p.Speaking() {
		t.Error("expected speaking state after min_speech_frames chunks")
	}
}

func TestProcessChunkSentenceEnd(t *testing.T) {
	p := newTestProcessor()
	speech := repeatFrame(loudFrame(), 2)
	silence := repeatFrame(quietFrame(), 2)

	for i := 0; i < 3; i++ {
		p.ProcessChunk(speech)
	}

	// Default: 350ms silence / 30ms frames = 11 silent chunks to close.
	for i := 0; i < 10; i++ {
		if _, sentenceEnd := p.ProcessChunk(silence); sentenceEnd {
			t.Fatalf("sentence end fired early at silent chunk %d", i)
		}
	}
	hasSpeech, sentenceEnd := p.ProcessChunk(silence)
	if hasSpeech || !sentenceEnd {
		t.Fatalf("11th silent chunk: got (%v, %v), want (false, true)", hasSpeech, sentenceEnd)
	}
	if p.Speaking() {
		t.Error("expected idle state after sentence end")
	}

	// Sentence end fires exactly once.
	if _, again := p.ProcessChunk(silence); again {
		t.Error("sentence end reported twice")
	}
}

func TestProcessChunkSpeechResetsSilenceCount(t *testing.T) {
	p := newTestProcessor()
	speech := repeatFrame(loudFrame(), 2)
	silence := repeatFrame(quietFrame(), 2)

	for i := 0; i < 3; i++ {
		p.ProcessChunk(speech)
	}
	for i := 0; i < 8; i++ {
		p.ProcessChunk(silence)
	}
	p.ProcessChunk(speech) // silence counter back to zero

	for i := 0; i < 10; i++ {
		if _, sentenceEnd := p.ProcessChunk(silence); sentenceEnd {
			t.Fatalf("sentence end fired at chunk %d; counter was not reset", i)
		}
	}
	if _, sentenceEnd := p.ProcessChunk(silence); !sentenceEnd {
		t.Error("expected sentence end after full silence run")
	}
}

func TestProcessChunkSilenceWhileIdle(t *testing.T) {
	p := newTestProcessor()
	for i := 0; i < 30; i++ {
		hasSpeech, sentenceEnd := p.ProcessChunk(repeatFrame(quietFrame(), 2))
		if hasSpeech || sentenceEnd {
			t.Fatalf("idle silence chunk %d: got (%v, %v), want (false, false)", i, hasSpeech, sentenceEnd)
		}
	}
}

func TestReset(t *testing.T) {
	p := newTestProcessor()
	speech := repeatFrame(loudFrame(), 2)
	for i := 0; i < 3; i++ {
		p.ProcessChunk(speech)
	}
	p.Reset()
	if p.Speaking() {
		t.Error("expected idle after reset")
	}

	// Counters cleared: needs the full min_speech_frames run again.
	p.ProcessChunk(speech)
	p.ProcessChunk(speech)
	if p.Speaking() {
		t.Error("speaking after only 2 chunks post-reset; counters not cleared")
	}
}
