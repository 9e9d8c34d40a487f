// Package vad segments inbound PCM into utterances: frame-level speech
// classification plus a hysteresis state machine that declares sentence
// boundaries after sustained silence.
package vad

import (
	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/pkg/audio"
)

// frameDurationMS is the classification granularity. 30 ms of s16le mono at
// 16 kHz is 960 bytes.
const frameDurationMS = 30

// speechRatio is the fraction of speech frames needed to call a whole chunk
// speech.
const speechRatio = 0.3

// FrameClassifier decides whether a single fixed-size PCM frame contains
// speech. Implementations must be safe for repeated calls from one goroutine.
type FrameClassifier interface {
	IsSpeech(frame []byte) bool
}

// EnergyClassifier classifies frames by RMS energy on the int16 scale. The
// threshold is scaled by aggressiveness 0–3: higher aggressiveness demands
// more energy before a frame counts as speech.
type EnergyClassifier struct {
	threshold float64
}

// NewEnergyClassifier builds a classifier from the base RMS threshold and an
// aggressiveness level. The base threshold applies at aggressiveness 2.
func NewEnergyClassifier(baseThreshold float64, aggressiveness int) *EnergyClassifier {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	scale := 0.5 + 0.25*float64(aggressiveness)
	return &EnergyClassifier{threshold: baseThreshold * scale}
}

// IsSpeech reports whether the frame's RMS clears the threshold.
func (c *EnergyClassifier) IsSpeech(frame []byte) bool {
	return audio.RMS(frame) >= c.threshold
}

var _ FrameClassifier = (*EnergyClassifier)(nil)

// Processor runs the segmentation state machine for one session. Not safe
// for concurrent use; each session owns its own Processor.
type Processor struct {
	classifier FrameClassifier
	frameSize  int

	speaking      bool
	speechFrames  int
	silenceFrames int

	minSpeechFrames  int
	maxSilenceFrames int
}

// Option customises a [Processor].
type Option func(*Processor)

// WithClassifier replaces the default energy classifier.
func WithClassifier(c FrameClassifier) Option {
	return func(p *Processor) { p.classifier = c }
}

// New builds a Processor from the audio and VAD configuration.
func New(audioCfg config.AudioConfig, vadCfg config.VADConfig, opts ...Option) *Processor {
	p := &Processor{
		classifier:       NewEnergyClassifier(vadCfg.SilenceThresholdRMS, vadCfg.Aggressiveness),
		frameSize:        audioCfg.SampleRate * frameDurationMS / 1000 * audioCfg.BytesPerSample,
		minSpeechFrames:  vadCfg.MinSpeechFrames,
		maxSilenceFrames: vadCfg.SilenceDurationMS / frameDurationMS,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasSpeech reports whether chunk is mostly speech: at least 30% of its full
// frames classify as speech. Chunks shorter than one frame are silence.
func (p *Processor) HasSpeech(chunk []byte) bool {
	if len(chunk) < p.frameSize {
		return false
	}
	speech, total := 0, 0
	for off := 0; off+p.frameSize <= len(chunk); off += p.frameSize {
		total++
		if p.classifier.IsSpeech(chunk[off : off+p.frameSize]) {
			speech++
		}
	}
	if total == 0 {
		return false
	}
	return float64(speech)/float64(total) >= speechRatio
}

// FilterSpeech returns the concatenation of chunk's speech-classified frames.
// Chunks shorter than one frame are returned unchanged.
func (p *Processor) FilterSpeech(chunk []byte) []byte {
	if len(chunk) < p.frameSize {
		return chunk
	}
	var out []byte
	for off := 0; off+p.frameSize <= len(chunk); off += p.frameSize {
		frame := chunk[off : off+p.frameSize]
		if p.classifier.IsSpeech(frame) {
			out = append(out, frame...)
		}
	}
	return out
}

// ProcessChunk advances the state machine by one chunk and returns whether
// the chunk held speech and whether a sentence boundary was just crossed.
//
// Speech resets the silence counter; once minSpeechFrames speech chunks have
// accumulated the processor enters the speaking state. In the speaking state,
// maxSilenceFrames consecutive silent chunks end the utterance: the processor
// returns to idle with cleared counters and reports sentenceEnd once.
func (p *Processor) ProcessChunk(chunk []byte) (hasSpeech, sentenceEnd bool) {
	if p.HasSpeech(chunk) {
		p.speechFrames++
		p.silenceFrames = 0
		if !p.speaking && p.speechFrames >= p.minSpeechFrames {
			p.speaking = true
		}
		return true, false
	}

	if p.speaking {
		p.silenceFrames++
		if p.silenceFrames >= p.maxSilenceFrames {
			p.Reset()
			return false, true
		}
	}
	return false, false
}

// Speaking reports whether the processor is currently inside an utterance.
func (p *Processor) Speaking() bool {
	return p.speaking
}

// Reset returns the processor to idle with zeroed counters. Called after a
// buffer-full detach so a mid-utterance cut does not leak silence state into
// the next segment.
func (p *Processor) Reset() {
	p.speaking = false
	p.speechFrames = 0
	p.silenceFrames = 0
}
