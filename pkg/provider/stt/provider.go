// Package stt defines the speech-to-text provider interface and the
// multi-model router that picks a backend per source language.
package stt

import "context"

// Result is one transcription outcome.
type Result struct {
	// Text is the transcribed text, trimmed. Empty means the backend heard
	// nothing usable.
	Text string

	// Confidence is the backend's confidence in [0, 1]. Backends without a
	// native confidence report a fixed estimate.
	Confidence float64

	// NoSpeechProb is the backend's probability that the segment contains no
	// speech, in [0, 1]. Zero when the backend does not report one.
	NoSpeechProb float64
}

// Transcriber converts one PCM segment to text.
//
// The input is signed 16-bit little-endian mono PCM at 16 kHz; language is
// an ISO 639-1 code. Implementations must be safe for concurrent calls, or
// serialise internally when the underlying engine is not.
type Transcriber interface {
	// Transcribe blocks until the segment is transcribed, ctx is done, or
	// the backend fails.
	Transcribe(ctx context.Context, pcm []byte, language string) (Result, error)

	// Close releases model handles and network resources.
	Close() error
}
