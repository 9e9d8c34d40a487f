// Package tts defines the speech synthesis provider interface.
package tts

import "context"

// Output format constants. Every synthesizer produces MP3 at 24 kHz; clients
// rely on these values when decoding audio responses.
const (
	Format     = "mp3"
	SampleRate = 24000
)

// Result is one synthesis outcome.
type Result struct {
	// Audio is the encoded MP3 payload.
	Audio []byte

	// DurationMS is the estimated play time in milliseconds.
	DurationMS int
}

// Synthesizer converts text to speech in the given language's default voice.
//
// Implementations must be safe for concurrent calls; the fan-out pool issues
// one call per target language in parallel.
type Synthesizer interface {
	// Synthesize blocks until audio is ready, ctx is done, or the backend
	// fails.
	Synthesize(ctx context.Context, text, language string) (Result, error)

	// Close releases network resources.
	Close() error
}
