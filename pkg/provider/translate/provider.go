// Package translate defines the text translation provider interface.
package translate

import "context"

// Translator converts text between languages.
//
// Language codes are ISO 639-1. Implementations must be safe for concurrent
// calls; the fan-out pool issues one call per target language in parallel.
type Translator interface {
	// Translate blocks until the text is translated, ctx is done, or the
	// backend fails.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// Close releases network resources.
	Close() error
}
