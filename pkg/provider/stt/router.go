package stt

import (
	"context"
	"errors"
	"fmt"
)

// Compile-time assertion that Router satisfies Transcriber.
var _ Transcriber = (*Router)(nil)

// Router dispatches transcription to a per-language backend, with an
// optional fallback for languages without one. Backends may be shared across
// languages; Close and Warmup touch each distinct backend once.
type Router struct {
	byLang   map[string]Transcriber
	fallback Transcriber
}

// NewRouter builds a router over the given language table. fallback may be
// nil, in which case unmapped languages are an error.
func NewRouter(byLang map[string]Transcriber, fallback Transcriber) *Router {
	table := make(map[string]Transcriber, len(byLang))
	for lang, t := range byLang {
		if t != nil {
			table[lang] = t
		}
	}
	return &Router{byLang: table, fallback: fallback}
}

// Transcribe routes the segment to the backend for language.
func (r *Router) Transcribe(ctx context.Context, pcm []byte, language string) (Result, error) {
	backend := r.byLang[language]
	if backend == nil {
		backend = r.fallback
	}
	if backend == nil {
		return Result{}, fmt.Errorf("stt: no backend for language %q", language)
	}
	return backend.Transcribe(ctx, pcm, language)
}

// Warmup pushes a short silent segment through every distinct backend so
// model load and first-inference cost is paid before traffic arrives.
func (r *Router) Warmup(ctx context.Context) error {
	// 500 ms of silence at 16 kHz s16le.
	silence := make([]byte, 16000)

	for lang, backend := range r.distinct() {
		if _, err := backend.Transcribe(ctx, silence, lang); err != nil {
			return fmt.Errorf("stt: warmup %s: %w", lang, err)
		}
	}
	return nil
}

// Close closes every distinct backend once.
func (r *Router) Close() error {
	var errs []error
	for _, backend := range r.distinct() {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// distinct returns one representative language per unique backend. The
// fallback is keyed under "en" unless something already claims it.
func (r *Router) distinct() map[string]Transcriber {
	seen := make(map[Transcriber]bool, len(r.byLang)+1)
	out := make(map[string]Transcriber, len(r.byLang)+1)
	for lang, backend := range r.byLang {
		if !seen[backend] {
			seen[backend] = true
			out[lang] = backend
		}
	}
	if r.fallback != nil && !seen[r.fallback] {
		key := "en"
		if _, taken := out[key]; taken {
			key = "fallback"
		}
		out[key] = r.fallback
	}
	return out
}
