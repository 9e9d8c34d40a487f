package resilience

import (
	"context"
	"errors"

	"github.com/babelroom/babelroom/pkg/provider/stt"
	"github.com/babelroom/babelroom/pkg/provider/translate"
	"github.com/babelroom/babelroom/pkg/provider/tts"
)

// STTFallback implements [stt.Transcriber] with failover across backends,
// each behind its own breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates the wrapper with primary as the preferred backend.
func NewSTTFallback(primary stt.Transcriber, primaryName string, breaker BreakerConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, breaker)}
}

// AddFallback registers an additional transcriber.
func (f *STTFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs against the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, pcm []byte, language string) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (stt.Result, error) {
		return t.Transcribe(ctx, pcm, language)
	})
}

// Close closes every registered backend.
func (f *STTFallback) Close() error {
	var errs []error
	f.group.Each(func(_ string, t stt.Transcriber) {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// TranslateFallback implements [translate.Translator] with failover, e.g. an
// LLM endpoint backed by Amazon Translate.
type TranslateFallback struct {
	group *FallbackGroup[translate.Translator]
}

var _ translate.Translator = (*TranslateFallback)(nil)

// NewTranslateFallback creates the wrapper with primary as the preferred
// backend.
func NewTranslateFallback(primary translate.Translator, primaryName string, breaker BreakerConfig) *TranslateFallback {
	return &TranslateFallback{group: NewFallbackGroup(primary, primaryName, breaker)}
}

// AddFallback registers an additional translator.
func (f *TranslateFallback) AddFallback(name string, t translate.Translator) {
	f.group.AddFallback(name, t)
}

// Translate runs against the first healthy backend.
func (f *TranslateFallback) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return ExecuteWithResult(f.group, func(t translate.Translator) (string, error) {
		return t.Translate(ctx, text, sourceLang, targetLang)
	})
}

// Close closes every registered backend.
func (f *TranslateFallback) Close() error {
	var errs []error
	f.group.Each(func(_ string, t translate.Translator) {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// TTSFallback implements [tts.Synthesizer] with failover across backends.
type TTSFallback struct {
	group *FallbackGroup[tts.Synthesizer]
}

var _ tts.Synthesizer = (*TTSFallback)(nil)

// NewTTSFallback creates the wrapper with primary as the preferred backend.
func NewTTSFallback(primary tts.Synthesizer, primaryName string, breaker BreakerConfig) *TTSFallback {
	return &TTSFallback{group: NewFallbackGroup(primary, primaryName, breaker)}
}

// AddFallback registers an additional synthesizer.
func (f *TTSFallback) AddFallback(name string, s tts.Synthesizer) {
	f.group.AddFallback(name, s)
}

// Synthesize runs against the first healthy backend.
func (f *TTSFallback) Synthesize(ctx context.Context, text, language string) (tts.Result, error) {
	return ExecuteWithResult(f.group, func(s tts.Synthesizer) (tts.Result, error) {
		return s.Synthesize(ctx, text, language)
	})
}

// Close closes every registered backend.
func (f *TTSFallback) Close() error {
	var errs []error
	f.group.Each(func(_ string, s tts.Synthesizer) {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
