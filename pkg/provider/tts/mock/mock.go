// Package mock provides an in-memory mock implementation of
// [tts.Synthesizer] for use in unit tests.
//
// The mock records every call and allows the test to configure return values
// via exported fields. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/babelroom/babelroom/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// SynthesizeCall records the arguments of a single Synthesize call.
type SynthesizeCall struct {
	Text     string
	Language string
}

// Synthesizer is a mock implementation of [tts.Synthesizer].
type Synthesizer struct {
	mu sync.Mutex

	// Result is returned by Synthesize when Fn is nil. When its Audio field
	// is nil, a small synthetic payload derived from the text is returned.
	Result tts.Result

	// Errs maps language to a forced error.
	Errs map[string]error

	// Fn, when set, computes the Synthesize return values per call.
	Fn func(ctx context.Context, text, language string) (tts.Result, error)

	// CloseError is returned by Close.
	CloseError error

	// Calls records all Synthesize invocations.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns the configured result.
func (m *Synthesizer) Synthesize(ctx context.Context, text, language string) (tts.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, SynthesizeCall{Text: text, Language: language})
	fn := m.Fn
	res := m.Result
	errs := m.Errs
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, language)
	}
	if err, ok := errs[language]; ok {
		return tts.Result{}, err
	}
	if res.Audio == nil {
		res = tts.Result{Audio: []byte("mp3:" + language + ":" + text), DurationMS: 100 * len(text)}
	}
	return res, nil
}

// Close records the call and returns CloseError.
func (m *Synthesizer) Close() error {
	return m.CloseError
}

// CallCount returns the number of Synthesize invocations so far.
func (m *Synthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
