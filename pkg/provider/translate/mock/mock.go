// Package mock provides an in-memory mock implementation of
// [translate.Translator] for use in unit tests.
//
// The mock records every call and allows the test to configure return values
// via exported fields. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/babelroom/babelroom/pkg/provider/translate"
)

// Compile-time interface assertion.
var _ translate.Translator = (*Translator)(nil)

// TranslateCall records the arguments of a single Translate call.
type TranslateCall struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Translator is a mock implementation of [translate.Translator].
type Translator struct {
	mu sync.Mutex

	// Results maps target language to the returned translation. Targets
	// absent from the map echo the input prefixed with the target code.
	Results map[string]string

	// Errs maps target language to a forced error.
	Errs map[string]error

	// Fn, when set, computes the Translate return values per call and takes
	// precedence over Results/Errs.
	Fn func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// CloseError is returned by Close.
	CloseError error

	// Calls records all Translate invocations.
	Calls []TranslateCall
}

// Translate records the call and returns the configured translation.
func (m *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, TranslateCall{Text: text, SourceLang: sourceLang, TargetLang: targetLang})
	fn := m.Fn
	results, errs := m.Results, m.Errs
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, sourceLang, targetLang)
	}
	if err, ok := errs[targetLang]; ok {
		return "", err
	}
	if out, ok := results[targetLang]; ok {
		return out, nil
	}
	return targetLang + ":" + text, nil
}

// Close records the call and returns CloseError.
func (m *Translator) Close() error {
	return m.CloseError
}

// CallCount returns the number of Translate invocations so far.
func (m *Translator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CallsForTarget returns the recorded calls for one target language.
func (m *Translator) CallsForTarget(target string) []TranslateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TranslateCall
	for _, c := range m.Calls {
		if c.TargetLang == target {
			out = append(out, c)
		}
	}
	return out
}
