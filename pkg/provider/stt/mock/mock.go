// Package mock provides an in-memory mock implementation of
// [stt.Transcriber] for use in unit tests.
//
// The mock records every call and allows the test to configure return values
// via exported fields. It is safe for concurrent use.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/babelroom/babelroom/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Transcriber = (*Transcriber)(nil)

// TranscribeCall records the arguments of a single Transcribe call.
type TranscribeCall struct {
	// PCM is the audio passed to Transcribe.
	PCM []byte
	// Language is the source language code.
	Language string
}

// Transcriber is a mock implementation of [stt.Transcriber].
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe when Fn is nil.
	Result stt.Result

	// Err is the error returned by Transcribe when Fn is nil.
	Err error

	// Fn, when set, computes the Transcribe return values per call.
	Fn func(ctx context.Context, pcm []byte, language string) (stt.Result, error)

	// CloseError is returned by Close.
	CloseError error

	// Calls records all Transcribe invocations.
	Calls []TranscribeCall

	// closed counts Close invocations.
	closed atomic.Int64
}

// Transcribe records the call and returns the configured result.
func (m *Transcriber) Transcribe(ctx context.Context, pcm []byte, language string) (stt.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, TranscribeCall{PCM: append([]byte(nil), pcm...), Language: language})
	fn := m.Fn
	res, err := m.Result, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, pcm, language)
	}
	return res, err
}

// Close records the call and returns CloseError.
func (m *Transcriber) Close() error {
	m.closed.Add(1)
	return m.CloseError
}

// CallCount returns the number of Transcribe invocations so far.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Closed reports whether Close has been called at least once.
func (m *Transcriber) Closed() bool {
	return m.closed.Load() > 0
}

// CloseCount returns the number of Close invocations so far.
func (m *Transcriber) CloseCount() int {
	return int(m.closed.Load())
}
