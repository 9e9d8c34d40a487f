package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a FallbackGroup failed or had
// an open breaker.
var ErrAllFailed = errors.New("resilience: all backends failed")

// entry pairs one backend with its dedicated breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup chains a primary and zero or more fallbacks of one backend
// type. Calls go to the first entry whose breaker admits them and that
// succeeds, in registration order.
type FallbackGroup[T any] struct {
	entries []entry[T]
	breaker BreakerConfig
}

// NewFallbackGroup creates a group with primary as the preferred entry. The
// breaker config is cloned per entry; its Name field is overridden with each
// entry's name.
func NewFallbackGroup[T any](primary T, primaryName string, breaker BreakerConfig) *FallbackGroup[T] {
	g := &FallbackGroup[T]{breaker: breaker}
	g.AddFallback(primaryName, primary)
	return g
}

// AddFallback appends a backend tried after everything registered before it.
func (g *FallbackGroup[T]) AddFallback(name string, value T) {
	cfg := g.breaker
	cfg.Name = name
	g.entries = append(g.entries, entry[T]{name: name, value: value, breaker: NewBreaker(cfg)})
}

// Each calls fn for every registered backend, for cleanup.
func (g *FallbackGroup[T]) Each(fn func(name string, value T)) {
	for i := range g.entries {
		fn(g.entries[i].name, g.entries[i].value)
	}
}

// Execute tries fn against each entry until one succeeds. Entries with open
// breakers are skipped.
func (g *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(g, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry until one succeeds and
// returns its result. A package-level function because methods cannot add
// type parameters.
func ExecuteWithResult[T, R any](g *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.entries {
		e := &g.entries[i]
		var result R
		err := e.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(e.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping backend, circuit open", "backend", e.name)
		} else {
			slog.Warn("backend failed, trying next", "backend", e.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
