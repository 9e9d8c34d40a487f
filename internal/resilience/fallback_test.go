package resilience

import (
	"errors"
	"testing"
)

type backend struct {
	name  string
	err   error
	calls int
}

func (b *backend) call() error {
	b.calls++
	return b.err
}

func TestFallbackGroupPrefersPrimary(t *testing.T) {
	primary := &backend{name: "primary"}
	secondary := &backend{name: "secondary"}
	g := NewFallbackGroup(primary, "primary", BreakerConfig{})
	g.AddFallback("secondary", secondary)

	if err := g.Execute(func(b *backend) error { return b.call() }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if primary.calls != 1 || secondary.calls != 0 {
		t.Errorf("calls = primary:%d secondary:%d, want 1/0", primary.calls, secondary.calls)
	}
}

func TestFallbackGroupFailsOver(t *testing.T) {
	primary := &backend{name: "primary", err: errBackend}
	secondary := &backend{name: "secondary"}
	g := NewFallbackGroup(primary, "primary", BreakerConfig{})
	g.AddFallback("secondary", secondary)

	got, err := ExecuteWithResult(g, func(b *backend) (string, error) {
		return b.name, b.call()
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "secondary" {
		t.Errorf("served by %q, want secondary", got)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
}

func TestFallbackGroupAllFail(t *testing.T) {
	g := NewFallbackGroup(&backend{err: errBackend}, "primary", BreakerConfig{})
	g.AddFallback("secondary", &backend{err: errBackend})

	err := g.Execute(func(b *backend) error { return b.call() })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroupSkipsOpenBreaker(t *testing.T) {
	primary := &backend{name: "primary", err: errBackend}
	secondary := &backend{name: "secondary"}
	g := NewFallbackGroup(primary, "primary", BreakerConfig{MaxFailures: 1})
	g.AddFallback("secondary", secondary)

	// First call trips the primary's breaker.
	if err := g.Execute(func(b *backend) error { return b.call() }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Second call must not touch the primary at all.
	if err := g.Execute(func(b *backend) error { return b.call() }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1 (breaker should skip it)", primary.calls)
	}
	if secondary.calls != 2 {
		t.Errorf("secondary calls = %d, want 2", secondary.calls)
	}
}

func TestFallbackGroupEach(t *testing.T) {
	g := NewFallbackGroup(&backend{name: "a"}, "a", BreakerConfig{})
	g.AddFallback("b", &backend{name: "b"})

	var seen []string
	g.Each(func(name string, _ *backend) { seen = append(seen, name) })
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("Each visited %v, want [a b]", seen)
	}
}
