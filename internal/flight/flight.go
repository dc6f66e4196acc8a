// Package flight provides the keyed single-flight lock manager that guards
// the generation pipeline stages. It wraps golang.org/x/sync/singleflight
// with a typed API so each stage gets a Group of its own result type.
//
// Contract: the first caller for a key runs the work function and registers
// it under that key; concurrent callers with the same key join the
// in-flight execution and receive the identical value or the identical
// error. The key is freed as soon as the work settles on any path, so a
// failed run can be retried by the very next caller. At most one execution
// of the work runs per key at any instant.
//
// Joining is not cancellation-aware by design: a joiner cannot abort the
// in-flight work, only await its outcome (the stages themselves do not
// support cooperative cancellation).
package flight

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group deduplicates concurrent work per key. The zero value is ready to use.
type Group[T any] struct {
	sf singleflight.Group

	mu     sync.Mutex
	active map[string]int
}

// Do executes fn under key with single-flight semantics. The boolean result
// reports whether the returned value was shared with other callers (i.e.,
// this caller joined an execution it did not start, or others joined this
// one).
func (g *Group[T]) Do(key string, fn func() (T, error)) (T, bool, error) {
	g.track(key, +1)
	v, err, shared := g.sf.Do(key, func() (any, error) {
		return fn()
	})
	g.track(key, -1)

	if err != nil {
		var zero T
		return zero, shared, err
	}
	out, _ := v.(T)
	return out, shared, nil
}

// InFlight reports whether any caller is currently inside Do for key.
// Advisory only: the answer may be stale by the time the caller acts on it.
// The HTTP layer uses it to report "cycle already running" without joining.
func (g *Group[T]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[key] > 0
}

func (g *Group[T]) track(key string, delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[string]int)
	}
	g.active[key] += delta
	if g.active[key] <= 0 {
		delete(g.active, key)
	}
}
