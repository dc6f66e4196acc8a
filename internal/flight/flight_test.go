package flight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitForCallers polls until n callers are inside Do for key, so tests can
// release the leader only once every joiner has attached.
func waitForCallers[T any](t *testing.T, g *Group[T], key string, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		cur := g.active[key]
		g.mu.Unlock()
		if cur >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d callers on %q", n, key)
}

func TestDo_SingleCaller(t *testing.T) {
	var g Group[string]
	v, shared, err := g.Do("k", func() (string, error) { return "out", nil })
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != "out" {
		t.Fatalf("value = %q, want %q", v, "out")
	}
	if shared {
		t.Fatalf("single caller should not report shared")
	}
}

func TestDo_ConcurrentCallersShareOneExecution(t *testing.T) {
	var g Group[int]
	var execs int32

	release := make(chan struct{})
	started := make(chan struct{})

	const callers = 8
	results := make([]int, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, errs[0] = g.Do("room-1", func() (int, error) {
			atomic.AddInt32(&execs, 1)
			close(started)
			<-release
			return 42, nil
		})
	}()
	<-started // the key is now held

	wg.Add(callers - 1)
	for i := 1; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = g.Do("room-1", func() (int, error) {
				atomic.AddInt32(&execs, 1)
				return -1, nil // must never run
			})
		}(i)
	}

	if !g.InFlight("room-1") {
		t.Fatalf("InFlight = false while work holds the key")
	}
	waitForCallers(t, &g, "room-1", callers)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&execs); n != 1 {
		t.Fatalf("executions = %d, want exactly 1", n)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("caller %d error: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Fatalf("caller %d result = %d, want 42 (all callers share one result)", i, results[i])
		}
	}
	if g.InFlight("room-1") {
		t.Fatalf("key still registered after settle")
	}
}

func TestDo_AllJoinersObserveSameFailure(t *testing.T) {
	var g Group[string]
	boom := errors.New("reasoning service down")

	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	const callers = 4
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, errs[0] = g.Do("k", func() (string, error) {
			close(started)
			<-release
			return "", boom
		})
	}()
	<-started

	wg.Add(callers - 1)
	for i := 1; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = g.Do("k", func() (string, error) { return "never", nil })
		}(i)
	}
	waitForCallers(t, &g, "k", callers)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Fatalf("caller %d error = %v, want shared failure %v", i, err, boom)
		}
	}
}

func TestDo_KeyFreedAfterFailureAllowsRetry(t *testing.T) {
	var g Group[string]

	_, _, err := g.Do("k", func() (string, error) { return "", errors.New("transient") })
	if err == nil {
		t.Fatalf("expected failure from first run")
	}
	v, _, err := g.Do("k", func() (string, error) { return "recovered", nil })
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if v != "recovered" {
		t.Fatalf("retry value = %q, want %q", v, "recovered")
	}
}

func TestDo_DistinctKeysRunIndependently(t *testing.T) {
	var g Group[string]

	aStarted := make(chan struct{})
	aRelease := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, _ = g.Do("room-a", func() (string, error) {
			close(aStarted)
			<-aRelease
			return "a", nil
		})
	}()
	<-aStarted

	// A different key must not block behind room-a.
	v, _, err := g.Do("room-b", func() (string, error) { return "b", nil })
	if err != nil || v != "b" {
		t.Fatalf("independent key blocked or failed: v=%q err=%v", v, err)
	}

	close(aRelease)
	wg.Wait()
}

func TestInFlight_FalseForUnknownKey(t *testing.T) {
	var g Group[int]
	if g.InFlight("nope") {
		t.Fatalf("unknown key reported in flight")
	}
}
