package transport

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegister_ReplacesAndCancelsPrevious(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var cancelCount int32
	firstGen := registry.Register("translate", func() {
		atomic.AddInt32(&cancelCount, 1)
	})
	secondGen := registry.Register("translate", func() {})

	if got := atomic.LoadInt32(&cancelCount); got != 1 {
		t.Fatalf("expected previous handle cancelled exactly once, got %d", got)
	}
	if firstGen == secondGen {
		t.Fatalf("expected a new generation on replacement")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one live entry, got %d", registry.Len())
	}
	if registry.Release("translate", firstGen) {
		t.Fatalf("stale generation must not release the entry")
	}
	if !registry.Release("translate", secondGen) {
		t.Fatalf("current generation must release the entry")
	}
}

func TestCancel_AbsentIsNoop(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Cancel("missing")

	if registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", registry.Len())
	}
}

func TestCancel_RemovesAndCancels(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var cancelled int32
	gen := registry.Register("upload", func() {
		atomic.AddInt32(&cancelled, 1)
	})
	registry.Cancel("upload")

	if got := atomic.LoadInt32(&cancelled); got != 1 {
		t.Fatalf("expected one cancellation, got %d", got)
	}
	if registry.Release("upload", gen) {
		t.Fatalf("cancelled entry must not release")
	}
}

func TestCancelAll(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var cancelled int32
	for _, id := range []string{"a", "b", "c"} {
		registry.Register(id, func() {
			atomic.AddInt32(&cancelled, 1)
		})
	}
	registry.CancelAll()

	if got := atomic.LoadInt32(&cancelled); got != 3 {
		t.Fatalf("expected three cancellations, got %d", got)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry after CancelAll, got %d", registry.Len())
	}
}

func TestRegistry_ConcurrentMutations(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				gen := registry.Register("shared", func() {})
				registry.Release("shared", gen)
				registry.Cancel("shared")
			}
		}()
	}
	wg.Wait()

	if registry.Len() != 0 {
		t.Fatalf("expected empty registry after concurrent churn, got %d", registry.Len())
	}
}
