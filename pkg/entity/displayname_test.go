package entity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingResolver counts lookups and serves a fixed name or error.
type countingResolver struct {
	calls atomic.Int64
	name  string
	err   error
	delay time.Duration
}

func (r *countingResolver) EntityName(ctx context.Context, id string) (string, error) {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return "", r.err
	}
	return r.name, nil
}

func TestDisplayName_WriteTargetSkipsLookup(t *testing.T) {
	p, err := Parse("syn1/a/b/result.txt")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	resolver := &countingResolver{name: "unused"}
	if got := p.DisplayName(context.Background(), resolver); got != "result.txt" {
		t.Errorf("DisplayName() = %q, want %q", got, "result.txt")
	}
	if n := resolver.calls.Load(); n != 0 {
		t.Errorf("resolver called %d times for write-target path, want 0", n)
	}
}

func TestDisplayName_MemoizedOnce(t *testing.T) {
	p, err := Parse("syn123")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	resolver := &countingResolver{name: "dataset.csv", delay: 10 * time.Millisecond}

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.DisplayName(context.Background(), resolver)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != "dataset.csv" {
			t.Errorf("goroutine %d: DisplayName() = %q, want %q", i, got, "dataset.csv")
		}
	}
	if n := resolver.calls.Load(); n != 1 {
		t.Errorf("resolver called %d times under concurrent first access, want exactly 1", n)
	}

	// A later call hits the memoized value.
	if got := p.DisplayName(context.Background(), resolver); got != "dataset.csv" {
		t.Errorf("DisplayName() = %q after memoization", got)
	}
	if n := resolver.calls.Load(); n != 1 {
		t.Errorf("resolver called %d times after memoization, want 1", n)
	}
}

func TestDisplayName_DegradesToIDOnFailure(t *testing.T) {
	p, err := Parse("syn777")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}

	failing := &countingResolver{err: errors.New("backend unreachable")}
	if got := p.DisplayName(context.Background(), failing); got != "syn777" {
		t.Errorf("DisplayName() = %q on failure, want entity id", got)
	}

	// The failure is not memoized: a later successful lookup caches
	// the real name.
	failing.err = nil
	failing.name = "recovered.csv"
	if got := p.DisplayName(context.Background(), failing); got != "recovered.csv" {
		t.Errorf("DisplayName() = %q after recovery, want %q", got, "recovered.csv")
	}
	if n := failing.calls.Load(); n != 2 {
		t.Errorf("resolver called %d times, want 2", n)
	}
}
