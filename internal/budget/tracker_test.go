package budget

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"resume-matcher/internal/shared/apperr"
)

func TestTrackerRemainingAndCharge(t *testing.T) {
	tr := NewTracker(100)
	if !tr.Remaining() {
		t.Fatalf("expected fresh tracker to have budget")
	}
	tr.Charge(99)
	if !tr.Remaining() {
		t.Fatalf("expected budget at 99/100")
	}
	tr.Charge(1)
	if tr.Remaining() {
		t.Fatalf("expected budget exhausted at 100/100")
	}
	tr.Charge(-5)
	if tr.Consumed() != 100 {
		t.Fatalf("negative charge changed total: %d", tr.Consumed())
	}
	if err := tr.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if tr.Consumed() != 0 || !tr.Remaining() {
		t.Fatalf("expected reset tracker")
	}
}

func TestNewTrackerDefaultLimit(t *testing.T) {
	if got := NewTracker(0).Limit(); got != DefaultLimit {
		t.Fatalf("Limit = %d, want %d", got, DefaultLimit)
	}
}

func TestTrackerReserveCommitRelease(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(10)

	r1, err := tr.Reserve(ctx, 6)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	u, _ := tr.Snapshot(ctx)
	if u.Reserved != 6 || u.Consumed != 0 {
		t.Fatalf("unexpected snapshot after reserve: %+v", u)
	}

	// Admission only checks the current totals, so this overshoots.
	r2, err := tr.Reserve(ctx, 6)
	if err != nil {
		t.Fatalf("second Reserve: %v", err)
	}

	if _, err := tr.Reserve(ctx, 1); !errors.Is(err, apperr.ErrBudgetExceeded) {
		t.Fatalf("expected budget exceeded, got %v", err)
	}

	if err := r1.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := r2.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	// Second settle is a no-op.
	_ = r2.Release(ctx)
	_ = r2.Commit(ctx)

	u, _ = tr.Snapshot(ctx)
	if u.Consumed != 6 || u.Reserved != 0 {
		t.Fatalf("unexpected snapshot after settle: %+v", u)
	}
}

func TestTrackerReleaseDoesNotCharge(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(5)
	r, err := tr.Reserve(ctx, 4)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	_ = r.Release(ctx)
	if tr.Consumed() != 0 {
		t.Fatalf("failed call must not consume budget, got %d", tr.Consumed())
	}
}

func TestTrackerResetInvalidatesOutstanding(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(10)
	r, _ := tr.Reserve(ctx, 4)
	_ = tr.Reset(ctx)
	_ = r.Commit(ctx)
	u, _ := tr.Snapshot(ctx)
	if u.Consumed != 0 || u.Reserved != 0 {
		t.Fatalf("stale reservation leaked into new epoch: %+v", u)
	}
}

func TestTrackerConcurrentReserveHonorsCeiling(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(10)

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := tr.Reserve(ctx, 1)
			if err != nil {
				return
			}
			atomic.AddInt32(&admitted, 1)
			_ = r.Commit(ctx)
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Fatalf("admitted %d reservations, want 10", admitted)
	}
	if tr.Consumed() != 10 {
		t.Fatalf("consumed %d, want 10", tr.Consumed())
	}
}

func TestCost(t *testing.T) {
	if got := Cost("  one two\tthree\n", "four five"); got != 5 {
		t.Fatalf("Cost = %d, want 5", got)
	}
	if got := Cost("", "   "); got != 0 {
		t.Fatalf("Cost of blanks = %d", got)
	}
}

func TestParseScope(t *testing.T) {
	cases := map[string]Scope{"": ScopeBatch, "Batch": ScopeBatch, " redis ": ScopeRedis, "postgres": ScopePostgres, "process": ScopeProcess}
	for in, want := range cases {
		got, err := ParseScope(in)
		if err != nil || got != want {
			t.Fatalf("ParseScope(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseScope("global"); err == nil {
		t.Fatalf("expected error for unknown scope")
	}
}

func TestFactories(t *testing.T) {
	ctx := context.Background()
	pb := PerBatch{Limit: 7}
	a, _ := pb.LedgerFor(ctx)
	b, _ := pb.LedgerFor(ctx)
	if a == b {
		t.Fatalf("expected a fresh ledger per batch")
	}

	shared := NewTracker(0)
	s := Shared{Ledger: shared}
	got, err := s.LedgerFor(ctx)
	if err != nil || got != Ledger(shared) {
		t.Fatalf("expected shared ledger, got %v, %v", got, err)
	}
	if _, err := (Shared{}).LedgerFor(ctx); err == nil {
		t.Fatalf("expected error for empty shared ledger")
	}
}
