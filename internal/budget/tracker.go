package budget

import (
	"context"
	"fmt"
	"sync"

	"resume-matcher/internal/shared/apperr"
)

// Tracker is an in-memory Ledger guarded by a mutex.
type Tracker struct {
	mu       sync.Mutex
	consumed int
	reserved int
	limit    int
	epoch    int
}

// NewTracker returns a tracker with the given ceiling, or DefaultLimit when limit <= 0.
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{limit: limit}
}

func (t *Tracker) Limit() int { return t.limit }

func (t *Tracker) Consumed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed
}

// Remaining reports whether consumed tokens are still under the limit.
func (t *Tracker) Remaining() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consumed < t.limit
}

// Charge adds n to the consumed total. Non-positive values are ignored.
func (t *Tracker) Charge(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.consumed += n
	t.mu.Unlock()
}

// Reserve holds n tokens if consumed plus outstanding reservations are below the limit.
// A single reservation may overshoot the ceiling; the check is on admission only.
func (t *Tracker) Reserve(_ context.Context, n int) (Reservation, error) {
	if n < 0 {
		n = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consumed+t.reserved >= t.limit {
		return nil, apperr.BudgetExceeded(fmt.Sprintf("token budget exhausted: %d of %d used", t.consumed, t.limit))
	}
	t.reserved += n
	return &trackerReservation{t: t, n: n, epoch: t.epoch}, nil
}

func (t *Tracker) Snapshot(context.Context) (Usage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Usage{Consumed: t.consumed, Reserved: t.reserved, Limit: t.limit}, nil
}

// Reset clears consumed and reserved totals. Outstanding reservations become no-ops.
func (t *Tracker) Reset(context.Context) error {
	t.mu.Lock()
	t.consumed = 0
	t.reserved = 0
	t.epoch++
	t.mu.Unlock()
	return nil
}

func (t *Tracker) settle(epoch, n int, commit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if epoch != t.epoch {
		return
	}
	t.reserved -= n
	if t.reserved < 0 {
		t.reserved = 0
	}
	if commit {
		t.consumed += n
	}
}

type trackerReservation struct {
	t     *Tracker
	n     int
	epoch int
	once  sync.Once
}

func (r *trackerReservation) Amount() int { return r.n }

func (r *trackerReservation) Commit(context.Context) error {
	r.once.Do(func() { r.t.settle(r.epoch, r.n, true) })
	return nil
}

func (r *trackerReservation) Release(context.Context) error {
	r.once.Do(func() { r.t.settle(r.epoch, r.n, false) })
	return nil
}

var _ Ledger = (*Tracker)(nil)
