package budget

import (
	"context"
	"strings"
)

// DefaultLimit is the token ceiling for a session when none is configured.
const DefaultLimit = 15000

// Usage is a point-in-time view of a ledger.
type Usage struct {
	Consumed int `json:"consumed"`
	Reserved int `json:"reserved"`
	Limit    int `json:"limit"`
}

// Remaining reports whether the ledger still admits new work.
func (u Usage) Remaining() bool {
	return u.Consumed+u.Reserved < u.Limit
}

// Reservation is a pending charge taken before an external call.
// Commit and Release are idempotent and only the first call of either has effect.
type Reservation interface {
	Amount() int
	Commit(ctx context.Context) error
	Release(ctx context.Context) error
}

// Ledger tracks consumed tokens against a ceiling. Reserve must be atomic with respect
// to concurrent callers so the admission check and the hold cannot interleave.
type Ledger interface {
	Reserve(ctx context.Context, n int) (Reservation, error)
	Snapshot(ctx context.Context) (Usage, error)
	Reset(ctx context.Context) error
}

// Cost approximates the token cost of one analysis as the whitespace word count of both texts.
// Providers tokenize differently; this only needs to be stable and monotonic.
func Cost(resumeText, jobDescription string) int {
	return len(strings.Fields(resumeText)) + len(strings.Fields(jobDescription))
}
