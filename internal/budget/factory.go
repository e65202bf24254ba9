package budget

import (
	"context"
	"fmt"
	"strings"
)

// Scope selects how long a budget lives and who shares it.
type Scope string

const (
	// ScopeBatch gives every batch a fresh in-memory tracker.
	ScopeBatch Scope = "batch"
	// ScopeProcess shares one in-memory tracker for the process lifetime.
	ScopeProcess Scope = "process"
	ScopePostgres Scope = "postgres"
	ScopeRedis    Scope = "redis"
)

// ParseScope maps a config value to a Scope. Empty means ScopeBatch.
func ParseScope(raw string) (Scope, error) {
	switch s := Scope(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return ScopeBatch, nil
	case ScopeBatch, ScopeProcess, ScopePostgres, ScopeRedis:
		return s, nil
	default:
		return "", fmt.Errorf("unknown budget scope %q", raw)
	}
}

// LedgerFactory resolves the ledger a batch charges against.
type LedgerFactory interface {
	LedgerFor(ctx context.Context) (Ledger, error)
}

// PerBatch returns a new Tracker on every call.
type PerBatch struct {
	Limit int
}

func (p PerBatch) LedgerFor(context.Context) (Ledger, error) {
	return NewTracker(p.Limit), nil
}

// Shared returns the same ledger on every call.
type Shared struct {
	Ledger Ledger
}

func (s Shared) LedgerFor(context.Context) (Ledger, error) {
	if s.Ledger == nil {
		return nil, fmt.Errorf("shared budget ledger not configured")
	}
	return s.Ledger, nil
}
