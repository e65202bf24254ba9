package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"resume-matcher/internal/shared/apperr"
)

const (
	pgEnsureRowSQL = `INSERT INTO budget_ledger (scope, consumed, reserved, updated_at) VALUES ($1, 0, 0, now()) ON CONFLICT (scope) DO NOTHING`
	pgLockRowSQL   = `SELECT consumed, reserved FROM budget_ledger WHERE scope = $1 FOR UPDATE`
	pgHoldSQL      = `UPDATE budget_ledger SET reserved = reserved + $2, updated_at = now() WHERE scope = $1`
	pgCommitSQL    = `UPDATE budget_ledger SET reserved = GREATEST(reserved - $2, 0), consumed = consumed + $2, updated_at = now() WHERE scope = $1`
	pgReleaseSQL   = `UPDATE budget_ledger SET reserved = GREATEST(reserved - $2, 0), updated_at = now() WHERE scope = $1`
	pgSnapshotSQL  = `SELECT consumed, reserved FROM budget_ledger WHERE scope = $1`
	pgResetSQL     = `INSERT INTO budget_ledger (scope, consumed, reserved, updated_at) VALUES ($1, 0, 0, now()) ON CONFLICT (scope) DO UPDATE SET consumed = 0, reserved = 0, updated_at = now()`
)

// PGLedger is a Ledger shared across processes through a row in budget_ledger.
type PGLedger struct {
	DB    *sql.DB
	Scope string
	Limit int
}

// NewPGLedger returns a Postgres ledger for scope. Limit falls back to DefaultLimit.
func NewPGLedger(db *sql.DB, scope string, limit int) *PGLedger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}
	return &PGLedger{DB: db, Scope: scope, Limit: limit}
}

func (l *PGLedger) Reserve(ctx context.Context, n int) (_ Reservation, err error) {
	if n < 0 {
		n = 0
	}
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("budget reserve: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, pgEnsureRowSQL, l.Scope); err != nil {
		return nil, fmt.Errorf("budget reserve: ensure row: %w", err)
	}
	var consumed, reserved int
	if err = tx.QueryRowContext(ctx, pgLockRowSQL, l.Scope).Scan(&consumed, &reserved); err != nil {
		return nil, fmt.Errorf("budget reserve: lock row: %w", err)
	}
	if consumed+reserved >= l.Limit {
		err = apperr.BudgetExceeded(fmt.Sprintf("token budget exhausted: %d of %d used", consumed, l.Limit))
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, pgHoldSQL, l.Scope, n); err != nil {
		return nil, fmt.Errorf("budget reserve: hold: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("budget reserve: commit: %w", err)
	}
	return &pgReservation{l: l, n: n}, nil
}

func (l *PGLedger) Snapshot(ctx context.Context) (Usage, error) {
	u := Usage{Limit: l.Limit}
	err := l.DB.QueryRowContext(ctx, pgSnapshotSQL, l.Scope).Scan(&u.Consumed, &u.Reserved)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Usage{}, fmt.Errorf("budget snapshot: %w", err)
	}
	return u, nil
}

func (l *PGLedger) Reset(ctx context.Context) error {
	if _, err := l.DB.ExecContext(ctx, pgResetSQL, l.Scope); err != nil {
		return fmt.Errorf("budget reset: %w", err)
	}
	return nil
}

type pgReservation struct {
	l    *PGLedger
	n    int
	once sync.Once
}

func (r *pgReservation) Amount() int { return r.n }

func (r *pgReservation) Commit(ctx context.Context) error {
	return r.settle(ctx, pgCommitSQL)
}

func (r *pgReservation) Release(ctx context.Context) error {
	return r.settle(ctx, pgReleaseSQL)
}

func (r *pgReservation) settle(ctx context.Context, query string) error {
	var err error
	r.once.Do(func() {
		if _, execErr := r.l.DB.ExecContext(ctx, query, r.l.Scope, r.n); execErr != nil {
			err = fmt.Errorf("budget settle: %w", execErr)
		}
	})
	return err
}

var _ Ledger = (*PGLedger)(nil)
