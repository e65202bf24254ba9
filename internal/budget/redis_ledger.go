package budget

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"resume-matcher/internal/shared/apperr"
)

// KEYS[1] ledger hash; ARGV[1] limit; ARGV[2] amount.
// Returns {admitted, consumed, reserved}.
var reserveScript = redis.NewScript(`
local consumed = tonumber(redis.call('HGET', KEYS[1], 'consumed') or '0')
local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or '0')
if consumed + reserved >= tonumber(ARGV[1]) then
  return {0, consumed, reserved}
end
reserved = redis.call('HINCRBY', KEYS[1], 'reserved', ARGV[2])
return {1, consumed, reserved}
`)

// KEYS[1] ledger hash; ARGV[1] amount; ARGV[2] "1" to move the amount into consumed.
var settleScript = redis.NewScript(`
local reserved = tonumber(redis.call('HGET', KEYS[1], 'reserved') or '0') - tonumber(ARGV[1])
if reserved < 0 then reserved = 0 end
redis.call('HSET', KEYS[1], 'reserved', reserved)
if ARGV[2] == '1' then
  redis.call('HINCRBY', KEYS[1], 'consumed', ARGV[1])
end
return reserved
`)

// RedisClient is the subset of *redis.Client the ledger needs.
type RedisClient interface {
	redis.Scripter
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisLedger is a Ledger stored in a Redis hash. Scripts keep check-and-hold atomic.
type RedisLedger struct {
	Client RedisClient
	Key    string
	Limit  int
}

// NewRedisLedger returns a ledger under key. Limit falls back to DefaultLimit.
func NewRedisLedger(client RedisClient, key string, limit int) *RedisLedger {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &RedisLedger{Client: client, Key: redisKey(key), Limit: limit}
}

func redisKey(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}
	return "budget:" + scope
}

func (l *RedisLedger) Reserve(ctx context.Context, n int) (Reservation, error) {
	if n < 0 {
		n = 0
	}
	vals, err := reserveScript.Run(ctx, l.Client, []string{l.Key}, l.Limit, n).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("budget reserve: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("budget reserve: unexpected script reply %v", vals)
	}
	if vals[0] == 0 {
		return nil, apperr.BudgetExceeded(fmt.Sprintf("token budget exhausted: %d of %d used", vals[1], l.Limit))
	}
	return &redisReservation{l: l, n: n}, nil
}

func (l *RedisLedger) Snapshot(ctx context.Context) (Usage, error) {
	fields, err := l.Client.HGetAll(ctx, l.Key).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("budget snapshot: %w", err)
	}
	return parseUsage(fields, l.Limit)
}

func (l *RedisLedger) Reset(ctx context.Context) error {
	if err := l.Client.Del(ctx, l.Key).Err(); err != nil {
		return fmt.Errorf("budget reset: %w", err)
	}
	return nil
}

func parseUsage(fields map[string]string, limit int) (Usage, error) {
	u := Usage{Limit: limit}
	for name, dst := range map[string]*int{"consumed": &u.Consumed, "reserved": &u.Reserved} {
		raw, ok := fields[name]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Usage{}, fmt.Errorf("budget snapshot: field %s: %w", name, err)
		}
		*dst = v
	}
	return u, nil
}

type redisReservation struct {
	l    *RedisLedger
	n    int
	once sync.Once
}

func (r *redisReservation) Amount() int { return r.n }

func (r *redisReservation) Commit(ctx context.Context) error {
	return r.settle(ctx, "1")
}

func (r *redisReservation) Release(ctx context.Context) error {
	return r.settle(ctx, "0")
}

func (r *redisReservation) settle(ctx context.Context, commit string) error {
	var err error
	r.once.Do(func() {
		if runErr := settleScript.Run(ctx, r.l.Client, []string{r.l.Key}, r.n, commit).Err(); runErr != nil {
			err = fmt.Errorf("budget settle: %w", runErr)
		}
	})
	return err
}

var _ Ledger = (*RedisLedger)(nil)
