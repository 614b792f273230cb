package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrAttemptNotFound indicates that no purchase attempt exists for a
// payment reference.  The attempt may have expired out of Redis or
// the reference may be bogus; callers treat both the same way.
var ErrAttemptNotFound = errors.New("purchase attempt not found")

// AttemptStore keeps ephemeral purchase attempts in Redis, one hash
// per payment reference with a TTL.  The status field is the single
// authoritative state of the attempt and is only mutated through the
// CompareAndSwap script, so concurrent webhook deliveries for the
// same reference serialize on Redis and exactly one caller wins any
// given transition.
type AttemptStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// casScript flips the status field only when it currently equals the
// expected value.  It returns the previous status and a swapped flag
// so callers can distinguish "I won" from "someone else already
// transitioned this attempt".
var casScript = redis.NewScript(`
    local key = KEYS[1]
    local from = ARGV[1]
    local to = ARGV[2]

    local current = redis.call('HGET', key, 'status')
    if current == false then
        return { '', 0 }
    end
    if current == from then
        redis.call('HSET', key, 'status', to)
        return { current, 1 }
    end
    return { current, 0 }
`)

// NewAttemptStore constructs an AttemptStore.  ttl bounds how long an
// attempt survives in Redis; it must comfortably exceed the checkout
// window so that late webhooks still find a terminal status to bounce
// off instead of a missing key.
func NewAttemptStore(rdb *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{rdb: rdb, ttl: ttl}
}

func attemptKey(reference string) string {
	return "attempt:" + reference
}

// Put stores a new attempt under its reference.  The immutable fields
// travel as one JSON blob while the status lives in its own hash
// field so the CAS script can read and write it atomically.
func (s *AttemptStore) Put(ctx context.Context, a *model.PurchaseAttempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	key := attemptKey(a.Reference)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "status", a.Status, "created_at", a.CreatedAt.UTC().Unix())
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Get loads the attempt stored under a reference.  The returned
// struct carries the live status field, not the one captured in the
// JSON blob at Put time.
func (s *AttemptStore) Get(ctx context.Context, reference string) (*model.PurchaseAttempt, error) {
	vals, err := s.rdb.HMGet(ctx, attemptKey(reference), "data", "status").Result()
	if err != nil {
		return nil, err
	}
	raw, ok := vals[0].(string)
	if !ok || raw == "" {
		return nil, ErrAttemptNotFound
	}
	var a model.PurchaseAttempt
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decode attempt %s: %w", reference, err)
	}
	if status, ok := vals[1].(string); ok && status != "" {
		a.Status = status
	}
	return &a, nil
}

// CompareAndSwap transitions the attempt's status from one value to
// another atomically.  It reports whether the swap happened together
// with the status observed at decision time.  ErrAttemptNotFound is
// returned when the key no longer exists.
func (s *AttemptStore) CompareAndSwap(ctx context.Context, reference, from, to string) (bool, string, error) {
	res, err := casScript.Run(ctx, s.rdb, []string{attemptKey(reference)}, from, to).Result()
	if err != nil {
		return false, "", err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, "", fmt.Errorf("unexpected cas reply for %s: %v", reference, res)
	}
	prev, _ := vals[0].(string)
	swapped, _ := vals[1].(int64)
	if prev == "" {
		return false, "", ErrAttemptNotFound
	}
	return swapped == 1, prev, nil
}

// ForceStatus overwrites the status unconditionally.  The only caller
// is the orchestrator's out-of-stock path, which downgrades a just
// claimed CONFIRMED back to FAILED while the inconsistency is flagged
// for reconciliation.
func (s *AttemptStore) ForceStatus(ctx context.Context, reference, status string) error {
	return s.rdb.HSet(ctx, attemptKey(reference), "status", status).Err()
}

// StaleReferences scans for attempts still AWAITING_CONFIRMATION that
// were created before the cutoff.  The background sweeper feeds the
// result into Expire.  SCAN keeps the walk incremental so the sweeper
// never blocks Redis.
func (s *AttemptStore) StaleReferences(ctx context.Context, cutoff time.Time) ([]string, error) {
	var (
		refs   []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, "attempt:*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			vals, err := s.rdb.HMGet(ctx, key, "status", "created_at").Result()
			if err != nil {
				continue
			}
			status, _ := vals[0].(string)
			if status != model.AttemptAwaiting {
				continue
			}
			rawCreated, _ := vals[1].(string)
			var created int64
			if _, err := fmt.Sscanf(rawCreated, "%d", &created); err != nil {
				continue
			}
			if time.Unix(created, 0).Before(cutoff) {
				refs = append(refs, key[len("attempt:"):])
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return refs, nil
}
