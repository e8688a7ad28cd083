package storage

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
)

/*
	Writes go through WATCH/MULTI/EXEC: the record's current hash is read under WATCH, the index diff is
	computed from that fresh copy and everything is queued in one MULTI. If another client touches the
	record first, EXEC fails with redis.TxFailedErr and the whole attempt (including resolving the key)
	runs again.
*/

// retry runs attempt until it stops failing with redis.TxFailedErr, sleeping a jittered backoff in between
func (c *cache) retry(ctx context.Context, attempt func() error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := attempt()
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}

		d("transaction conflict; retry %d", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(txBackoff(i)):
		}
	}
	return ErrConflict
}

// txBackoff is a random wait in [0, base*2^attempt), capped at maxTxBackoff
func txBackoff(attempt int) time.Duration {
	ceiling := baseTxBackoff << attempt
	if ceiling <= 0 || ceiling > maxTxBackoff {
		ceiling = maxTxBackoff
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// currentHash loads the record at key inside a watch. A record that moved since key was resolved is
// reported as a conflict so the caller resolves again
func (c *cache) currentHash(ctx context.Context, tx *redis.Tx, t *Table, id, key string) (map[string]string, error) {
	hash, err := tx.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(hash) > 0 {
		return withID(hash, id), nil
	}

	if t.keyMoves() {
		moved, err := tx.HGet(ctx, t.LookupKey, id).Result()
		if err == nil && moved != key {
			return nil, redis.TxFailedErr
		}
	}
	return nil, ErrNotFound
}

func hashArgs(hash map[string]string) []interface{} {
	args := make([]interface{}, 0, len(hash)*2)
	for k, v := range hash {
		args = append(args, k, v)
	}
	return args
}
