package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type cache struct {
	*redis.Client
}

func newCache(conn *redis.Client) *cache {
	return &cache{
		conn,
	}
}

// nextID hands out the next id for a table; INCR on a missing counter starts at 1
func (c *cache) nextID(ctx context.Context, counterKey string) (int64, error) {
	return c.Incr(ctx, counterKey).Result()
}

// members returns the union of the given sets
func (c *cache) members(ctx context.Context, keys ...string) ([]string, error) {
	switch len(keys) {
	case 0:
		return []string{}, nil
	case 1:
		return c.SMembers(ctx, keys[0]).Result()
	}
	return c.SUnion(ctx, keys...).Result()
}

// getHashes does HGETALL for every key in a single round trip. Keys that don't exist come back as empty maps
func (c *cache) getHashes(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return []map[string]string{}, nil
	}

	cmds := make([]*redis.StringStringMapCmd, len(keys))
	_, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hashes := make([]map[string]string, len(keys))
	for i, cmd := range cmds {
		hashes[i] = cmd.Val()
	}
	return hashes, nil
}

// resolveKey finds the storage key for an id
func (c *cache) resolveKey(ctx context.Context, t *Table, id int64) (string, error) {
	idStr := strconv.FormatInt(id, 10)
	if !t.keyMoves() {
		return t.keyName(map[string]string{idField: idStr}), nil
	}

	key, err := c.HGet(ctx, t.LookupKey, idStr).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return key, err
}
