package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned when no record exists for the id
	ErrNotFound = errors.New("storage: record not found")

	// ErrConflict is returned when a write lost the WATCH race too many times in a row
	ErrConflict = errors.New("storage: too many concurrent writes")
)

// Storage defines our API for this package
type Storage interface {
	// Insert assigns the next id from the table's counter, stores obj and adds it to its indexes
	Insert(ctx context.Context, obj Record) error

	// Update overwrites the record with obj's id. Index memberships and (for moving keys) the storage key
	// follow the new field values
	Update(ctx context.Context, obj Record) error

	Select(ctx context.Context, obj Record) error // Select fills out obj by its id

	/*
		SelectAll fills dest (a pointer to a slice of obj's type) with the records of an index, filtered,
		sorted and paginated by opts. It returns how many records matched before pagination.
	*/
	SelectAll(ctx context.Context, obj Record, dest interface{}, opts *SelectOptions) (int, error)

	Delete(ctx context.Context, obj Record) error // Delete removes the record with obj's id and its index memberships

	Ping(ctx context.Context) error
}

// storage is the private implements the API
type storage struct {
	cache *cache

	// structToTable maps the struct name (e.g. Contact) to its table
	structToTable map[string]*Table
}

type Config struct {
	Redis    *redis.Client
	Tables   []*Table
	Debugger bool          // log every redis action at debug level
	Logger   *logrus.Entry // optional; defaults to the standard logger
}

// New returns storage which implements the interface
func New(conf *Config) (Storage, error) {
	if conf == nil || conf.Redis == nil {
		return nil, errors.New("storage: a redis client is required")
	}

	debug.init(conf.Debugger, conf.Logger)

	s := &storage{
		cache:         newCache(conf.Redis),
		structToTable: make(map[string]*Table),
	}

	for _, t := range conf.Tables {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, ok := s.structToTable[t.tableName]; ok {
			return nil, fmt.Errorf("storage: table %s configured twice", t.tableName)
		}
		s.structToTable[t.tableName] = t
	}

	return s, nil
}

func (s *storage) table(obj interface{}) (*Table, error) {
	structName := getStructName(obj)
	if structName == "" {
		return nil, errors.New("struct name cannot be blank")
	}

	t, ok := s.structToTable[structName]
	if !ok {
		return nil, errors.New("no table configured for " + structName + "; have you configured storage properly?")
	}
	return t, nil
}

func (s *storage) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx).Err()
}

func (s *storage) Insert(ctx context.Context, obj Record) error {
	t, err := s.table(obj)
	if err != nil {
		return err
	}

	id, err := s.cache.nextID(ctx, t.CounterKey)
	if err != nil {
		return fmt.Errorf("next id for %s: %w", t.tableName, err)
	}
	obj.SetID(id)

	hash, _, err := t.toHash(obj)
	if err != nil {
		return err
	}
	key := t.keyName(hash)

	ops, err := t.indexActions(actionInsert, nil, hash, "", key)
	if err != nil {
		return err
	}

	d("insert %s key: %s", t.tableName, key)
	_, err = s.cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, hashArgs(hash)...)
		if t.keyMoves() {
			pipe.HSet(ctx, t.LookupKey, hash[idField], key)
		}
		applyIndexOps(ctx, pipe, ops)
		return nil
	})
	return err
}

func (s *storage) Update(ctx context.Context, obj Record) error {
	t, err := s.table(obj)
	if err != nil {
		return err
	}

	after, del, err := t.toHash(obj)
	if err != nil {
		return err
	}
	afterKey := t.keyName(after)
	id := after[idField]

	return s.cache.retry(ctx, func() error {
		beforeKey, err := s.cache.resolveKey(ctx, t, obj.GetID())
		if err != nil {
			return err
		}

		return s.cache.Watch(ctx, func(tx *redis.Tx) error {
			before, err := s.cache.currentHash(ctx, tx, t, id, beforeKey)
			if err != nil {
				return err
			}

			ops, err := t.indexActions(actionUpdate, before, after, beforeKey, afterKey)
			if err != nil {
				return err
			}

			d("update %s key: %s -> %s", t.tableName, beforeKey, afterKey)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if beforeKey != afterKey {
					// the key embeds fields that changed; the old hash goes away entirely
					pipe.Del(ctx, beforeKey)
					pipe.HSet(ctx, t.LookupKey, id, afterKey)
				} else if len(del) > 0 {
					pipe.HDel(ctx, afterKey, del...)
				}
				pipe.HSet(ctx, afterKey, hashArgs(after)...)
				applyIndexOps(ctx, pipe, ops)
				return nil
			})
			return err
		}, beforeKey)
	})
}

func (s *storage) Select(ctx context.Context, obj Record) error {
	t, err := s.table(obj)
	if err != nil {
		return err
	}

	key, err := s.cache.resolveKey(ctx, t, obj.GetID())
	if err != nil {
		return err
	}

	hash, err := s.cache.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	if len(hash) == 0 {
		return ErrNotFound
	}

	return t.fromHash(withID(hash, strconv.FormatInt(obj.GetID(), 10)), obj)
}

func (s *storage) Delete(ctx context.Context, obj Record) error {
	t, err := s.table(obj)
	if err != nil {
		return err
	}
	id := strconv.FormatInt(obj.GetID(), 10)

	return s.cache.retry(ctx, func() error {
		key, err := s.cache.resolveKey(ctx, t, obj.GetID())
		if err != nil {
			return err
		}

		return s.cache.Watch(ctx, func(tx *redis.Tx) error {
			before, err := s.cache.currentHash(ctx, tx, t, id, key)
			if err != nil {
				return err
			}

			ops, err := t.indexActions(actionDelete, before, nil, key, "")
			if err != nil {
				return err
			}

			d("delete %s key: %s", t.tableName, key)
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				if t.keyMoves() {
					pipe.HDel(ctx, t.LookupKey, id)
				}
				applyIndexOps(ctx, pipe, ops)
				return nil
			})
			return err
		}, key)
	})
}

func (s *storage) SelectAll(ctx context.Context, obj Record, dest interface{}, opts *SelectOptions) (int, error) {
	t, err := s.table(obj)
	if err != nil {
		return 0, err
	}

	if opts == nil {
		opts = &SelectOptions{}
	}
	if err := opts.validate(t); err != nil {
		return 0, err
	}

	members, err := s.cache.members(ctx, opts.setKeys(t)...)
	if err != nil {
		return 0, err
	}

	keys := make([]string, len(members))
	for i, member := range members {
		keys[i] = t.memberKey(member)
	}

	hashes, err := s.cache.getHashes(ctx, keys)
	if err != nil {
		return 0, err
	}

	matched := []map[string]string{}
	for i, hash := range hashes {
		if len(hash) == 0 {
			// set member whose record is gone; nothing to return
			d("stale index member %s in %s", members[i], t.tableName)
			continue
		}
		withID(hash, t.idFromKey(keys[i]))
		if opts.matches(t, hash) {
			matched = append(matched, hash)
		}
	}

	t.sortHashes(matched)

	total := len(matched)
	return total, t.scanToDest(paginate(matched, opts.Offset, opts.Limit), dest)
}

// sortHashes orders by SortFields then numerically by id so listings are stable across calls
func (t *Table) sortHashes(hashes []map[string]string) {
	sort.SliceStable(hashes, func(i, j int) bool {
		for _, field := range t.SortFields {
			if hashes[i][field] != hashes[j][field] {
				return hashes[i][field] < hashes[j][field]
			}
		}
		a, _ := strconv.ParseInt(hashes[i][idField], 10, 64)
		b, _ := strconv.ParseInt(hashes[j][idField], 10, 64)
		return a < b
	})
}

func paginate(hashes []map[string]string, offset, limit int) []map[string]string {
	if offset >= len(hashes) {
		return []map[string]string{}
	}
	hashes = hashes[offset:]
	if limit > 0 && limit < len(hashes) {
		hashes = hashes[:limit]
	}
	return hashes
}

// setKeys are the sets SelectAll reads members from
func (o *SelectOptions) setKeys(t *Table) []string {
	if o.Index == "" {
		return []string{t.AllKey}
	}

	idx := t.indexes[o.Index]
	keys := make([]string, 0, len(o.Values))
	for _, v := range o.Values {
		keys = append(keys, idx.keyName(v))
	}
	return keys
}
