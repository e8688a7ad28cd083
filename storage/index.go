package storage

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// indexOp is a single SADD (add) or SREM on one of the table's sets
type indexOp struct {
	add    bool
	key    string
	member string
}

/*
	indexActions works out which sets a record has to enter or leave for an action. This will cause:
	1. insert: the record joins AllKey and every index whose field is set
	2. update: the record leaves the sets of values that changed and joins the new ones. If the storage key
	   moved and members are keys, every set is rewritten because the member itself changed
	3. delete: the record leaves every set it was in

	before is nil for inserts and after is nil for deletes.
*/
func (t *Table) indexActions(action actionTypes, before, after map[string]string, beforeKey, afterKey string) ([]indexOp, error) {
	ops := []indexOp{}

	switch action {
	case actionInsert:
		if after == nil {
			return nil, errors.New("insert needs the new record")
		}
		member := t.member(after, afterKey)
		if t.AllKey != "" {
			ops = append(ops, indexOp{add: true, key: t.AllKey, member: member})
		}
		for _, idx := range t.Indexes {
			if v := after[idx.Field]; v != "" {
				ops = append(ops, indexOp{add: true, key: idx.keyName(v), member: member})
			}
		}

	case actionDelete:
		if before == nil {
			return nil, errors.New("delete needs the old record")
		}
		member := t.member(before, beforeKey)
		if t.AllKey != "" {
			ops = append(ops, indexOp{key: t.AllKey, member: member})
		}
		for _, idx := range t.Indexes {
			if v := before[idx.Field]; v != "" {
				ops = append(ops, indexOp{key: idx.keyName(v), member: member})
			}
		}

	case actionUpdate:
		if before == nil || after == nil {
			return nil, errors.New("update needs both the old and the new record")
		}
		oldMember := t.member(before, beforeKey)
		newMember := t.member(after, afterKey)

		if t.AllKey != "" && oldMember != newMember {
			ops = append(ops,
				indexOp{key: t.AllKey, member: oldMember},
				indexOp{add: true, key: t.AllKey, member: newMember},
			)
		}

		for _, idx := range t.Indexes {
			oldValue, newValue := before[idx.Field], after[idx.Field]
			if oldValue == newValue && oldMember == newMember {
				continue
			}
			if oldValue != "" {
				ops = append(ops, indexOp{key: idx.keyName(oldValue), member: oldMember})
			}
			if newValue != "" {
				ops = append(ops, indexOp{add: true, key: idx.keyName(newValue), member: newMember})
			}
		}

	default:
		return nil, errors.New("unknown index action " + action.String())
	}

	return ops, nil
}

func applyIndexOps(ctx context.Context, pipe redis.Pipeliner, ops []indexOp) {
	for _, op := range ops {
		if op.add {
			d("sadd %s %s", op.key, op.member)
			pipe.SAdd(ctx, op.key, op.member)
		} else {
			d("srem %s %s", op.key, op.member)
			pipe.SRem(ctx, op.key, op.member)
		}
	}
}
