package storage

import (
	"fmt"
	"strings"
	"time"
)

type actionTypes int32

const (
	actionSelect actionTypes = iota
	actionInsert
	actionUpdate
	actionDelete
)

func (a actionTypes) String() string {
	switch a {
	case actionSelect:
		return "select"
	case actionInsert:
		return "insert"
	case actionUpdate:
		return "update"
	case actionDelete:
		return "delete"
	}
	return "unknown"
}

const (
	// idField is the json name every stored struct must use for its primary key
	idField = "id"

	// maxTxRetries bounds how many times a WATCH conflict is retried before giving up
	maxTxRetries = 10
)

const (
	baseTxBackoff = 2 * time.Millisecond
	maxTxBackoff  = 100 * time.Millisecond
)

// Record is implemented by every struct a Table stores
type Record interface {
	GetID() int64
	SetID(id int64)
}

// Index is a secondary index: a redis set per distinct value of Field
type Index struct {
	Name string // e.g. "company"; used by SelectOptions.Index

	Key   string // set key template e.g. `contacts:by_company:%v`
	Field string // json name of the field whose value fills Key
}

// keyName fills the index template with the given value
func (i *Index) keyName(value string) string {
	return fmt.Sprintf(i.Key, value)
}

// Table holds the redis layout for one struct
type Table struct {
	Struct interface{} // struct this table stores e.g. Contact{}

	/*
		Key is the storage key template of a single record e.g. `contact:%v`.
		KeyFields are the json names that fill the template in order; defaults to []string{"id"}.

		When the key embeds anything other than the id (e.g. `schedule:%v:%v:%v` with date, time_slot, id)
		the key moves whenever one of those fields changes and LookupKey must be set so a record can still be
		found by id alone.
	*/
	Key       string
	KeyFields []string
	LookupKey string // hash of id -> storage key e.g. `schedules:keys`

	CounterKey string // INCR counter used for ids e.g. `counters:contact_id`
	AllKey     string // set of every record e.g. `contacts:all`; optional

	Indexes []*Index

	/*
		MembersAreKeys stores the storage key in the all/secondary sets instead of the id.
		Only useful together with a moving Key.
	*/
	MembersAreKeys bool

	SearchFields []string // fields matched by SelectOptions.Search
	SortFields   []string // list order; ties broken by id

	tableName string
	fields    []fieldInfo
	indexes   map[string]*Index
}

// keyName takes the abstract key e.g. `contact:%v` and returns the key name e.g. `contact:12` for the hash
func (t *Table) keyName(hash map[string]string) string {
	args := make([]interface{}, 0, len(t.KeyFields))
	for _, field := range t.KeyFields {
		args = append(args, hash[field])
	}
	return fmt.Sprintf(t.Key, args...)
}

// keyMoves reports whether the storage key depends on more than the id
func (t *Table) keyMoves() bool {
	return len(t.KeyFields) != 1 || t.KeyFields[0] != idField
}

// member returns what goes into the all/secondary sets for the record
func (t *Table) member(hash map[string]string, key string) string {
	if t.MembersAreKeys {
		return key
	}
	if id := hash[idField]; id != "" {
		return id
	}
	return t.idFromKey(key)
}

/*
	idFromKey recovers the id from a storage key whose template ends with the id, e.g. `contact:%v` or
	`schedule:%v:%v:%v`. Hashes written by older clients carry no id field, so the key is the only place
	the id can be read from.
*/
func (t *Table) idFromKey(key string) string {
	if key == "" || t.KeyFields[len(t.KeyFields)-1] != idField || !strings.HasSuffix(t.Key, "%v") || len(t.Key) < 3 {
		return ""
	}
	sep := t.Key[len(t.Key)-3 : len(t.Key)-2]
	return key[strings.LastIndex(key, sep)+1:]
}

// withID fills in a missing id field; a stored id always wins
func withID(hash map[string]string, id string) map[string]string {
	if hash[idField] == "" && id != "" {
		hash[idField] = id
	}
	return hash
}

// memberKey resolves a set member back into the record's storage key
func (t *Table) memberKey(member string) string {
	if t.MembersAreKeys {
		return member
	}
	return fmt.Sprintf(t.Key, member)
}

// SelectOptions narrows SelectAll
type SelectOptions struct {
	Index  string   // Index.Name; empty means AllKey
	Values []string // index values; several values are unioned (e.g. a range of dates)

	Where  map[string]string // exact match on stored fields
	Search string            // case-insensitive substring over Table.SearchFields

	Offset int
	Limit  int // <= 0 returns everything after Offset
}

func (o *SelectOptions) matches(t *Table, hash map[string]string) bool {
	for field, want := range o.Where {
		if hash[field] != want {
			return false
		}
	}

	if o.Search == "" {
		return true
	}

	needle := strings.ToLower(o.Search)
	for _, field := range t.SearchFields {
		if strings.Contains(strings.ToLower(hash[field]), needle) {
			return true
		}
	}
	return false
}
