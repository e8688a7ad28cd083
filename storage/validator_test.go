package storage

import (
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

type noID struct {
	Name string `json:"name"`
}

func (n *noID) GetID() int64   { return 0 }
func (n *noID) SetID(id int64) {}

type notRecord struct {
	ID int64 `json:"id"`
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   func() *Table
		wantErr string
	}{
		{
			name:  "valid id keyed table",
			table: noteTable,
		},
		{
			name:  "valid moving key table",
			table: slotTable,
		},
		{
			name:    "missing struct",
			table:   func() *Table { return &Table{} },
			wantErr: "Struct must be set",
		},
		{
			name:    "struct is not a record",
			table:   func() *Table { return &Table{Struct: notRecord{}, Key: "x:%v", CounterKey: "c"} },
			wantErr: "must implement storage.Record",
		},
		{
			name:    "no id field",
			table:   func() *Table { return &Table{Struct: noID{}, Key: "x:%v", CounterKey: "c"} },
			wantErr: `json field named "id"`,
		},
		{
			name: "missing counter",
			table: func() *Table {
				tbl := noteTable()
				tbl.CounterKey = ""
				return tbl
			},
			wantErr: "CounterKey must be set",
		},
		{
			name: "key placeholders do not match key fields",
			table: func() *Table {
				tbl := noteTable()
				tbl.Key = "note:%v:%v"
				return tbl
			},
			wantErr: "one %v per KeyFields entry",
		},
		{
			name: "key fields without the id",
			table: func() *Table {
				tbl := slotTable()
				tbl.KeyFields = []string{"day", "hour", "label"}
				return tbl
			},
			wantErr: "KeyFields must include id",
		},
		{
			name: "moving key without lookup",
			table: func() *Table {
				tbl := slotTable()
				tbl.LookupKey = ""
				return tbl
			},
			wantErr: "LookupKey must be set",
		},
		{
			name: "moving key storing ids in sets",
			table: func() *Table {
				tbl := slotTable()
				tbl.MembersAreKeys = false
				return tbl
			},
			wantErr: "MembersAreKeys must be set",
		},
		{
			name: "unknown search field",
			table: func() *Table {
				tbl := noteTable()
				tbl.SearchFields = []string{"body"}
				return tbl
			},
			wantErr: "unknown search field body",
		},
		{
			name: "duplicate index",
			table: func() *Table {
				tbl := noteTable()
				tbl.Indexes = append(tbl.Indexes, &Index{Name: "owner", Key: "x:%v", Field: "owner"})
				return tbl
			},
			wantErr: "index owner defined twice",
		},
		{
			name: "index on unknown field",
			table: func() *Table {
				tbl := noteTable()
				tbl.Indexes = []*Index{{Name: "team", Key: "notes:by_team:%v", Field: "team"}}
				return tbl
			},
			wantErr: "unknown field team",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table().validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err = New(&Config{Redis: client, Tables: []*Table{noteTable(), noteTable()}})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "configured twice")
	}
}
