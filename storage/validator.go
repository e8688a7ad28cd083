package storage

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var recordType = reflect.TypeOf((*Record)(nil)).Elem()

func (t *Table) validate() error {
	if t.Struct == nil {
		return fmt.Errorf("Struct must be set")
	}

	t.parseTableName()

	if !reflect.PtrTo(getValue(reflect.TypeOf(t.Struct))).Implements(recordType) {
		return fmt.Errorf("Table: %s Err: *%s must implement storage.Record", t.tableName, t.tableName)
	}

	if t.CounterKey == "" {
		return fmt.Errorf("Table: %s Err: CounterKey must be set", t.tableName)
	}

	err := t.validateAndParseFields()
	if err != nil {
		return err
	}

	err = t.validateKey()
	if err != nil {
		return err
	}

	return t.validateAndParseIndexes()
}

func (t *Table) parseTableName() {
	// optimization but this is used so many times that it's worth it given it uses reflection
	t.tableName = getStructName(t.Struct)
}

func (t *Table) validateAndParseFields() error {
	fields, err := parseFields(t.Struct)
	if err != nil {
		return fmt.Errorf("error getting fields for %s: %s", t.tableName, err)
	}
	t.fields = fields

	if !t.hasField(idField) {
		return fmt.Errorf("Table: %s Err: struct must have a json field named %q", t.tableName, idField)
	}

	for _, f := range t.SearchFields {
		if !t.hasField(f) {
			return fmt.Errorf("Table: %s Err: unknown search field %s", t.tableName, f)
		}
	}
	for _, f := range t.SortFields {
		if !t.hasField(f) {
			return fmt.Errorf("Table: %s Err: unknown sort field %s", t.tableName, f)
		}
	}
	return nil
}

func (t *Table) validateKey() error {
	if t.Key == "" {
		return fmt.Errorf("Table: %s Err: Key must be set", t.tableName)
	}

	if len(t.KeyFields) == 0 {
		t.KeyFields = []string{idField}
	}

	if strings.Count(t.Key, "%v") != len(t.KeyFields) {
		return fmt.Errorf("Table: %s Err: Key %s must have one %%v per KeyFields entry", t.tableName, t.Key)
	}

	hasID := false
	for _, f := range t.KeyFields {
		if !t.hasField(f) {
			return fmt.Errorf("Table: %s Err: unknown key field %s", t.tableName, f)
		}
		if f == idField {
			hasID = true
		}
	}
	if !hasID {
		return fmt.Errorf("Table: %s Err: KeyFields must include %s", t.tableName, idField)
	}

	if t.keyMoves() {
		if t.LookupKey == "" {
			return fmt.Errorf("Table: %s Err: LookupKey must be set when Key embeds more than the id", t.tableName)
		}
		if !t.MembersAreKeys {
			return fmt.Errorf("Table: %s Err: MembersAreKeys must be set when Key embeds more than the id", t.tableName)
		}
	}
	return nil
}

func (t *Table) validateAndParseIndexes() error {
	t.indexes = make(map[string]*Index, len(t.Indexes))

	for _, idx := range t.Indexes {
		if idx.Name == "" {
			return fmt.Errorf("Table: %s Err: index name is required", t.tableName)
		}
		if _, ok := t.indexes[idx.Name]; ok {
			return fmt.Errorf("Table: %s Err: index %s defined twice", t.tableName, idx.Name)
		}
		if strings.Count(idx.Key, "%v") != 1 {
			return fmt.Errorf("Table: %s Err: index %s key must contain exactly one %%v", t.tableName, idx.Name)
		}
		if !t.hasField(idx.Field) {
			return fmt.Errorf("Table: %s Err: index %s uses unknown field %s", t.tableName, idx.Name, idx.Field)
		}
		t.indexes[idx.Name] = idx
	}
	return nil
}

func (t *Table) hasField(name string) bool {
	for _, f := range t.fields {
		if f.name == name {
			return true
		}
	}
	return false
}

func (o *SelectOptions) validate(t *Table) error {
	if o.Offset < 0 {
		return errors.New("offset cannot be negative")
	}

	if o.Index == "" {
		if t.AllKey == "" {
			return fmt.Errorf("%s has no AllKey; an index must be given", t.tableName)
		}
	} else {
		if _, ok := t.indexes[o.Index]; !ok {
			return fmt.Errorf("%s has no index %s", t.tableName, o.Index)
		}
		if len(o.Values) == 0 {
			return fmt.Errorf("index %s needs at least one value", o.Index)
		}
	}

	for field := range o.Where {
		if !t.hasField(field) {
			return fmt.Errorf("%s has no field %s", t.tableName, field)
		}
	}
	return nil
}
