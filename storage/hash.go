package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	zeroTimeText = time.Time{}.Format(time.RFC3339Nano)
)

// fieldInfo is one json field of a stored struct
type fieldInfo struct {
	name string

	// quoted fields are kept in redis as bare strings (strings, timestamps); everything else
	// (numbers, bools, slices, maps) is kept as its json text e.g. tags -> `["a","b"]`
	quoted bool
}

func getStructName(myvar interface{}) string {
	if t := reflect.TypeOf(myvar); t.Kind() == reflect.Ptr {
		return t.Elem().Name()
	} else {
		return t.Name()
	}
}

// getValue
func getValue(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func parseFields(s interface{}) ([]fieldInfo, error) {
	t := getValue(reflect.TypeOf(s))
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct but got %s", t.Kind())
	}

	fields := []fieldInfo{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue // unexported
		}

		name := strings.Split(field.Tag.Get("json"), ",")[0] // in case there are options like omitempty
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		ft := getValue(field.Type)
		fields = append(fields, fieldInfo{
			name:   name,
			quoted: ft.Kind() == reflect.String || ft == timeType,
		})
	}
	return fields, nil
}

// toHash flattens obj into redis hash fields. Fields that are empty are returned in del so they can be HDEL'd
func (t *Table) toHash(obj interface{}) (map[string]string, []string, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, nil, err
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, nil, err
	}

	set := make(map[string]string, len(t.fields))
	del := []string{}
	for _, f := range t.fields {
		v, ok := raw[f.name]
		if !ok || isEmptyJSON(v) {
			del = append(del, f.name)
			continue
		}

		if !f.quoted {
			set[f.name] = string(v)
			continue
		}

		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		if s == "" || s == zeroTimeText {
			del = append(del, f.name)
			continue
		}
		set[f.name] = s
	}

	return set, del, nil
}

// fromHash is the reverse of toHash; unknown hash fields are ignored
func (t *Table) fromHash(hash map[string]string, obj interface{}) error {
	raw := make(map[string]json.RawMessage, len(hash))
	for _, f := range t.fields {
		v, ok := hash[f.name]
		if !ok {
			continue
		}

		if f.quoted {
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			raw[f.name] = b
			continue
		}

		if !json.Valid([]byte(v)) {
			return fmt.Errorf("field %s: stored value %q is not valid json", f.name, v)
		}
		raw[f.name] = json.RawMessage(v)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, obj)
}

// scanToDest decodes the hashes and appends them to dest, which must be a pointer to a slice
func (t *Table) scanToDest(hashes []map[string]string, dest interface{}) error {
	value := reflect.ValueOf(dest)

	// need dest to be a pointer to a slice
	if value.Kind() != reflect.Ptr {
		return errors.New("dest must be a pointer to a slice")
	}
	if value.IsNil() {
		return errors.New("dest cannot be a nil pointer")
	}

	slice := getValue(value.Type())
	if slice.Kind() != reflect.Slice {
		return fmt.Errorf("expected slice but got %s", slice.Kind())
	}

	direct := reflect.Indirect(value)
	isPointer := slice.Elem().Kind() == reflect.Ptr
	elemType := getValue(slice.Elem())

	// always hand back a non-nil slice so it encodes as [] rather than null
	if direct.IsNil() {
		direct.Set(reflect.MakeSlice(slice, 0, len(hashes)))
	}

	for _, hash := range hashes {
		row := reflect.New(elemType)
		if err := t.fromHash(hash, row.Interface()); err != nil {
			return err
		}

		// append
		if isPointer {
			direct.Set(reflect.Append(direct, row))
		} else {
			direct.Set(reflect.Append(direct, row.Elem()))
		}
	}

	return nil
}

func isEmptyJSON(v json.RawMessage) bool {
	switch strings.TrimSpace(string(v)) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}
