package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func setupStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s, err := New(&Config{
		Redis: client,
		Now:   func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return s, mr
}

func members(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()
	if !mr.Exists(key) {
		return nil
	}
	m, err := mr.Members(key)
	require.NoError(t, err)
	return m
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-05-01", want: "2024-05-01"},
		{in: "2024-05-01T23:30:00Z", want: "2024-05-01"},
		{in: "2024-05-01T23:30:00-02:00", want: "2024-05-02"},
		{in: "05/01/2024", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, uniqueStrings([]string{"b", "", "a", "b"}))
	assert.Equal(t, []string{}, uniqueStrings(nil))
}
