package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_New(t *testing.T) {
	g := NewGenerator()

	id := g.New()
	assert.Len(t, id, 26)
	assert.True(t, IsValid(id))
}

func TestGenerator_Monotonic(t *testing.T) {
	g := NewGenerator()

	ids := g.NewN(1000)

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000, "ids must be unique")

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, ids, "ids must be lexicographically ordered in generation order")
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"generated", New(), true},
		{"empty", "", false},
		{"too short", "01ABC", false},
		{"invalid chars", "0000000000000000000000000U", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.in))
		})
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := New()
	after := time.Now().Add(time.Second)

	ts, err := Timestamp(id)
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "embedded timestamp should be close to now")

	_, err = Timestamp("not-a-ulid")
	assert.Error(t, err)
}
