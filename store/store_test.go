package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowpost/slowpost/store"
)

func TestMergeIsShallow(t *testing.T) {
	base := store.Data{"a": 1, "b": "keep", "nested": map[string]any{"x": 1}}
	merged := store.Merge(base, store.Data{"a": 2, "nested": map[string]any{"y": 2}})

	assert.Equal(t, 2, merged["a"])
	assert.Equal(t, "keep", merged["b"])
	assert.Equal(t, map[string]any{"y": 2}, merged["nested"], "nested objects are replaced, not merged")

	// The input maps are untouched.
	assert.Equal(t, 1, base["a"])
}

func TestCloneIsIndependent(t *testing.T) {
	orig := store.Data{"a": 1}
	clone := store.Clone(orig)
	clone["a"] = 2
	assert.Equal(t, 1, orig["a"])
	assert.Nil(t, store.Clone(nil))
}

func TestCodecRoundTrip(t *testing.T) {
	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	data, err := store.Encode(record{Name: "alice", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "alice", data["name"])

	var out record
	require.NoError(t, store.Decode(data, &out))
	assert.Equal(t, record{Name: "alice", Count: 3}, out)
}
