package agora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataHandlerNamespaceIsolation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	data := NewDataHandler(testGuildID, store, testLogger(t))

	data.Set("feature-a", "x", IntValue(1))

	_, ok := data.Get("feature-b", "x")
	assert.False(t, ok, "value must not leak across namespaces")

	n, ok := data.Int("feature-a", "x")
	require.True(t, ok)
	assert.Equal(t, int64(1), n)
}

func TestDataHandlerSetMarksDirty(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	data := NewDataHandler(testGuildID, store, testLogger(t))

	data.Set("ns", "key", StringValue("v"))

	stats := store.Stats()
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Dirty)

	// setting the same value again still marks dirty after a flush
	require.NoError(t, store.Flush(testGuildID))
	data.Set("ns", "key", StringValue("v"))
	stats = store.Stats()
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Dirty)
}

func TestDataHandlerTypedHelpers(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	data := NewDataHandler(testGuildID, store, testLogger(t))

	data.Set("ns", "count", IntValue(3))
	data.Set("ns", "name", StringValue("agora"))
	data.Set("ns", "on", BoolValue(true))
	data.Set("ns", "members", StringListValue([]string{"a", "b"}))
	data.Set("ns", "scores", IntMapValue(map[string]int64{"a": 1}))

	assert.Equal(t, int64(3), data.IntOr("ns", "count", 0))
	assert.Equal(t, int64(9), data.IntOr("ns", "missing", 9))
	assert.Equal(t, "agora", data.StringOr("ns", "name", ""))
	assert.Equal(t, "def", data.StringOr("ns", "missing", "def"))
	assert.True(t, data.BoolOr("ns", "on", false))
	assert.False(t, data.BoolOr("ns", "missing", false))
	assert.Equal(t, []string{"a", "b"}, data.StringSlice("ns", "members"))
	assert.Nil(t, data.StringSlice("ns", "missing"))
	assert.Equal(t, map[string]int64{"a": 1}, data.IntMap("ns", "scores"))
	assert.Empty(t, data.IntMap("ns", "missing"))

	// shape mismatches fall back rather than erroring
	assert.Equal(t, int64(7), data.IntOr("ns", "name", 7))
}

func TestDataHandlerDeleteNamespace(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	data := NewDataHandler(testGuildID, store, testLogger(t))

	data.Set("ns-a", "x", IntValue(1))
	data.Set("ns-b", "y", IntValue(2))
	require.NoError(t, store.Flush(testGuildID))

	data.DeleteNamespace("ns-a")

	_, ok := data.Get("ns-a", "x")
	assert.False(t, ok)
	n, ok := data.Int("ns-b", "y")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)

	// deletion dirties the document
	stats := store.Stats()
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Dirty)

	// deleting an absent namespace doesn't
	require.NoError(t, store.Flush(testGuildID))
	data.DeleteNamespace("never-existed")
	stats = store.Stats()
	require.Len(t, stats, 1)
	assert.False(t, stats[0].Dirty)
}

func TestDataHandlerNumericWidthRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	data := NewDataHandler(testGuildID, store, testLogger(t))

	// a float-shaped whole number (as gson-era files stored ints)
	data.Set("ns", "amount", FloatValue(2.0))
	n, ok := data.Int("ns", "amount")
	require.True(t, ok)
	assert.Equal(t, int64(2), n)
}
