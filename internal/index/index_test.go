package index

import (
	"bytes"
	"testing"

	"github.com/kvsd/kvsd/internal/entry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromReader_LastWriterWinsAndDeletedRemoves(t *testing.T) {
	var buf bytes.Buffer

	e1 := entry.New("key1", []byte("value1"))
	_, err := entry.Encode(e1, &buf)
	require.NoError(t, err)

	e2 := entry.New("key2", []byte("value2"))
	_, err = entry.Encode(e2, &buf)
	require.NoError(t, err)

	e1v2 := entry.New("key1", []byte("value1-v2"))
	_, err = entry.Encode(e1v2, &buf)
	require.NoError(t, err)

	e2del := entry.New("key2", []byte("value2"))
	e2del.MarkDeleted()
	_, err = entry.Encode(e2del, &buf)
	require.NoError(t, err)

	raw := buf.Bytes()
	idx, err := FromReader(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())

	offKey1, ok := idx.Lookup("key1")
	require.True(t, ok)

	_, decoded, err := entry.Decode(bytes.NewReader(raw[offKey1:]))
	require.NoError(t, err)
	assert.Equal(t, []byte("value1-v2"), decoded.Value)

	_, ok = idx.Lookup("key2")
	assert.False(t, ok)
}

func TestAddRemoveLookup(t *testing.T) {
	idx := New()

	_, had := idx.Add("a", 10)
	assert.False(t, had)

	prev, had := idx.Add("a", 20)
	assert.True(t, had)
	assert.Equal(t, int64(10), prev)

	off, ok := idx.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, int64(20), off)

	prev, had = idx.Remove("a")
	assert.True(t, had)
	assert.Equal(t, int64(20), prev)

	_, ok = idx.Lookup("a")
	assert.False(t, ok)
}

func TestKeys_SortedSnapshot(t *testing.T) {
	idx := New()
	idx.Add("b", 1)
	idx.Add("a", 2)
	idx.Add("c", 3)

	assert.Equal(t, []string{"a", "b", "c"}, idx.Keys())
}
