package admin

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsd/kvsd/internal/entry"
)

func writeEntries(t *testing.T, entries ...*entry.Entry) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.kvs")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	for _, e := range entries {
		_, err := entry.Encode(e, f)
		require.NoError(t, err)
	}
	return f
}

func TestDumpTable_ListsLiveKeysSortedWithValueLengths(t *testing.T) {
	e1 := entry.New("bravo", []byte("hello"))
	e2 := entry.New("alpha", []byte("xy"))
	e3 := entry.New("bravo", []byte("updated-value"))

	f := writeEntries(t, e1, e2, e3)

	var out bytes.Buffer
	require.NoError(t, DumpTable(f, &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "alpha\t2", lines[0])
	assert.Equal(t, "bravo\t13", lines[1])
}

func TestDumpTable_OmitsDeletedKeys(t *testing.T) {
	e1 := entry.New("k1", []byte("v1"))
	e2 := entry.New("k1", []byte("v1"))
	e2.MarkDeleted()

	f := writeEntries(t, e1, e2)

	var out bytes.Buffer
	require.NoError(t, DumpTable(f, &out))
	assert.Empty(t, out.String())
}

func TestDumpTable_EmptyFileProducesNoOutput(t *testing.T) {
	f := writeEntries(t)
	var out bytes.Buffer
	require.NoError(t, DumpTable(f, &out))
	assert.Empty(t, out.String())
}
