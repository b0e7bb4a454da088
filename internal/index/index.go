// Package index implements the in-memory key → offset mapping for a kvsd
// table, rebuilt by scanning the table's log from offset 0 on open.
package index

import (
	"io"
	"sort"

	"github.com/kvsd/kvsd/internal/entry"
)

// Index maps a key to the byte offset of its latest Active entry in the
// table log. A key absent from the map is treated as not present. Index
// itself is not safe for concurrent use — it is owned exclusively by one
// table actor.
type Index struct {
	offsets map[string]int64
}

// New returns an empty Index.
func New() *Index {
	return &Index{offsets: make(map[string]int64)}
}

// FromReader rebuilds an Index by decoding entries from r starting at its
// current position (offset 0 of the table log), tracking a running cursor.
// Active entries set key → offset; Deleted entries remove the key. It
// terminates cleanly on io.EOF.
func FromReader(r io.Reader) (*Index, error) {
	idx := New()
	var pos int64
	for {
		n, e, err := entry.Decode(r)
		if err == io.EOF {
			return idx, nil
		}
		if err != nil {
			return nil, err
		}
		switch e.State {
		case entry.StateActive:
			idx.offsets[e.Key] = pos
		case entry.StateDeleted:
			delete(idx.offsets, e.Key)
		}
		pos += int64(n)
	}
}

// Lookup returns the offset for key and whether it is present.
func (idx *Index) Lookup(key string) (int64, bool) {
	off, ok := idx.offsets[key]
	return off, ok
}

// Add records offset as the latest offset for key, returning the prior
// offset if one existed.
func (idx *Index) Add(key string, offset int64) (int64, bool) {
	prev, had := idx.offsets[key]
	idx.offsets[key] = offset
	return prev, had
}

// Remove deletes key from the index, returning the prior offset if one
// existed.
func (idx *Index) Remove(key string) (int64, bool) {
	prev, had := idx.offsets[key]
	delete(idx.offsets, key)
	return prev, had
}

// Len returns the number of live keys.
func (idx *Index) Len() int { return len(idx.offsets) }

// Keys returns a sorted snapshot copy of the live keys. Used only by
// diagnostics/dump tooling, never on the hot path.
func (idx *Index) Keys() []string {
	keys := make([]string, 0, len(idx.offsets))
	for k := range idx.offsets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
