// Package admin implements read-only table inspection tooling: a dump of
// every live key and its value length, in stable sorted order. It is the
// administrative "dump tooling" contract spec.md §1 lists as explicitly out
// of core scope for the wire protocol itself — sketched here as a pure
// function over an already-open file, with no server-side wiring. Grounded
// on the teacher's internal/snapshot/snapshot.go (list-then-read shape) and
// _examples/original_source/src/core/table/dump.rs / src/cli/admin/table/
// dump.rs for the "read the index, then read each live entry" contract.
package admin

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/kvsd/kvsd/internal/entry"
	"github.com/kvsd/kvsd/internal/index"
)

// DumpTable rebuilds an Index by scanning r from its start, then for each
// live key, in stable sorted order, seeks to its offset, decodes the
// entry, and writes one "key\tlen(value)\n" line to w.
func DumpTable(r io.ReadSeeker, w io.Writer) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("admin: dump: seek to start: %w", err)
	}
	idx, err := index.FromReader(bufio.NewReader(r))
	if err != nil {
		return fmt.Errorf("admin: dump: rebuild index: %w", err)
	}

	keys := idx.Keys()
	sort.Strings(keys)

	for _, key := range keys {
		offset, ok := idx.Lookup(key)
		if !ok {
			continue // removed between Keys() and Lookup(); nothing to dump
		}
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("admin: dump: seek to offset %d: %w", offset, err)
		}
		_, e, err := entry.Decode(r)
		if err != nil {
			return fmt.Errorf("admin: dump: decode at offset %d: %w", offset, err)
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\n", key, len(e.Value)); err != nil {
			return fmt.Errorf("admin: dump: write: %w", err)
		}
	}

	return nil
}
