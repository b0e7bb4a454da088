// Package table implements the actor that owns one table's on-disk log and
// in-memory index. Exactly one goroutine runs a Table's Run loop; every
// mutation and lookup is serialized by draining a single inbound channel of
// core.UnitOfWork, the Go-idiomatic substitute for the "one task/actor per
// table" invariant.
package table

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kvsd/kvsd/internal/changefeed"
	"github.com/kvsd/kvsd/internal/core"
	"github.com/kvsd/kvsd/internal/entry"
	"github.com/kvsd/kvsd/internal/hotkeys"
	"github.com/kvsd/kvsd/internal/index"
	"github.com/kvsd/kvsd/internal/kv"
	"github.com/kvsd/kvsd/internal/kvserr"
)

// InboundBuffer is the default capacity of a Table's inbound UnitOfWork
// channel.
const InboundBuffer = 256

// Table owns one table's file handle and index, and runs a single-goroutine
// actor loop over Inbound.
type Table struct {
	Namespace string
	Name      string
	Inbound   chan *core.UnitOfWork

	file *os.File
	idx  *index.Index
	log  *slog.Logger

	feed    changefeed.Publisher
	tracker *hotkeys.Tracker

	end int64 // current append offset (end of file)
}

// Open opens (creating if necessary) the file at path, rebuilds the index
// by scanning it from offset 0, and returns a ready Table. feed and tracker
// are both optional (nil disables the respective concern).
func Open(namespace, name, path string, feed changefeed.Publisher, tracker *hotkeys.Tracker, log *slog.Logger) (*Table, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("table: open %s: %w", path, err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("table: seek to start: %w", err)
	}
	idx, err := index.FromReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("table: rebuild index: %w", err)
	}

	end, err := f.Seek(0, os.SEEK_END)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("table: seek to end: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Table{
		Namespace: namespace,
		Name:      name,
		Inbound:   make(chan *core.UnitOfWork, InboundBuffer),
		file:      f,
		idx:       idx,
		log:       log,
		feed:      feed,
		tracker:   tracker,
		end:       end,
	}, nil
}

// Close closes the underlying file. Run must have already returned.
func (t *Table) Close() error {
	return t.file.Close()
}

// Run drains Inbound until ctx is cancelled and Inbound is empty, dispatching
// each UnitOfWork to Set/Get/Delete by its Request type. Any other request
// kind reaching a table actor is a dispatcher bug.
func (t *Table) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case uow := <-t.Inbound:
			t.handle(uow)
		case <-ctx.Done():
			// Drain whatever is already queued before exiting, so a
			// shutdown never silently drops an in-flight request.
			for {
				select {
				case uow := <-t.Inbound:
					t.handle(uow)
				default:
					return
				}
			}
		}
	}
}

func (t *Table) handle(uow *core.UnitOfWork) {
	switch req := uow.Request.(type) {
	case core.SetRequest:
		t.handleSet(uow, req)
	case core.GetRequest:
		t.handleGet(uow, req)
	case core.DeleteRequest:
		t.handleDelete(uow, req)
	default:
		uow.Reply(core.Reply{Err: &kvserr.InternalError{Reason: "table actor received a non-table request"}})
	}
}

func (t *Table) handleSet(uow *core.UnitOfWork, req core.SetRequest) {
	prior, err := t.readPrior(req.Key.String())
	if err != nil {
		t.log.Error("table set: read prior failed", "table", t.Name, "key", req.Key.String(), "error", err)
		uow.Reply(core.Reply{Err: err})
		return
	}

	e := entry.New(req.Key.String(), req.Value.Bytes())
	n, err := t.append(e)
	if err != nil {
		t.log.Error("table set: append failed", "table", t.Name, "key", req.Key.String(), "error", err)
		uow.Reply(core.Reply{Err: err})
		return
	}

	t.idx.Add(req.Key.String(), t.end)
	t.end += int64(n)

	if t.tracker != nil {
		t.tracker.Record(t.Name, req.Key.String())
	}
	if t.feed != nil {
		t.feed.Publish(changefeed.Event{
			Namespace: t.Namespace, Table: t.Name, Key: req.Key.String(),
			Op: changefeed.OpSet, Timestamp: time.Now(),
		})
	}

	uow.Reply(core.Reply{Value: prior})
}

func (t *Table) handleGet(uow *core.UnitOfWork, req core.GetRequest) {
	val, err := t.readCurrent(req.Key.String())
	if err != nil {
		t.log.Error("table get: read failed", "table", t.Name, "key", req.Key.String(), "error", err)
		uow.Reply(core.Reply{Err: err})
		return
	}

	if t.tracker != nil {
		t.tracker.Record(t.Name, req.Key.String())
	}

	uow.Reply(core.Reply{Value: val})
}

func (t *Table) handleDelete(uow *core.UnitOfWork, req core.DeleteRequest) {
	offset, ok := t.idx.Lookup(req.Key.String())
	if !ok {
		if t.tracker != nil {
			t.tracker.Record(t.Name, req.Key.String())
		}
		uow.Reply(core.Reply{Value: kv.None()})
		return
	}

	e, err := t.decodeAt(offset)
	if err != nil {
		t.log.Error("table delete: decode failed", "table", t.Name, "key", req.Key.String(), "error", err)
		uow.Reply(core.Reply{Err: err})
		return
	}

	prevBytes := e.MarkDeleted()
	n, err := t.append(e)
	if err != nil {
		t.log.Error("table delete: append tombstone failed", "table", t.Name, "key", req.Key.String(), "error", err)
		uow.Reply(core.Reply{Err: err})
		return
	}
	t.end += int64(n)
	t.idx.Remove(req.Key.String())

	if t.tracker != nil {
		t.tracker.Record(t.Name, req.Key.String())
	}
	if t.feed != nil {
		t.feed.Publish(changefeed.Event{
			Namespace: t.Namespace, Table: t.Name, Key: req.Key.String(),
			Op: changefeed.OpDelete, Timestamp: time.Now(),
		})
	}

	prev, err := kv.NewValue(prevBytes)
	if err != nil {
		uow.Reply(core.Reply{Err: &kvserr.InternalError{Reason: "tombstoned value exceeded max value size"}})
		return
	}
	uow.Reply(core.Reply{Value: kv.Some(prev)})
}

// readPrior returns the current value for key, if any, without disturbing
// the actor's append position.
func (t *Table) readPrior(key string) (kv.OptionalValue, error) {
	return t.readCurrent(key)
}

func (t *Table) readCurrent(key string) (kv.OptionalValue, error) {
	offset, ok := t.idx.Lookup(key)
	if !ok {
		return kv.None(), nil
	}
	e, err := t.decodeAt(offset)
	if err != nil {
		return kv.OptionalValue{}, err
	}
	v, err := kv.NewValue(e.Value)
	if err != nil {
		return kv.OptionalValue{}, &kvserr.InternalError{Reason: "stored value exceeded max value size"}
	}
	return kv.Some(v), nil
}

// decodeAt seeks to offset, decodes one entry, then restores the file's
// append position so a concurrent-looking Get never disturbs Set's
// append-at-end invariant.
func (t *Table) decodeAt(offset int64) (*entry.Entry, error) {
	if _, err := t.file.Seek(offset, 0); err != nil {
		return nil, fmt.Errorf("table: seek to offset %d: %w", offset, err)
	}
	_, e, err := entry.Decode(t.file)
	if err != nil {
		return nil, fmt.Errorf("table: decode at offset %d: %w", offset, err)
	}
	if _, err := t.file.Seek(t.end, 0); err != nil {
		return nil, fmt.Errorf("table: restore append position: %w", err)
	}
	return e, nil
}

// append seeks to the current end-of-file append position, encodes e, and
// flushes. No fsync is issued — see SPEC_FULL.md, Open Question 1.
func (t *Table) append(e *entry.Entry) (int, error) {
	if _, err := t.file.Seek(t.end, 0); err != nil {
		return 0, fmt.Errorf("table: seek to end %d: %w", t.end, err)
	}
	w := bufio.NewWriter(t.file)
	n, err := entry.Encode(e, w)
	if err != nil {
		return 0, fmt.Errorf("table: encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("table: flush: %w", err)
	}
	return n, nil
}

// Len reports the number of live keys currently in the index. Diagnostics
// only.
func (t *Table) Len() int { return t.idx.Len() }
