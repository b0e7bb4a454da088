// Package hotkeys tracks per-key access frequency so the Logger middleware
// can periodically report the busiest keys on a table. It is pure
// observability: nothing in the storage engine or wire protocol depends on
// it. Adapted from the teacher's internal/hotkeys/hotkeys.go — kept the
// counter map and container/heap top-N selection, dropped the decay-loop
// goroutine and time-window knob since this spec has no TTL/expiry concept
// for counters to decay against.
package hotkeys

import (
	"container/heap"
	"sync"
)

// Entry is one key and its access count.
type Entry struct {
	Key   string
	Count int64
}

// Tracker counts accesses per key, per table, and reports the top-N
// hottest keys for a table. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	topN   int
	tables map[string]map[string]int64
}

// New returns a Tracker reporting the topN hottest keys per table.
func New(topN int) *Tracker {
	if topN <= 0 {
		topN = 5
	}
	return &Tracker{topN: topN, tables: make(map[string]map[string]int64)}
}

// Record records one access to key on the given table.
func (t *Tracker) Record(table, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, ok := t.tables[table]
	if !ok {
		counts = make(map[string]int64)
		t.tables[table] = counts
	}
	counts[key]++
}

// Top returns the current top-N hottest keys for table, descending by
// count.
func (t *Tracker) Top(table string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts, ok := t.tables[table]
	if !ok {
		return nil
	}

	h := &entryHeap{}
	heap.Init(h)
	for k, c := range counts {
		heap.Push(h, Entry{Key: k, Count: c})
		if h.Len() > t.topN {
			heap.Pop(h)
		}
	}

	result := make([]Entry, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(Entry)
	}
	return result
}

// entryHeap is a min-heap on Count, used to retain only the top-N entries
// while scanning the full counts map.
type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].Count < h[j].Count }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
