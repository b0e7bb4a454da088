// Package entry implements the on-disk record format for a kvsd table: a
// fixed 29-byte big-endian header (key length, value length, timestamp,
// state, CRC32) followed by the key bytes and value bytes.
//
// This implementation verifies the CRC32 on every Decode and rejects a
// mismatch with an EntryDecodeError — the stricter of the two behaviors the
// spec's source material permits (see SPEC_FULL.md, Open Question 3).
// Writers never fsync; flushing a buffered writer is the caller's job (see
// SPEC_FULL.md, Open Question 1).
package entry

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kvsd/kvsd/internal/kvserr"
)

// State is the on-disk record state byte.
type State uint8

const (
	StateInvalid State = 0
	StateActive  State = 1
	StateDeleted State = 2
)

// HeaderBytes is the fixed size, in bytes, of an encoded Entry header:
// key_bytes(8) + value_bytes(8) + timestamp_ms(8) + state(1) + crc32(4).
const HeaderBytes = 8 + 8 + 8 + 1 + 4

// Entry is one on-disk record.
type Entry struct {
	KeyBytes     uint64
	ValueBytes   uint64
	TimestampMs  int64
	State        State
	CRC32        uint32
	Key          string
	Value        []byte
}

// New builds an Active entry for key/value, stamped with the current wall
// clock, with CRC32 computed over the final header+body.
func New(key string, value []byte) *Entry {
	if len(value) == 0 {
		value = nil
	}
	e := &Entry{
		KeyBytes:    uint64(len(key)),
		ValueBytes:  uint64(len(value)),
		TimestampMs: nowMillis(),
		State:       StateActive,
		Key:         key,
		Value:       value,
	}
	e.CRC32 = e.computeCRC()
	return e
}

// MarkDeleted resets the entry to an empty-bodied tombstone, re-stamps its
// timestamp, recomputes its CRC, and returns the previous value bytes.
func (e *Entry) MarkDeleted() []byte {
	prev := e.Value
	e.Value = nil
	e.ValueBytes = 0
	e.TimestampMs = nowMillis()
	e.State = StateDeleted
	e.CRC32 = e.computeCRC()
	return prev
}

// EncodedLen returns the number of bytes Encode will write for e.
func (e *Entry) EncodedLen() int {
	return HeaderBytes + len(e.Key) + len(e.Value)
}

// TakeKey returns the entry's key, consuming it (mirrors the source's
// destructive accessor used while building an Index).
func (e *Entry) TakeKey() string {
	k := e.Key
	e.Key = ""
	return k
}

// TakeKeyValue returns the entry's key and value, consuming it.
func (e *Entry) TakeKeyValue() (string, []byte) {
	k, v := e.Key, e.Value
	e.Key, e.Value = "", nil
	return k, v
}

// bufPool pools header-sized scratch buffers for Encode, avoiding an
// allocation per write on the hot path — the same pattern the teacher's WAL
// package uses for its record buffers.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, HeaderBytes)
		return &b
	},
}

// Encode writes e's big-endian header followed by key bytes then value
// bytes to w, and returns the number of bytes written. Flushing (if w is
// buffered) is left to the caller.
func Encode(e *Entry, w io.Writer) (int, error) {
	bp := bufPool.Get().(*[]byte)
	buf := *bp
	defer func() {
		*bp = buf
		bufPool.Put(bp)
	}()

	binary.BigEndian.PutUint64(buf[0:8], e.KeyBytes)
	binary.BigEndian.PutUint64(buf[8:16], e.ValueBytes)
	binary.BigEndian.PutUint64(buf[16:24], uint64(e.TimestampMs))
	buf[24] = byte(e.State)
	binary.BigEndian.PutUint32(buf[25:29], e.CRC32)

	if _, err := w.Write(buf); err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, e.Key); err != nil {
		return HeaderBytes, err
	}
	if len(e.Value) > 0 {
		if _, err := w.Write(e.Value); err != nil {
			return HeaderBytes + len(e.Key), err
		}
	}
	return HeaderBytes + len(e.Key) + len(e.Value), nil
}

// Decode reads one Entry from r. It returns io.EOF for a clean
// end-of-stream (no bytes read at all) and an *kvserr.EntryDecodeError for
// malformed bytes — including a truncated header/body, an invalid UTF-8
// key, an unrecognized state byte, or a CRC32 mismatch.
func Decode(r io.Reader) (int, *Entry, error) {
	header := make([]byte, HeaderBytes)
	n, err := io.ReadFull(r, header)
	if err != nil {
		if n == 0 && err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, &kvserr.EntryDecodeError{Reason: "truncated header: " + err.Error()}
	}

	keyBytes := binary.BigEndian.Uint64(header[0:8])
	valueBytes := binary.BigEndian.Uint64(header[8:16])
	timestampMs := int64(binary.BigEndian.Uint64(header[16:24]))
	state := State(header[24])
	crc := binary.BigEndian.Uint32(header[25:29])

	if state != StateActive && state != StateDeleted {
		return 0, nil, &kvserr.EntryDecodeError{Reason: "unrecognized state byte"}
	}

	bodyLen := keyBytes + valueBytes
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, &kvserr.EntryDecodeError{Reason: "truncated body: " + err.Error()}
	}

	keyRaw, valueRaw := body[:keyBytes], body[keyBytes:]
	if !utf8.Valid(keyRaw) {
		return 0, nil, &kvserr.EntryDecodeError{Reason: "key is not valid UTF-8"}
	}

	var value []byte
	if len(valueRaw) > 0 {
		value = valueRaw
	}

	e := &Entry{
		KeyBytes:    keyBytes,
		ValueBytes:  valueBytes,
		TimestampMs: timestampMs,
		State:       state,
		CRC32:       crc,
		Key:         string(keyRaw),
		Value:       value,
	}

	if e.computeCRC() != crc {
		return 0, nil, &kvserr.EntryDecodeError{Reason: "crc32 mismatch"}
	}

	return HeaderBytes + int(bodyLen), e, nil
}

// computeCRC computes the CRC32 over key_bytes‖value_bytes‖timestamp_ms‖
// state‖key‖value, all big-endian — the exact field order
// _examples/original_source/src/core/table/entry.rs hashes over.
func (e *Entry) computeCRC() uint32 {
	h := crc32.NewIEEE()
	var tmp [25]byte
	binary.BigEndian.PutUint64(tmp[0:8], e.KeyBytes)
	binary.BigEndian.PutUint64(tmp[8:16], e.ValueBytes)
	binary.BigEndian.PutUint64(tmp[16:24], uint64(e.TimestampMs))
	tmp[24] = byte(e.State)
	_, _ = h.Write(tmp[:])
	_, _ = io.WriteString(h, e.Key)
	if len(e.Value) > 0 {
		_, _ = h.Write(e.Value)
	}
	return h.Sum32()
}

func nowMillis() int64 { return time.Now().UnixMilli() }
