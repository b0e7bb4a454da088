// Package message implements the seven kvsd wire message types on top of
// package frame: Ping, Authenticate, Success, Fail, Set, Get, Delete. This
// is the final, canonical message set from spec.md §4.5 — it supersedes
// the two-message draft in
// _examples/original_source/src/protocol/message/message.rs.
package message

import (
	"time"

	"github.com/kvsd/kvsd/internal/frame"
	"github.com/kvsd/kvsd/internal/kvserr"
)

// Type codes, per spec.md §4.5.
const (
	TypePing         byte = 1
	TypeAuthenticate byte = 2
	TypeSuccess      byte = 3
	TypeFail         byte = 4
	TypeSet          byte = 5
	TypeGet          byte = 6
	TypeDelete       byte = 7
)

// Fail codes, per spec.md §4.5.
const (
	FailCodeUndefined         = "UNDEFINED"
	FailCodeUnauthenticated   = "UNAUTHENTICATED"
	FailCodeUnexpectedMessage = "UNEXPECTED_MESSAGE"
)

// Message is implemented by every wire message type.
type Message interface {
	Type() byte
	toFrames() *frame.MessageFrames
}

// Encode returns the wire encoding of m.
func Encode(m Message) []byte {
	return frame.Encode(m.toFrames(), nil)
}

// Decode consumes one Message from the start of buf and returns it plus
// the number of bytes consumed. It returns kvserr.ErrIncomplete if buf does
// not yet hold a complete MessageFrames.
func Decode(buf []byte) (int, Message, error) {
	n, mf, err := frame.Parse(buf)
	if err != nil {
		return 0, nil, err
	}
	m, err := fromFrames(mf)
	if err != nil {
		return 0, nil, err
	}
	return n, m, nil
}

// CheckComplete reports whether buf holds a complete Message, without
// decoding it.
func CheckComplete(buf []byte) (int, error) {
	return frame.CheckParse(buf)
}

func fromFrames(mf *frame.MessageFrames) (Message, error) {
	switch mf.MessageType() {
	case TypePing:
		return pingFromFrames(mf)
	case TypeAuthenticate:
		return authenticateFromFrames(mf)
	case TypeSuccess:
		return successFromFrames(mf)
	case TypeFail:
		return failFromFrames(mf)
	case TypeSet:
		return setFromFrames(mf)
	case TypeGet:
		return getFromFrames(mf)
	case TypeDelete:
		return deleteFromFrames(mf)
	default:
		return nil, &kvserr.UnknownMessageTypeError{Code: mf.MessageType()}
	}
}

func timeOrNullFrame(b *frame.Builder, t time.Time, ok bool) {
	if !ok {
		b.PushNull()
		return
	}
	b.PushTime(t.UTC().Format(time.RFC3339Nano))
}

func parseTimeOrNull(f frame.Frame) (time.Time, bool, error) {
	switch f.Kind {
	case frame.KindNull:
		return time.Time{}, false, nil
	case frame.KindTime:
		t, err := time.Parse(time.RFC3339Nano, f.Str)
		if err != nil {
			return time.Time{}, false, &kvserr.NetworkFramingError{Reason: "invalid RFC3339 time: " + err.Error()}
		}
		return t, true, nil
	default:
		return time.Time{}, false, &kvserr.NetworkFramingError{Reason: "expected time or null frame"}
	}
}

func bytesOrNullFrame(b *frame.Builder, v []byte, ok bool) {
	if !ok {
		b.PushNull()
		return
	}
	b.PushBytes(v)
}

func parseBytesOrNull(f frame.Frame) ([]byte, bool, error) {
	switch f.Kind {
	case frame.KindNull:
		return nil, false, nil
	case frame.KindBytes:
		return f.Bytes, true, nil
	default:
		return nil, false, &kvserr.NetworkFramingError{Reason: "expected bytes or null frame"}
	}
}

func expectString(f frame.Frame) (string, error) {
	if f.Kind != frame.KindString {
		return "", &kvserr.NetworkFramingError{Reason: "expected string frame"}
	}
	return f.Str, nil
}

func expectBytes(f frame.Frame) ([]byte, error) {
	if f.Kind != frame.KindBytes {
		return nil, &kvserr.NetworkFramingError{Reason: "expected bytes frame"}
	}
	return f.Bytes, nil
}

func expectPayloadLen(mf *frame.MessageFrames, n int) error {
	if len(mf.Payload()) != n {
		return &kvserr.NetworkFramingError{Reason: "unexpected payload frame count"}
	}
	return nil
}
