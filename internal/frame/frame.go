// Package frame implements the kvsd wire framing: a MessageFrames is a
// '*'-prefixed, CRLF-terminated decimal frame count, followed by that many
// frames. The first frame is always a '#'-prefixed MessageType frame;
// remaining frames carry payload ('+' String, '$' Bytes, 'T' Time, '|'
// Null), each CRLF-delimited.
//
// This is re-expressed over a plain []byte cursor from
// _examples/original_source/src/protocol/message/frame.rs, which this
// package follows field-for-field (frame prefixes, check/parse split,
// incomplete-vs-invalid distinction) — spec.md §4.4 describes the same
// format in prose.
package frame

import (
	"bytes"
	"strconv"

	"github.com/kvsd/kvsd/internal/kvserr"
)

// Frame prefix bytes.
const (
	PrefixMessageFrames byte = '*'
	PrefixMessageType   byte = '#'
	PrefixString        byte = '+'
	PrefixBytes         byte = '$'
	PrefixTime          byte = 'T'
	PrefixNull          byte = '|'
)

// Delimiter is the two-byte frame/line terminator.
var Delimiter = []byte{'\r', '\n'}

// Kind identifies which payload frame variant a Frame holds.
type Kind byte

const (
	KindMessageType Kind = Kind(PrefixMessageType)
	KindString      Kind = Kind(PrefixString)
	KindBytes       Kind = Kind(PrefixBytes)
	KindTime        Kind = Kind(PrefixTime)
	KindNull        Kind = Kind(PrefixNull)
)

// Frame is one decoded wire frame.
type Frame struct {
	Kind        Kind
	MessageType byte   // valid when Kind == KindMessageType
	Str         string // valid when Kind == KindString or KindTime (raw RFC3339 text)
	Bytes       []byte // valid when Kind == KindBytes
}

// MessageFrames is the framed wire representation of one Message: a
// MessageType frame followed by zero or more payload frames.
type MessageFrames struct {
	Frames []Frame
}

// MessageType returns the message type byte carried by the leading frame.
func (mf *MessageFrames) MessageType() byte { return mf.Frames[0].MessageType }

// Payload returns the frames following the leading MessageType frame.
func (mf *MessageFrames) Payload() []Frame { return mf.Frames[1:] }

// Builder incrementally constructs a MessageFrames for encoding.
type Builder struct {
	frames []Frame
}

// NewBuilder starts a MessageFrames for the given message type byte, with
// capacity for n additional payload frames.
func NewBuilder(messageType byte, n int) *Builder {
	b := &Builder{frames: make([]Frame, 0, n+1)}
	b.frames = append(b.frames, Frame{Kind: KindMessageType, MessageType: messageType})
	return b
}

// PushString appends a String payload frame.
func (b *Builder) PushString(s string) { b.frames = append(b.frames, Frame{Kind: KindString, Str: s}) }

// PushBytes appends a Bytes payload frame.
func (b *Builder) PushBytes(p []byte) { b.frames = append(b.frames, Frame{Kind: KindBytes, Bytes: p}) }

// PushTime appends a Time payload frame carrying the already-formatted
// RFC3339 string.
func (b *Builder) PushTime(rfc3339 string) {
	b.frames = append(b.frames, Frame{Kind: KindTime, Str: rfc3339})
}

// PushNull appends a Null payload frame.
func (b *Builder) PushNull() { b.frames = append(b.frames, Frame{Kind: KindNull}) }

// PushTimeOrNull appends a Time frame carrying rfc3339 if ok is true, else
// Null.
func (b *Builder) PushTimeOrNull(rfc3339 string, ok bool) {
	if ok {
		b.PushTime(rfc3339)
	} else {
		b.PushNull()
	}
}

// Build finalizes the MessageFrames.
func (b *Builder) Build() *MessageFrames { return &MessageFrames{Frames: b.frames} }

// Encode appends the wire encoding of mf to dst and returns the result.
func Encode(mf *MessageFrames, dst []byte) []byte {
	dst = append(dst, PrefixMessageFrames)
	dst = strconv.AppendInt(dst, int64(len(mf.Frames)), 10)
	dst = append(dst, Delimiter...)

	for _, f := range mf.Frames {
		switch f.Kind {
		case KindMessageType:
			dst = append(dst, PrefixMessageType, f.MessageType)
		case KindString, KindTime:
			dst = append(dst, byte(f.Kind))
			dst = append(dst, f.Str...)
			dst = append(dst, Delimiter...)
		case KindBytes:
			dst = append(dst, PrefixBytes)
			dst = strconv.AppendInt(dst, int64(len(f.Bytes)), 10)
			dst = append(dst, Delimiter...)
			dst = append(dst, f.Bytes...)
			dst = append(dst, Delimiter...)
		case KindNull:
			dst = append(dst, PrefixNull)
		}
	}
	return dst
}

// CheckParse reports whether buf holds one complete MessageFrames starting
// at offset 0, without consuming or allocating frame contents. It returns
// the total byte length of that MessageFrames, or kvserr.ErrIncomplete if
// buf does not yet hold enough data.
func CheckParse(buf []byte) (int, error) {
	pos, count, err := parseHeader(buf, 0)
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < count; i++ {
		pos, err = skipFrame(buf, pos)
		if err != nil {
			return 0, err
		}
	}
	return pos, nil
}

// Parse consumes one complete MessageFrames from the start of buf and
// returns it along with the number of bytes consumed. Callers should have
// already confirmed completeness via CheckParse (Parse itself still
// returns kvserr.ErrIncomplete if called on a short buffer).
func Parse(buf []byte) (int, *MessageFrames, error) {
	pos, count, err := parseHeader(buf, 0)
	if err != nil {
		return 0, nil, err
	}
	if count < 1 {
		return 0, nil, &kvserr.NetworkFramingError{Reason: "message frames must carry at least a message type frame"}
	}

	var mt byte
	pos, mt, err = parseMessageTypeFrame(buf, pos)
	if err != nil {
		return 0, nil, err
	}

	frames := make([]Frame, 0, count)
	frames = append(frames, Frame{Kind: KindMessageType, MessageType: mt})

	for i := int64(1); i < count; i++ {
		var f Frame
		pos, f, err = parseFrame(buf, pos)
		if err != nil {
			return 0, nil, err
		}
		frames = append(frames, f)
	}

	return pos, &MessageFrames{Frames: frames}, nil
}

func parseHeader(buf []byte, pos int) (int, int64, error) {
	if pos >= len(buf) {
		return 0, 0, kvserr.ErrIncomplete
	}
	if buf[pos] != PrefixMessageFrames {
		return 0, 0, &kvserr.NetworkFramingError{Reason: "message frames prefix expected"}
	}
	pos++
	line, next, err := getLine(buf, pos)
	if err != nil {
		return 0, 0, err
	}
	n, perr := strconv.ParseInt(string(line), 10, 64)
	if perr != nil {
		return 0, 0, &kvserr.NetworkFramingError{Reason: "invalid frame count"}
	}
	return next, n, nil
}

func parseMessageTypeFrame(buf []byte, pos int) (int, byte, error) {
	if pos >= len(buf) {
		return 0, 0, kvserr.ErrIncomplete
	}
	if buf[pos] != PrefixMessageType {
		return 0, 0, &kvserr.NetworkFramingError{Reason: "message type frame expected"}
	}
	pos++
	if pos >= len(buf) {
		return 0, 0, kvserr.ErrIncomplete
	}
	mt := buf[pos]
	return pos + 1, mt, nil
}

func skipFrame(buf []byte, pos int) (int, error) {
	if pos >= len(buf) {
		return 0, kvserr.ErrIncomplete
	}
	switch buf[pos] {
	case PrefixMessageType:
		if pos+1 >= len(buf) {
			return 0, kvserr.ErrIncomplete
		}
		return pos + 2, nil
	case PrefixString, PrefixTime:
		_, next, err := getLine(buf, pos+1)
		return next, err
	case PrefixBytes:
		line, next, err := getLine(buf, pos+1)
		if err != nil {
			return 0, err
		}
		n, perr := strconv.Atoi(string(line))
		if perr != nil || n < 0 {
			return 0, &kvserr.NetworkFramingError{Reason: "invalid bytes frame length"}
		}
		end := next + n + len(Delimiter)
		if end > len(buf) {
			return 0, kvserr.ErrIncomplete
		}
		return end, nil
	case PrefixNull:
		return pos + 1, nil
	default:
		return 0, &kvserr.NetworkFramingError{Reason: "unrecognized frame prefix"}
	}
}

func parseFrame(buf []byte, pos int) (int, Frame, error) {
	if pos >= len(buf) {
		return 0, Frame{}, kvserr.ErrIncomplete
	}
	switch buf[pos] {
	case PrefixMessageType:
		return 0, Frame{}, &kvserr.NetworkFramingError{Reason: "unexpected message type frame"}
	case PrefixString:
		line, next, err := getLine(buf, pos+1)
		if err != nil {
			return 0, Frame{}, err
		}
		return next, Frame{Kind: KindString, Str: string(line)}, nil
	case PrefixTime:
		line, next, err := getLine(buf, pos+1)
		if err != nil {
			return 0, Frame{}, err
		}
		return next, Frame{Kind: KindTime, Str: string(line)}, nil
	case PrefixBytes:
		line, next, err := getLine(buf, pos+1)
		if err != nil {
			return 0, Frame{}, err
		}
		n, perr := strconv.Atoi(string(line))
		if perr != nil || n < 0 {
			return 0, Frame{}, &kvserr.NetworkFramingError{Reason: "invalid bytes frame length"}
		}
		end := next + n + len(Delimiter)
		if end > len(buf) {
			return 0, Frame{}, kvserr.ErrIncomplete
		}
		value := make([]byte, n)
		copy(value, buf[next:next+n])
		return end, Frame{Kind: KindBytes, Bytes: value}, nil
	case PrefixNull:
		return pos + 1, Frame{Kind: KindNull}, nil
	default:
		return 0, Frame{}, &kvserr.NetworkFramingError{Reason: "unrecognized frame prefix"}
	}
}

// getLine scans buf[pos:] for the Delimiter and returns the line content
// (excluding the delimiter) plus the position just past it.
func getLine(buf []byte, pos int) ([]byte, int, error) {
	idx := bytes.Index(buf[pos:], Delimiter)
	if idx < 0 {
		return nil, 0, kvserr.ErrIncomplete
	}
	return buf[pos : pos+idx], pos + idx + len(Delimiter), nil
}
