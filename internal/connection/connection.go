// Package connection wraps a byte stream with a buffered writer and a
// growable read buffer, framing kvsd Messages on top of it. It is grounded
// on the teacher's internal/protocol/resp.go bufio.Reader/bufio.Writer
// wrapping, adapted to decode MessageFrames instead of RESP values, and on
// spec.md §4.6 for the incomplete-refill loop and the
// EOF-vs-partial-bytes-means-reset distinction.
package connection

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/kvsd/kvsd/internal/kvserr"
	"github.com/kvsd/kvsd/internal/message"
)

// DefaultBufferBytes is the default initial size of the read buffer.
const DefaultBufferBytes = 4096

// deadlineSetter is implemented by net.Conn and net.Pipe's Conn; Connection
// uses it, when available, for ReadMessageWithTimeout.
type deadlineSetter interface {
	SetReadDeadline(t time.Time) error
}

// Connection frames kvsd Messages over an underlying byte stream.
type Connection struct {
	stream io.ReadWriter
	writer *bufio.Writer

	buf    []byte // unparsed bytes read so far
	readSz int    // chunk size used for each underlying Read
}

// New wraps stream, using bufferBytes as the initial read-chunk size.
func New(stream io.ReadWriter, bufferBytes int) *Connection {
	if bufferBytes <= 0 {
		bufferBytes = DefaultBufferBytes
	}
	return &Connection{
		stream: stream,
		writer: bufio.NewWriterSize(stream, bufferBytes),
		readSz: bufferBytes,
	}
}

// WriteMessage encodes m and flushes it to the stream.
func (c *Connection) WriteMessage(m message.Message) error {
	wire := message.Encode(m)
	if _, err := c.writer.Write(wire); err != nil {
		return err
	}
	return c.writer.Flush()
}

// ReadMessage reads the next Message from the stream, blocking until a
// complete one is available. It returns (nil, nil) on a clean EOF with no
// partially-buffered bytes, and kvserr.ErrConnectionReset if the peer
// closes mid-frame.
func (c *Connection) ReadMessage() (message.Message, error) {
	for {
		n, err := message.CheckComplete(c.buf)
		if err == nil {
			consumed, m, derr := message.Decode(c.buf[:n])
			c.advance(consumed)
			return m, derr
		}
		if !errors.Is(err, kvserr.ErrIncomplete) {
			return nil, err
		}

		chunk := make([]byte, c.readSz)
		read, rerr := c.stream.Read(chunk)
		if read > 0 {
			c.buf = append(c.buf, chunk[:read]...)
		}
		if rerr != nil {
			if rerr == io.EOF {
				if len(c.buf) == 0 {
					return nil, nil
				}
				return nil, kvserr.ErrConnectionReset
			}
			return nil, rerr
		}
	}
}

// ReadMessageWithTimeout is ReadMessage with a read deadline; an elapsed
// deadline surfaces as kvserr.ErrTimeout. The underlying stream must
// support SetReadDeadline (e.g. net.Conn) for the timeout to take effect.
func (c *Connection) ReadMessageWithTimeout(d time.Duration) (message.Message, error) {
	setter, ok := c.stream.(deadlineSetter)
	if ok {
		if err := setter.SetReadDeadline(time.Now().Add(d)); err != nil {
			return nil, err
		}
		defer setter.SetReadDeadline(time.Time{})
	}

	m, err := c.ReadMessage()
	if err != nil && isTimeoutErr(err) {
		return nil, kvserr.ErrTimeout
	}
	return m, err
}

func (c *Connection) advance(n int) {
	c.buf = c.buf[n:]
}

type timeouter interface {
	Timeout() bool
}

func isTimeoutErr(err error) bool {
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
