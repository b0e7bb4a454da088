// Package client implements a kvsd TCP/TLS client: connect, authenticate,
// then Ping/Set/Get/Delete. Grounded on
// _examples/original_source/src/client/tcp.rs for the request/response
// shape (connect, build a request Message, write it, await the reply) and
// on spec.md §9's client design note that an implementer's bundled client
// may default to skipping TLS verification as long as a verifying mode is
// exposed. Reuses internal/connection for framing, same as the server.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/kvsd/kvsd/internal/connection"
	"github.com/kvsd/kvsd/internal/kvserr"
	"github.com/kvsd/kvsd/internal/message"
)

// DefaultDialTimeout bounds the initial TCP dial. The TLS handshake, if
// enabled, is bounded only by the context passed to Dial.
const DefaultDialTimeout = 5 * time.Second

// Client is the capability set spec.md §9 describes for a kvsd client.
type Client interface {
	Ping(ctx context.Context) (time.Time, error)
	Set(ctx context.Context, key string, value []byte) (prior []byte, hadPrior bool, err error)
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Delete(ctx context.Context, key string) (prior []byte, hadPrior bool, err error)
	Close() error
}

// Option configures a Client at construction.
type Option func(*options)

type options struct {
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	bufferBytes int
}

// WithTLSConfig enables TLS using cfg. Without this option the client
// connects in plaintext.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

// WithInsecureSkipVerify enables TLS without verifying the server's
// certificate. This is the TLS mode the kvs CLI's -tls-insecure flag
// selects; WithTLSConfig supplies a verifying configuration instead.
func WithInsecureSkipVerify() Option {
	return func(o *options) { o.tlsConfig = &tls.Config{InsecureSkipVerify: true} }
}

// WithDialTimeout overrides DefaultDialTimeout.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithBufferBytes overrides the connection's read-chunk size.
func WithBufferBytes(n int) Option {
	return func(o *options) { o.bufferBytes = n }
}

// tcpClient is the sole Client implementation: a single, non-pipelined
// connection, matching spec.md §5's "per connection, client messages are
// serviced in order" guarantee.
type tcpClient struct {
	conn *connection.Connection
	raw  net.Conn
}

// Dial connects to addr, authenticates as username/password, and returns a
// ready Client. The authenticate round-trip happens here so a caller never
// holds a Client that hasn't passed the authenticate phase.
func Dial(ctx context.Context, addr, username, password string, opts ...Option) (Client, error) {
	o := options{dialTimeout: DefaultDialTimeout, bufferBytes: connection.DefaultBufferBytes}
	for _, opt := range opts {
		opt(&o)
	}

	dialer := &net.Dialer{Timeout: o.dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	var stream net.Conn = raw
	if o.tlsConfig != nil {
		tlsConn := tls.Client(raw, o.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, fmt.Errorf("client: tls handshake: %w", err)
		}
		stream = tlsConn
	}

	c := &tcpClient{conn: connection.New(stream, o.bufferBytes), raw: raw}

	if err := c.conn.WriteMessage(&message.Authenticate{Username: username, Password: password}); err != nil {
		stream.Close()
		return nil, fmt.Errorf("client: send authenticate: %w", err)
	}
	reply, err := c.conn.ReadMessage()
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("client: read authenticate reply: %w", err)
	}
	switch m := reply.(type) {
	case *message.Success:
		return c, nil
	case *message.Fail:
		stream.Close()
		return nil, fmt.Errorf("client: authenticate failed: %s: %s", m.Code, m.Message)
	default:
		stream.Close()
		return nil, fmt.Errorf("client: authenticate: unexpected reply")
	}
}

func (c *tcpClient) Close() error { return c.raw.Close() }

func (c *tcpClient) Ping(ctx context.Context) (time.Time, error) {
	reply, err := c.roundTrip(&message.Ping{ClientTime: time.Now(), HasClientTime: true})
	if err != nil {
		return time.Time{}, err
	}
	ping, ok := reply.(*message.Ping)
	if !ok {
		return time.Time{}, fmt.Errorf("client: ping: unexpected reply type")
	}
	return ping.ServerTime, nil
}

func (c *tcpClient) Set(ctx context.Context, key string, value []byte) ([]byte, bool, error) {
	reply, err := c.roundTrip(&message.Set{Key: key, Value: value})
	if err != nil {
		return nil, false, err
	}
	return successValue(reply)
}

func (c *tcpClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.roundTrip(&message.Get{Key: key})
	if err != nil {
		return nil, false, err
	}
	return successValue(reply)
}

func (c *tcpClient) Delete(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.roundTrip(&message.Delete{Key: key})
	if err != nil {
		return nil, false, err
	}
	return successValue(reply)
}

func (c *tcpClient) roundTrip(m message.Message) (message.Message, error) {
	if err := c.conn.WriteMessage(m); err != nil {
		return nil, fmt.Errorf("client: write: %w", err)
	}
	reply, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("client: read: %w", err)
	}
	if reply == nil {
		return nil, kvserr.ErrConnectionReset
	}
	return reply, nil
}

func successValue(reply message.Message) ([]byte, bool, error) {
	switch m := reply.(type) {
	case *message.Success:
		return m.Value, m.HasValue, nil
	case *message.Fail:
		return nil, false, fmt.Errorf("client: %s: %s", m.Code, m.Message)
	default:
		return nil, false, fmt.Errorf("client: unexpected reply type")
	}
}
