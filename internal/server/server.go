// Package server implements the TCP/TLS accept loop and per-connection
// handler described in spec.md §4.8: a SemaphoreListener-bounded acceptor,
// an authenticate phase with a hard read timeout, and a serve phase that
// dispatches Ping/Set/Get/Delete through a middleware chain. Grounded on
// the teacher's internal/server/server.go for the accept-loop/TLS-wrap/
// WaitGroup-drain shape, generalized from the teacher's
// tls.LoadX509KeyPair-inside-Start pattern to accepting an already-built
// *tls.Config, since certificate file loading belongs to the process that
// owns the filesystem path, not to the listener.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/kvsd/kvsd/internal/connection"
	"github.com/kvsd/kvsd/internal/core"
	"github.com/kvsd/kvsd/internal/kv"
	"github.com/kvsd/kvsd/internal/kvserr"
	"github.com/kvsd/kvsd/internal/message"
	"github.com/kvsd/kvsd/internal/middleware"
)

// DefaultMaxConnections is the default SemaphoreListener size.
const DefaultMaxConnections = 10240

// DefaultConnectionBufferBytes is the default per-connection read buffer.
const DefaultConnectionBufferBytes = 4096

// DefaultAuthenticateTimeout is the default deadline for a connection's
// first message.
const DefaultAuthenticateTimeout = 300 * time.Millisecond

// Config configures a Server. TLSConfig nil means serve plaintext TCP.
type Config struct {
	ListenAddr            string
	TLSConfig             *tls.Config
	MaxConnections        int
	ConnectionBufferBytes int
	AuthenticateTimeout   time.Duration
	Log                   *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.ConnectionBufferBytes <= 0 {
		c.ConnectionBufferBytes = DefaultConnectionBufferBytes
	}
	if c.AuthenticateTimeout <= 0 {
		c.AuthenticateTimeout = DefaultAuthenticateTimeout
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Server runs the accept loop and dispatches accepted connections' requests
// through a middleware chain. The chain must terminate in a Dispatcher (or
// equivalent) that answers every request kind the serve phase produces.
type Server struct {
	cfg   Config
	chain middleware.Middleware

	mu       sync.Mutex
	listener net.Listener
	sem      *SemaphoreListener
	closed   bool
	wg       sync.WaitGroup
}

// New returns a Server that dispatches through chain.
func New(chain middleware.Middleware, cfg Config) *Server {
	return &Server{chain: chain, cfg: cfg.withDefaults()}
}

// Start binds the configured listen address, optionally wraps it in TLS,
// and runs the accept loop until ctx is cancelled or Accept fails. It
// returns nil on a clean shutdown (ctx cancellation or explicit Close).
func (s *Server) Start(ctx context.Context) error {
	raw, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.ListenAddr, err)
	}

	var l net.Listener = raw
	if s.cfg.TLSConfig != nil {
		l = tls.NewListener(raw, s.cfg.TLSConfig)
	}
	sem := NewSemaphoreListener(l, s.cfg.MaxConnections)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return nil
	}
	s.listener = l
	s.sem = sem
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.cfg.Log.Info("server listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLSConfig != nil)

	for {
		conn, err := sem.Accept()
		if err != nil {
			if s.isClosed() {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer sem.Release()
			s.handleConnection(ctx, conn)
		}()
	}
}

// Close idempotently stops the accept loop and waits for every live
// handler to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	l := s.listener
	s.mu.Unlock()

	var err error
	if l != nil {
		err = l.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// handleConnection runs the authenticate phase followed by the serve phase
// for one accepted socket, per spec.md §4.8.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Shutdown is cooperative: a blocked Read never observes ctx.Done()
	// directly, so closing the socket is what actually unblocks it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	c := connection.New(conn, s.cfg.ConnectionBufferBytes)
	log := s.cfg.Log.With("remote", conn.RemoteAddr())

	principal, ok := s.authenticate(c, log)
	if !ok {
		return
	}

	s.serve(ctx, c, principal, log)
}

// authenticate runs the authenticate phase. It returns the principal and
// true on success, or the zero Principal and false if the connection
// should be closed.
func (s *Server) authenticate(c *connection.Connection, log *slog.Logger) (core.Principal, bool) {
	msg, err := c.ReadMessageWithTimeout(s.cfg.AuthenticateTimeout)
	if err != nil {
		log.Info("authenticate phase: read failed", "error", err)
		return core.Principal{}, false
	}
	if msg == nil {
		return core.Principal{}, false
	}

	auth, ok := msg.(*message.Authenticate)
	if !ok {
		log.Info("authenticate phase: unexpected message, closing")
		return core.Principal{}, false
	}

	uow, replyCh := core.New(core.AnonymousPrincipal, core.AuthenticateRequest{
		Username: auth.Username, Password: auth.Password,
	})
	s.chain.Apply(context.Background(), uow)
	reply := <-replyCh

	if reply.Err != nil {
		log.Error("authenticate phase: chain error", "error", reply.Err)
		return core.Principal{}, false
	}
	if reply.Principal == nil {
		_ = c.WriteMessage(&message.Fail{Code: message.FailCodeUnauthenticated, Message: ""})
		return core.Principal{}, false
	}

	if err := c.WriteMessage(&message.Success{}); err != nil {
		return core.Principal{}, false
	}
	return *reply.Principal, true
}

// serve runs the serve phase: read, dispatch, reply, until the peer closes,
// a protocol violation occurs, or ctx is cancelled.
func (s *Server) serve(ctx context.Context, c *connection.Connection, principal core.Principal, log *slog.Logger) {
	for {
		msg, err := c.ReadMessage()
		if err != nil {
			log.Info("serve phase: read failed", "error", err)
			return
		}
		if msg == nil {
			return
		}

		reply, ok := s.dispatch(ctx, principal, msg)
		if !ok {
			log.Info("serve phase: protocol violation, closing")
			return
		}
		if err := c.WriteMessage(reply); err != nil {
			log.Info("serve phase: write failed", "error", err)
			return
		}
	}
}

// dispatch converts one client Message into a UnitOfWork, runs it through
// the chain, and converts the Reply back into a wire Message. The bool
// result is false for a protocol violation (Authenticate/Success/Fail sent
// by a client during the serve phase), which callers treat as fatal.
func (s *Server) dispatch(ctx context.Context, principal core.Principal, msg message.Message) (message.Message, bool) {
	switch m := msg.(type) {
	case *message.Ping:
		uow, replyCh := core.New(principal, core.PingRequest{})
		s.chain.Apply(ctx, uow)
		reply := <-replyCh
		if reply.Err != nil {
			return failMessage(reply.Err), true
		}
		out := &message.Ping{ServerTime: reply.Time, HasServerTime: true}
		if m.HasClientTime {
			out.ClientTime, out.HasClientTime = m.ClientTime, true
		}
		return out, true

	case *message.Set:
		key, val, err := keyValue(m.Key, m.Value)
		if err != nil {
			return failMessage(err), true
		}
		uow, replyCh := core.New(principal, core.SetRequest{
			Namespace: "default", Table: "default", Key: key, Value: val,
		})
		s.chain.Apply(ctx, uow)
		return replyMessage(<-replyCh), true

	case *message.Get:
		key, err := kv.NewKey(m.Key)
		if err != nil {
			return failMessage(err), true
		}
		uow, replyCh := core.New(principal, core.GetRequest{
			Namespace: "default", Table: "default", Key: key,
		})
		s.chain.Apply(ctx, uow)
		return replyMessage(<-replyCh), true

	case *message.Delete:
		key, err := kv.NewKey(m.Key)
		if err != nil {
			return failMessage(err), true
		}
		uow, replyCh := core.New(principal, core.DeleteRequest{
			Namespace: "default", Table: "default", Key: key,
		})
		s.chain.Apply(ctx, uow)
		return replyMessage(<-replyCh), true

	default:
		// Authenticate, Success, Fail from a client during the serve phase.
		return nil, false
	}
}

func keyValue(rawKey string, rawValue []byte) (kv.Key, kv.Value, error) {
	key, err := kv.NewKey(rawKey)
	if err != nil {
		return kv.Key{}, kv.Value{}, err
	}
	val, err := kv.NewValue(rawValue)
	if err != nil {
		return kv.Key{}, kv.Value{}, err
	}
	return key, val, nil
}

func replyMessage(reply core.Reply) message.Message {
	if reply.Err != nil {
		return failMessage(reply.Err)
	}
	if v, ok := reply.Value.Value(); ok {
		return &message.Success{Value: v.Bytes(), HasValue: true}
	}
	return &message.Success{}
}

func failMessage(err error) *message.Fail {
	code := message.FailCodeUndefined
	if errors.Is(err, kvserr.ErrUnauthenticated) {
		code = message.FailCodeUnauthenticated
	}
	return &message.Fail{Code: code, Message: err.Error()}
}
