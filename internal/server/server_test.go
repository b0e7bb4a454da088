package server

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsd/kvsd/internal/connection"
	"github.com/kvsd/kvsd/internal/message"
	"github.com/kvsd/kvsd/internal/middleware"
	"github.com/kvsd/kvsd/internal/table"
)

// newTestServer wires a Logger->Authenticator->Authorizer->Dispatcher chain
// over a single default/default table and starts a Server on an ephemeral
// port. It returns the dialable address; shutdown is registered with
// t.Cleanup.
func newTestServer(t *testing.T, users []middleware.UserEntry) string {
	t.Helper()

	tb, err := table.Open("default", "default", filepath.Join(t.TempDir(), "default.kvs"), nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { tb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go tb.Run(ctx, &wg)

	d := middleware.NewDispatcher()
	d.Register("default", "default", tb.Inbound)
	az := &middleware.Authorizer{Next: d}
	auth := &middleware.Authenticator{Next: az, Users: users}
	chain := &middleware.Logger{Next: auth}

	srv := New(chain, Config{
		ListenAddr:          "127.0.0.1:0",
		AuthenticateTimeout: 200 * time.Millisecond,
	})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()
	srv.cfg.ListenAddr = addr

	srvCtx, srvCancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(srvCtx) }()

	// Give the listener a moment to bind before the first dial.
	for i := 0; i < 100; i++ {
		if c, err := net.Dial("tcp", addr); err == nil {
			c.Close()
			break
		}
		time.Sleep(time.Millisecond)
	}

	t.Cleanup(func() {
		srvCancel()
		cancel()
		<-done
	})

	return addr
}

func dial(t *testing.T, addr string) *connection.Connection {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return connection.New(c, 4096)
}

func TestServer_AuthenticateSuccessThenCRUD(t *testing.T) {
	addr := newTestServer(t, []middleware.UserEntry{{Username: "alice", Password: "secret"}})
	c := dial(t, addr)

	require.NoError(t, c.WriteMessage(&message.Authenticate{Username: "alice", Password: "secret"}))
	reply, err := c.ReadMessage()
	require.NoError(t, err)
	_, ok := reply.(*message.Success)
	require.True(t, ok)

	require.NoError(t, c.WriteMessage(&message.Set{Key: "k1", Value: []byte("v1")}))
	reply, err = c.ReadMessage()
	require.NoError(t, err)
	set, ok := reply.(*message.Success)
	require.True(t, ok)
	assert.False(t, set.HasValue) // no prior value

	require.NoError(t, c.WriteMessage(&message.Get{Key: "k1"}))
	reply, err = c.ReadMessage()
	require.NoError(t, err)
	get, ok := reply.(*message.Success)
	require.True(t, ok)
	require.True(t, get.HasValue)
	assert.Equal(t, []byte("v1"), get.Value)

	require.NoError(t, c.WriteMessage(&message.Delete{Key: "k1"}))
	reply, err = c.ReadMessage()
	require.NoError(t, err)
	del, ok := reply.(*message.Success)
	require.True(t, ok)
	require.True(t, del.HasValue)
	assert.Equal(t, []byte("v1"), del.Value)

	require.NoError(t, c.WriteMessage(&message.Get{Key: "k1"}))
	reply, err = c.ReadMessage()
	require.NoError(t, err)
	miss, ok := reply.(*message.Success)
	require.True(t, ok)
	assert.False(t, miss.HasValue)
}

func TestServer_AuthenticateFailureClosesConnection(t *testing.T) {
	addr := newTestServer(t, []middleware.UserEntry{{Username: "alice", Password: "secret"}})
	c := dial(t, addr)

	require.NoError(t, c.WriteMessage(&message.Authenticate{Username: "alice", Password: "wrong"}))
	reply, err := c.ReadMessage()
	require.NoError(t, err)
	fail, ok := reply.(*message.Fail)
	require.True(t, ok)
	assert.Equal(t, message.FailCodeUnauthenticated, fail.Code)

	// The server closes the socket: a clean EOF, which ReadMessage reports
	// as no message and no error.
	m, err := c.ReadMessage()
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestServer_PingEchoesServerTime(t *testing.T) {
	addr := newTestServer(t, []middleware.UserEntry{{Username: "alice", Password: "secret"}})
	c := dial(t, addr)

	require.NoError(t, c.WriteMessage(&message.Authenticate{Username: "alice", Password: "secret"}))
	_, err := c.ReadMessage()
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, c.WriteMessage(&message.Ping{}))
	reply, err := c.ReadMessage()
	require.NoError(t, err)
	ping, ok := reply.(*message.Ping)
	require.True(t, ok)
	require.True(t, ping.HasServerTime)
	assert.False(t, ping.ServerTime.Before(before.Add(-time.Second)))
}

func TestServer_NonAuthenticateFirstMessageCloses(t *testing.T) {
	addr := newTestServer(t, nil)
	c := dial(t, addr)

	require.NoError(t, c.WriteMessage(&message.Ping{}))
	m, err := c.ReadMessage()
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestServer_ProtocolViolationDuringServeCloses(t *testing.T) {
	addr := newTestServer(t, []middleware.UserEntry{{Username: "alice", Password: "secret"}})
	c := dial(t, addr)

	require.NoError(t, c.WriteMessage(&message.Authenticate{Username: "alice", Password: "secret"}))
	_, err := c.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, c.WriteMessage(&message.Success{}))
	m, err := c.ReadMessage()
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestSemaphoreListener_BoundsConcurrentAccepts(t *testing.T) {
	raw, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer raw.Close()

	sem := NewSemaphoreListener(raw, 1)
	addr := raw.Addr().String()

	accepted := make(chan net.Conn, 2)
	go func() {
		for i := 0; i < 2; i++ {
			c, err := sem.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	c1, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c1.Close()

	var first net.Conn
	select {
	case first = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("first connection was never accepted")
	}

	c2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c2.Close()

	select {
	case <-accepted:
		t.Fatal("second accept completed before a permit was released")
	case <-time.After(100 * time.Millisecond):
	}

	sem.Release()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("second connection was never accepted after release")
	}

	first.Close()
}
