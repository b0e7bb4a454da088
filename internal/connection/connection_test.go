package connection

import (
	"net"
	"testing"
	"time"

	"github.com/kvsd/kvsd/internal/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_WriteThenRead(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn := New(client, 16)
	serverConn := New(server, 16)

	done := make(chan error, 1)
	go func() {
		done <- clientConn.WriteMessage(&message.Set{Key: "key1", Value: []byte("value1")})
	}()

	m, err := serverConn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-done)

	set, ok := m.(*message.Set)
	require.True(t, ok)
	assert.Equal(t, "key1", set.Key)
	assert.Equal(t, []byte("value1"), set.Value)
}

func TestConnection_CleanEOFReturnsNil(t *testing.T) {
	client, server := net.Pipe()
	serverConn := New(server, 16)

	go client.Close()

	m, err := serverConn.ReadMessage()
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestConnection_PartialFrameThenEOFIsReset(t *testing.T) {
	client, server := net.Pipe()
	serverConn := New(server, 16)

	go func() {
		_, _ = client.Write([]byte("*2\r\n#"))
		client.Close()
	}()

	_, err := serverConn.ReadMessage()
	require.Error(t, err)
}

func TestConnection_ReadWithTimeout_Elapses(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	serverConn := New(server, 16)

	_, err := serverConn.ReadMessageWithTimeout(50 * time.Millisecond)
	require.Error(t, err)
}
