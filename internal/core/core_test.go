package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipal_AnonymousVsUser(t *testing.T) {
	assert.False(t, AnonymousPrincipal.IsAuthenticated())

	u := NewUserPrincipal("test")
	assert.True(t, u.IsAuthenticated())
	assert.Equal(t, "test", u.Name())
}

func TestUnitOfWork_ReplyDeliveredOnce(t *testing.T) {
	uow, replyCh := New(AnonymousPrincipal, PingRequest{})
	assert.NotEmpty(t, uow.RequestID)

	uow.Reply(Reply{})
	uow.Reply(Reply{Err: assertErr{}}) // second call must be a no-op

	got := <-replyCh
	require.NoError(t, got.Err)
}

type assertErr struct{}

func (assertErr) Error() string { return "should never be observed" }
