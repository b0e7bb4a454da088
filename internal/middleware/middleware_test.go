package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvsd/kvsd/internal/core"
	"github.com/kvsd/kvsd/internal/kv"
	"github.com/kvsd/kvsd/internal/kvserr"
)

func TestAuthenticator_SuccessReturnsUserPrincipal(t *testing.T) {
	a := &Authenticator{Users: []UserEntry{{Username: "alice", Password: "secret"}}}

	uow, replyCh := core.New(core.AnonymousPrincipal, core.AuthenticateRequest{Username: "alice", Password: "secret"})
	a.Apply(context.Background(), uow)

	reply := <-replyCh
	require.NoError(t, reply.Err)
	require.NotNil(t, reply.Principal)
	assert.True(t, reply.Principal.IsAuthenticated())
	assert.Equal(t, "alice", reply.Principal.Name())
}

func TestAuthenticator_BadCredentialsReturnsNilPrincipal(t *testing.T) {
	a := &Authenticator{Users: []UserEntry{{Username: "alice", Password: "secret"}}}

	uow, replyCh := core.New(core.AnonymousPrincipal, core.AuthenticateRequest{Username: "alice", Password: "wrong"})
	a.Apply(context.Background(), uow)

	reply := <-replyCh
	require.NoError(t, reply.Err)
	assert.Nil(t, reply.Principal)
}

func TestAuthenticator_NonAuthenticateFromAnonymousIsRejected(t *testing.T) {
	called := false
	a := &Authenticator{Next: middlewareFunc(func(context.Context, *core.UnitOfWork) { called = true })}

	uow, replyCh := core.New(core.AnonymousPrincipal, core.PingRequest{})
	a.Apply(context.Background(), uow)

	reply := <-replyCh
	assert.ErrorIs(t, reply.Err, kvserr.ErrUnauthenticated)
	assert.False(t, called)
}

func TestAuthenticator_AuthenticatedRequestForwards(t *testing.T) {
	called := false
	a := &Authenticator{Next: middlewareFunc(func(_ context.Context, uow *core.UnitOfWork) {
		called = true
		uow.Reply(core.Reply{})
	})}

	uow, replyCh := core.New(core.NewUserPrincipal("alice"), core.PingRequest{})
	a.Apply(context.Background(), uow)
	<-replyCh

	assert.True(t, called)
}

func TestDispatcher_PingRepliesWithWallClock(t *testing.T) {
	d := NewDispatcher()
	uow, replyCh := core.New(core.NewUserPrincipal("alice"), core.PingRequest{})
	d.Apply(context.Background(), uow)

	reply := <-replyCh
	require.NoError(t, reply.Err)
	assert.False(t, reply.Time.IsZero())
}

func TestDispatcher_UnknownTableRepliesTableNotFound(t *testing.T) {
	d := NewDispatcher()
	key := mustKeyT(t, "k")
	uow, replyCh := core.New(core.NewUserPrincipal("alice"), core.GetRequest{Namespace: "default", Table: "default", Key: key})
	d.Apply(context.Background(), uow)

	reply := <-replyCh
	var notFound *kvserr.TableNotFoundError
	assert.ErrorAs(t, reply.Err, &notFound)
}

func TestDispatcher_RegisteredTableReceivesForwardedUoW(t *testing.T) {
	d := NewDispatcher()
	ch := make(chan *core.UnitOfWork, 1)
	d.Register("default", "default", ch)

	key := mustKeyT(t, "k")
	uow, _ := core.New(core.NewUserPrincipal("alice"), core.GetRequest{Namespace: "default", Table: "default", Key: key})
	d.Apply(context.Background(), uow)

	got := <-ch
	assert.Equal(t, uow, got)
}

func TestAuthorizer_ForwardsUnchanged(t *testing.T) {
	called := false
	az := &Authorizer{Next: middlewareFunc(func(_ context.Context, uow *core.UnitOfWork) {
		called = true
		uow.Reply(core.Reply{})
	})}

	uow, replyCh := core.New(core.AnonymousPrincipal, core.PingRequest{})
	az.Apply(context.Background(), uow)
	<-replyCh

	assert.True(t, called)
}

func TestLogger_ForwardsAndDoesNotBlockOnReply(t *testing.T) {
	called := false
	l := &Logger{Next: middlewareFunc(func(_ context.Context, uow *core.UnitOfWork) {
		called = true
		uow.Reply(core.Reply{})
	})}

	uow, replyCh := core.New(core.AnonymousPrincipal, core.PingRequest{})
	l.Apply(context.Background(), uow)
	<-replyCh

	assert.True(t, called)
}

// middlewareFunc adapts a plain function to the Middleware interface, for
// wiring a stub terminal link in tests.
type middlewareFunc func(context.Context, *core.UnitOfWork)

func (f middlewareFunc) Apply(ctx context.Context, uow *core.UnitOfWork) { f(ctx, uow) }

func mustKeyT(t *testing.T, s string) kv.Key {
	t.Helper()
	k, err := kv.NewKey(s)
	require.NoError(t, err)
	return k
}
