package middleware

import (
	"context"

	"github.com/kvsd/kvsd/internal/core"
	"github.com/kvsd/kvsd/internal/kvserr"
)

// UserEntry is one configured username/password pair, duplicated once into
// an Authenticator at startup and read-only thereafter.
type UserEntry struct {
	Username string
	Password string
}

// Authenticator checks Authenticate requests against a fixed, linear-scanned
// user table and otherwise requires the caller's Principal to already be
// authenticated, short-circuiting with ErrUnauthenticated if not. Grounded
// on _examples/original_source/src/core/middleware/authenticator.rs.
type Authenticator struct {
	Next  Middleware
	Users []UserEntry
}

func (a *Authenticator) Apply(ctx context.Context, uow *core.UnitOfWork) {
	if req, ok := uow.Request.(core.AuthenticateRequest); ok {
		principal := a.authenticate(req)
		uow.Reply(core.Reply{Principal: principal})
		return
	}

	if !uow.Principal.IsAuthenticated() {
		uow.Reply(core.Reply{Err: kvserr.ErrUnauthenticated})
		return
	}

	a.Next.Apply(ctx, uow)
}

func (a *Authenticator) authenticate(req core.AuthenticateRequest) *core.Principal {
	for _, u := range a.Users {
		if u.Username == req.Username && u.Password == req.Password {
			p := core.NewUserPrincipal(u.Username)
			return &p
		}
	}
	return nil
}
