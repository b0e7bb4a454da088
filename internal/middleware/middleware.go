// Package middleware implements the Logger → Authenticator → Authorizer →
// Dispatcher chain every UnitOfWork passes through between a connection
// handler and the table actor that ultimately serves it. Grounded on
// _examples/original_source/src/core/middleware/{middleware,logger,
// authenticator,authorizer,dispatcher}.rs for composition order and
// responsibilities, re-expressed as a Go interface chained by plain struct
// composition instead of Rust's generic-type chain.
package middleware

import (
	"context"

	"github.com/kvsd/kvsd/internal/core"
)

// Middleware is one link in the chain. Apply must arrange for uow.Reply to
// be called exactly once, either directly or by forwarding to the next
// link.
type Middleware interface {
	Apply(ctx context.Context, uow *core.UnitOfWork)
}
