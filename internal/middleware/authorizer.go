package middleware

import (
	"context"

	"github.com/kvsd/kvsd/internal/core"
)

// Authorizer is a pass-through hook reserved for future authorization
// policy beyond "must be authenticated" (enforced upstream by
// Authenticator). Grounded on
// _examples/original_source/src/core/middleware/authorizer.rs, which is
// itself a pure pass-through.
type Authorizer struct {
	Next Middleware
}

func (a *Authorizer) Apply(ctx context.Context, uow *core.UnitOfWork) {
	a.Next.Apply(ctx, uow)
}
