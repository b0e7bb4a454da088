package middleware

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kvsd/kvsd/internal/core"
	"github.com/kvsd/kvsd/internal/hotkeys"
)

// HotKeyLogInterval is the number of requests between hot-key summary log
// lines.
const HotKeyLogInterval = 1000

// Logger records the start time of a UnitOfWork, forwards it to Next, then
// logs the request kind, principal, elapsed duration, and outcome. When the
// request count reaches a multiple of HotKeyLogInterval and that request
// targets a table, it additionally logs the Tracker's top keys for that
// table.
type Logger struct {
	Next    Middleware
	Log     *slog.Logger
	Tracker *hotkeys.Tracker

	count atomic.Uint64
}

func (l *Logger) Apply(ctx context.Context, uow *core.UnitOfWork) {
	start := time.Now()
	log := l.Log
	if log == nil {
		log = slog.Default()
	}

	kind := requestKind(uow)
	table := requestTable(uow)

	// The reply to this UoW may land before Next.Apply returns (Ping,
	// Authenticate) or later from a table actor goroutine (Set/Get/Delete
	// forwarded through a channel), so the outcome can only be logged from
	// inside the reply itself, not right after Next.Apply returns.
	uow.OnReply(func(r core.Reply) {
		outcome := "ok"
		if r.Err != nil {
			outcome = "error"
		}

		log.Info("uow dispatched",
			"request_id", uow.RequestID,
			"kind", kind,
			"principal", uow.Principal.String(),
			"elapsed", time.Since(start),
			"outcome", outcome,
		)

		n := l.count.Add(1)
		if l.Tracker != nil && n%HotKeyLogInterval == 0 && table != "" {
			log.Info("hot keys", "table", table, "top", l.Tracker.Top(table))
		}
	})

	l.Next.Apply(ctx, uow)
}

func requestKind(uow *core.UnitOfWork) string {
	switch uow.Request.(type) {
	case core.AuthenticateRequest:
		return "authenticate"
	case core.PingRequest:
		return "ping"
	case core.SetRequest:
		return "set"
	case core.GetRequest:
		return "get"
	case core.DeleteRequest:
		return "delete"
	default:
		return "unknown"
	}
}

func requestTable(uow *core.UnitOfWork) string {
	switch req := uow.Request.(type) {
	case core.SetRequest:
		return req.Table
	case core.GetRequest:
		return req.Table
	case core.DeleteRequest:
		return req.Table
	default:
		return ""
	}
}
