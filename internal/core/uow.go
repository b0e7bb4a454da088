package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kvsd/kvsd/internal/kv"
)

// Request is implemented by every typed request a UnitOfWork can carry.
type Request interface {
	requestKind() string
}

// AuthenticateRequest asks the Authenticator to check a username/password.
type AuthenticateRequest struct {
	Username string
	Password string
}

func (AuthenticateRequest) requestKind() string { return "authenticate" }

// PingRequest asks the Dispatcher for the current wall clock.
type PingRequest struct{}

func (PingRequest) requestKind() string { return "ping" }

// SetRequest asks a table actor to write Key to Value.
type SetRequest struct {
	Namespace string
	Table     string
	Key       kv.Key
	Value     kv.Value
}

func (SetRequest) requestKind() string { return "set" }

// GetRequest asks a table actor for the current value of Key.
type GetRequest struct {
	Namespace string
	Table     string
	Key       kv.Key
}

func (GetRequest) requestKind() string { return "get" }

// DeleteRequest asks a table actor to remove Key.
type DeleteRequest struct {
	Namespace string
	Table     string
	Key       kv.Key
}

func (DeleteRequest) requestKind() string { return "delete" }

// Reply is the result delivered back through a UnitOfWork's reply channel.
// Exactly one field set is meaningful, depending on which Request produced
// it: Principal for AuthenticateRequest (nil means bad credentials, not an
// error), Time for PingRequest, Value for Set/Get/DeleteRequest.
type Reply struct {
	Principal *Principal
	Time      time.Time
	Value     kv.OptionalValue
	Err       error
}

// UnitOfWork is the envelope carrying a caller's Principal, their typed
// Request, and a one-shot reply channel, plus a RequestID used only for log
// correlation (spec.md's "no correlation IDs on the wire" design note is
// preserved — RequestID never reaches the wire).
type UnitOfWork struct {
	RequestID string
	Principal Principal
	Request   Request

	replyCh chan Reply
	once    sync.Once
	onReply func(Reply)
}

// New constructs a UnitOfWork and returns it along with the channel its
// Reply will arrive on (buffered, capacity 1, read at most once).
func New(principal Principal, req Request) (*UnitOfWork, <-chan Reply) {
	ch := make(chan Reply, 1)
	return &UnitOfWork{
		RequestID: uuid.NewString(),
		Principal: principal,
		Request:   req,
		replyCh:   ch,
	}, ch
}

// OnReply registers fn to be called exactly once, with the Reply that is
// actually delivered, at the moment Reply is called — whether that happens
// synchronously (e.g. Ping, Authenticate) or later from another goroutine
// (e.g. a table actor answering a forwarded Set/Get/Delete). Middleware that
// needs to observe the outcome of a UnitOfWork it doesn't answer directly,
// such as Logger, registers its hook here instead of racing the reply
// channel. Must be called before the UoW is handed off; not safe to call
// concurrently with Reply.
func (u *UnitOfWork) OnReply(fn func(Reply)) {
	u.onReply = fn
}

// Reply delivers r on the UoW's reply channel. It is safe to call at most
// meaningfully once; subsequent calls are no-ops, matching the "consumed
// exactly once" contract in spec.md §3. Go's buffered channel never blocks
// on this single send, so there is no distinct "receiver dropped" failure
// mode to surface here — an abandoned UnitOfWork (e.g. the connection
// closed before reading its reply) is simply never read, and is garbage
// collected normally.
func (u *UnitOfWork) Reply(r Reply) {
	u.once.Do(func() {
		if u.onReply != nil {
			u.onReply(r)
		}
		u.replyCh <- r
	})
}
