package middleware

import (
	"context"
	"time"

	"github.com/kvsd/kvsd/internal/core"
	"github.com/kvsd/kvsd/internal/kvserr"
)

// Dispatcher is the terminal middleware link: it answers Ping directly with
// the current wall clock, and routes Set/Get/Delete to the table actor
// registered for their (namespace, table) pair. A routing miss replies
// TableNotFoundError on the UoW's own reply channel. Grounded on
// _examples/original_source/src/core/middleware/dispatcher.rs for the Ping
// case and spec.md §4.7 for the full (namespace, table) routing table this
// spec requires (the source file never implements that part).
type Dispatcher struct {
	tables map[string]map[string]chan<- *core.UnitOfWork
}

// NewDispatcher returns an empty Dispatcher; register tables with Register.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{tables: make(map[string]map[string]chan<- *core.UnitOfWork)}
}

// Register associates (namespace, table) with the inbound channel of the
// actor that owns it.
func (d *Dispatcher) Register(namespace, table string, inbound chan<- *core.UnitOfWork) {
	ns, ok := d.tables[namespace]
	if !ok {
		ns = make(map[string]chan<- *core.UnitOfWork)
		d.tables[namespace] = ns
	}
	ns[table] = inbound
}

func (d *Dispatcher) Apply(ctx context.Context, uow *core.UnitOfWork) {
	switch req := uow.Request.(type) {
	case core.PingRequest:
		uow.Reply(core.Reply{Time: time.Now()})

	case core.SetRequest:
		d.forward(uow, req.Namespace, req.Table)
	case core.GetRequest:
		d.forward(uow, req.Namespace, req.Table)
	case core.DeleteRequest:
		d.forward(uow, req.Namespace, req.Table)

	default:
		uow.Reply(core.Reply{Err: &kvserr.InternalError{Reason: "dispatcher received an unroutable request"}})
	}
}

func (d *Dispatcher) forward(uow *core.UnitOfWork, namespace, table string) {
	ns, ok := d.tables[namespace]
	if !ok {
		uow.Reply(core.Reply{Err: &kvserr.TableNotFoundError{Namespace: namespace, Table: table}})
		return
	}
	ch, ok := ns[table]
	if !ok {
		uow.Reply(core.Reply{Err: &kvserr.TableNotFoundError{Namespace: namespace, Table: table}})
		return
	}
	ch <- uow
}
