// Package router stamps parsed events and forwards them for broadcast.
package router

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cannedoxygen/mainframe/internal/agent"
	"github.com/cannedoxygen/mainframe/internal/event"
)

// Router assigns dispatch metadata to events and hands them to the hub.
// Routing is synchronous: there is no buffering here.
type Router struct {
	reg    *agent.Registry
	hub    event.Broadcaster
	logger *slog.Logger
	seq    atomic.Uint64
	now    func() time.Time
}

func New(reg *agent.Registry, hub event.Broadcaster, logger *slog.Logger) *Router {
	return &Router{
		reg:    reg,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// SetNow replaces the time source. Used in tests only.
func (r *Router) SetNow(fn func() time.Time) { r.now = fn }

// Route stamps the event with a dispatch timestamp and a strictly
// increasing sequence number, then forwards it. The counter spans the
// process lifetime and is never reset, not even by a viewer reset.
//
// An agent-scoped event referencing an agent the registry does not know
// is downgraded to a system warning rather than dropped, so a
// malfunctioning agent stays visible to operators.
func (r *Router) Route(e event.Event) {
	e.Timestamp = r.now()
	e.Seq = r.seq.Add(1)

	if e.Kind.AgentScoped() {
		if _, ok := r.reg.Lookup(e.AgentID); !ok {
			r.logger.Warn("router: event from unknown agent", "agentId", e.AgentID, "kind", string(e.Kind))
			e = event.Event{
				Kind:      event.KindSystemWarning,
				Content:   fmt.Sprintf("unrecognized agent %q: %s", e.AgentID, e.Content),
				Timestamp: e.Timestamp,
				Seq:       e.Seq,
			}
		}
	}

	if r.hub != nil {
		r.hub.Broadcast(e)
	}
}
