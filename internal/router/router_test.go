package router_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cannedoxygen/mainframe/internal/agent"
	"github.com/cannedoxygen/mainframe/internal/event"
	"github.com/cannedoxygen/mainframe/internal/router"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureBroadcaster struct {
	events []event.Event
}

func (c *captureBroadcaster) Broadcast(e event.Event) {
	c.events = append(c.events, e)
}

func TestRouteStampsSequenceAndTime(t *testing.T) {
	cap := &captureBroadcaster{}
	r := router.New(agent.NewRegistry(agent.DefaultRoster()), cap, discardLogger())
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r.SetNow(func() time.Time { return fixed })

	r.Route(event.Event{AgentID: "agent1", Kind: event.KindThinking, Content: "a"})
	r.Route(event.Event{AgentID: "agent1", Kind: event.KindProcessing, Content: "b"})

	if len(cap.events) != 2 {
		t.Fatalf("got %d events", len(cap.events))
	}
	if cap.events[0].Seq != 1 || cap.events[1].Seq != 2 {
		t.Errorf("sequence: got %d, %d", cap.events[0].Seq, cap.events[1].Seq)
	}
	if !cap.events[0].Timestamp.Equal(fixed) {
		t.Errorf("timestamp: got %v", cap.events[0].Timestamp)
	}
}

func TestRouteSequenceMonotonic(t *testing.T) {
	cap := &captureBroadcaster{}
	r := router.New(agent.NewRegistry(agent.DefaultRoster()), cap, discardLogger())

	for i := 0; i < 100; i++ {
		r.Route(event.Event{AgentID: "agent2", Kind: event.KindLog, Content: "x"})
	}
	for i := 1; i < len(cap.events); i++ {
		if cap.events[i].Seq <= cap.events[i-1].Seq {
			t.Fatalf("sequence not increasing at %d: %d then %d", i, cap.events[i-1].Seq, cap.events[i].Seq)
		}
	}
}

func TestRouteDowngradesUnknownAgent(t *testing.T) {
	cap := &captureBroadcaster{}
	r := router.New(agent.NewRegistry(agent.DefaultRoster()), cap, discardLogger())

	r.Route(event.Event{AgentID: "agent42", Kind: event.KindTweet, Content: "hello"})

	if len(cap.events) != 1 {
		t.Fatal("unknown-agent event must not be dropped")
	}
	got := cap.events[0]
	if got.Kind != event.KindSystemWarning {
		t.Errorf("kind: got %s want SYSTEM_WARNING", got.Kind)
	}
	if got.AgentID != "" {
		t.Errorf("agentId should be cleared, got %q", got.AgentID)
	}
	if !strings.Contains(got.Content, "agent42") || !strings.Contains(got.Content, "hello") {
		t.Errorf("content should mention the agent and original text: %q", got.Content)
	}
	if got.Seq == 0 {
		t.Error("downgraded event still consumes a sequence number")
	}
}

func TestRouteSystemEventsPassThrough(t *testing.T) {
	cap := &captureBroadcaster{}
	r := router.New(agent.NewRegistry(agent.DefaultRoster()), cap, discardLogger())

	r.Route(event.Event{Kind: event.KindSystemInfo, Content: "boot"})

	if len(cap.events) != 1 || cap.events[0].Kind != event.KindSystemInfo {
		t.Fatalf("got %+v", cap.events)
	}
}
