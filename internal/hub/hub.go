// Package hub owns the set of connected viewer sessions and fans
// published events out to all of them.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cannedoxygen/mainframe/internal/agent"
	"github.com/cannedoxygen/mainframe/internal/event"
)

// sendBuffer is the per-session frame queue depth. A session whose
// queue is full is considered broken and is dropped.
const sendBuffer = 64

// Session is one connected viewer. The hub owns its lifecycle; the
// transport layer only reads Frames and reports closure.
type Session struct {
	ID       string
	OpenedAt time.Time
	send     chan []byte
}

func NewSession() *Session {
	return &Session{
		ID:       uuid.NewString(),
		OpenedAt: time.Now(),
		send:     make(chan []byte, sendBuffer),
	}
}

// Frames is the stream of marshaled frames to write to the transport.
// It is closed when the hub drops the session.
func (s *Session) Frames() <-chan []byte { return s.send }

type command struct {
	sess *Session
	raw  []byte
}

// Hub serializes all mutation of the session set and the recent-event
// buffer on a single goroutine (Run). All exported methods communicate
// with that goroutine over channels.
type Hub struct {
	reg      *agent.Registry
	capacity int
	logger   *slog.Logger

	register   chan *Session
	unregister chan *Session
	publish    chan event.Event
	commands   chan command
	bufferLen  chan chan int

	sessions map[*Session]struct{}
	recent   []event.Event

	done chan struct{}
}

// New creates a hub. capacity bounds the recent-event buffer; zero or
// negative means unbounded (the buffer is still cleared on reset).
func New(reg *agent.Registry, capacity int, logger *slog.Logger) *Hub {
	return &Hub{
		reg:        reg,
		capacity:   capacity,
		logger:     logger,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		publish:    make(chan event.Event, 64),
		commands:   make(chan command, 16),
		bufferLen:  make(chan chan int),
		sessions:   make(map[*Session]struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes hub traffic until ctx is cancelled. It must be running
// for any other method to make progress.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				h.drop(s)
			}
			return
		case s := <-h.register:
			h.add(s)
		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				h.drop(s)
			}
		case e := <-h.publish:
			h.fanout(e)
		case c := <-h.commands:
			h.handleCommand(c.sess, c.raw)
		case reply := <-h.bufferLen:
			reply <- len(h.recent)
		}
	}
}

// Register adds a session and queues its snapshot frames ahead of any
// live event.
func (h *Hub) Register(s *Session) {
	select {
	case h.register <- s:
	case <-h.done:
	}
}

// Unregister drops a session after a transport close or send error.
// Dropping a session that is already gone is a no-op.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Broadcast implements event.Broadcaster. Events are delivered to every
// open session in publish order.
func (h *Hub) Broadcast(e event.Event) {
	select {
	case h.publish <- e:
	case <-h.done:
	}
}

// Command submits a raw client frame for processing. Commands from one
// session are handled in the order received.
func (h *Hub) Command(s *Session, raw []byte) {
	select {
	case h.commands <- command{sess: s, raw: raw}:
	case <-h.done:
	}
}

// BufferLen reports the current recent-buffer size. Returns 0 once the
// hub has stopped.
func (h *Hub) BufferLen() int {
	reply := make(chan int, 1)
	select {
	case h.bufferLen <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) add(s *Session) {
	ids := h.reg.IDs()
	statusFrame, err := json.Marshal(event.SystemStatusFrame{
		Type: event.FrameSystemStatus,
		Status: event.SystemStatus{
			Booted:           true,
			ConnectionStatus: "connected",
			ActiveAgents:     ids,
		},
	})
	if err != nil {
		h.logger.Error("hub: marshal snapshot", "err", err)
		return
	}
	agentsFrame, err := json.Marshal(event.AgentStatusFrame{
		Type:         event.FrameAgentStatus,
		ActiveAgents: ids,
		Agents:       h.reg.All(),
	})
	if err != nil {
		h.logger.Error("hub: marshal snapshot", "err", err)
		return
	}

	// The snapshot goes into the session queue before the session joins
	// the fan-out set, so a viewer always sees it before live traffic.
	s.send <- statusFrame
	s.send <- agentsFrame
	h.sessions[s] = struct{}{}
	h.logger.Info("hub: session connected", "session", s.ID, "open", len(h.sessions))
}

func (h *Hub) drop(s *Session) {
	delete(h.sessions, s)
	close(s.send)
	h.logger.Info("hub: session closed", "session", s.ID, "open", len(h.sessions))
}

// fanout delivers one event to every open session, best effort. A
// session that cannot keep up is dropped; the others are unaffected.
func (h *Hub) fanout(e event.Event) {
	h.recent = append(h.recent, e)
	if h.capacity > 0 && len(h.recent) > h.capacity {
		h.recent = h.recent[len(h.recent)-h.capacity:]
	}

	data, err := json.Marshal(event.Frame(e))
	if err != nil {
		h.logger.Error("hub: marshal event", "err", err, "seq", e.Seq)
		return
	}
	h.send(data)
}

func (h *Hub) send(data []byte) {
	for s := range h.sessions {
		select {
		case s.send <- data:
		default:
			h.logger.Warn("hub: dropping slow session", "session", s.ID)
			h.drop(s)
		}
	}
}

// handleCommand processes one viewer command frame. Malformed JSON and
// unknown commands are ignored; they are not protocol errors.
func (h *Hub) handleCommand(s *Session, raw []byte) {
	var cmd event.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		h.logger.Debug("hub: malformed command", "session", s.ID, "err", err)
		return
	}
	switch cmd.Command {
	case event.CommandReset:
		h.reset()
	default:
		h.logger.Debug("hub: unknown command", "session", s.ID, "command", cmd.Command)
	}
}

// reset clears the recent-event buffer and tells every session,
// including the one that asked.
func (h *Hub) reset() {
	h.recent = h.recent[:0]
	data, err := json.Marshal(event.SystemStatusFrame{
		Type:   event.FrameSystemStatus,
		Status: event.SystemStatus{Reset: true},
	})
	if err != nil {
		return
	}
	h.logger.Info("hub: reset", "sessions", len(h.sessions))
	h.send(data)
}
