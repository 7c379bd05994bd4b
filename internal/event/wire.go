package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cannedoxygen/mainframe/internal/agent"
)

// Frame type tags used on the wire. Every server-to-client frame carries
// one of these in its "type" field.
const (
	FrameSystemStatus  = "system_status"
	FrameAgentStatus   = "agent_status"
	FrameAgentMessage  = "agent_message"
	FrameSystemMessage = "system_message"
	FrameCriticalError = "critical_error"
)

// SystemStatus is the payload of a system_status frame. Zero-valued
// fields are omitted so a reset notification is just {"reset":true}.
type SystemStatus struct {
	Booted           bool     `json:"booted,omitempty"`
	ConnectionStatus string   `json:"connectionStatus,omitempty"`
	ActiveAgents     []string `json:"activeAgents,omitempty"`
	Reset            bool     `json:"reset,omitempty"`
}

type SystemStatusFrame struct {
	Type   string       `json:"type"`
	Status SystemStatus `json:"status"`
}

// AgentStatusFrame carries the full agent roster. Sent once per
// connection, immediately after system_status.
type AgentStatusFrame struct {
	Type         string                 `json:"type"`
	ActiveAgents []string               `json:"activeAgents"`
	Agents       map[string]agent.Agent `json:"agents"`
}

type AgentMessageFrame struct {
	Type        string            `json:"type"`
	AgentID     string            `json:"agentId"`
	MessageType Kind              `json:"messageType"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Seq         uint64            `json:"seq"`
}

type SystemMessageFrame struct {
	Type    string `json:"type"`
	Level   string `json:"level"`
	Content string `json:"content"`
}

type CriticalErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Command is the only client-to-server frame. Unknown command strings
// are ignored by the server.
type Command struct {
	Command string `json:"command"`
}

const CommandReset = "reset"

// Frame converts an event into its wire representation: agent-scoped
// kinds become agent_message frames, SYSTEM_CRITICAL becomes a
// critical_error frame and the remaining system kinds become
// system_message frames.
func Frame(e Event) any {
	if e.Kind.AgentScoped() {
		return AgentMessageFrame{
			Type:        FrameAgentMessage,
			AgentID:     e.AgentID,
			MessageType: e.Kind,
			Content:     e.Content,
			Metadata:    e.Metadata,
			Timestamp:   e.Timestamp,
			Seq:         e.Seq,
		}
	}
	if e.Kind == KindSystemCritical {
		return CriticalErrorFrame{Type: FrameCriticalError, Error: e.Content}
	}
	return SystemMessageFrame{
		Type:    FrameSystemMessage,
		Level:   e.Kind.SystemLevel(),
		Content: e.Content,
	}
}

// ParseFrame decodes a server-to-client frame by its type tag. Used by
// the viewer client; the concrete type of the returned value matches the
// frame kind.
func ParseFrame(data []byte) (any, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	switch tag.Type {
	case FrameSystemStatus:
		var f SystemStatusFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameAgentStatus:
		var f AgentStatusFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameAgentMessage:
		var f AgentMessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameSystemMessage:
		var f SystemMessageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case FrameCriticalError:
		var f CriticalErrorFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown frame type %q", tag.Type)
}
