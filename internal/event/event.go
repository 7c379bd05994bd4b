package event

import "time"

// Kind classifies a single log-derived event.
type Kind string

const (
	KindThinking   Kind = "THINKING"
	KindProcessing Kind = "PROCESSING"
	KindTweet      Kind = "TWEET"
	KindError      Kind = "ERROR"
	KindStatus     Kind = "STATUS"
	KindLog        Kind = "LOG"

	KindSystemInfo     Kind = "SYSTEM_INFO"
	KindSystemWarning  Kind = "SYSTEM_WARNING"
	KindSystemCritical Kind = "SYSTEM_CRITICAL"
)

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindThinking, KindProcessing, KindTweet, KindError, KindStatus,
		KindLog, KindSystemInfo, KindSystemWarning, KindSystemCritical:
		return true
	}
	return false
}

// AgentScoped reports whether events of this kind must carry an agent ID.
func (k Kind) AgentScoped() bool {
	switch k {
	case KindThinking, KindProcessing, KindTweet, KindError, KindStatus, KindLog:
		return true
	}
	return false
}

// SystemLevel maps a system-scoped kind to its wire level string.
// Returns "" for agent-scoped kinds.
func (k Kind) SystemLevel() string {
	switch k {
	case KindSystemInfo:
		return "info"
	case KindSystemWarning:
		return "warning"
	case KindSystemCritical:
		return "critical"
	}
	return ""
}

// Event is one structured unit derived from a single log line. The parser
// fills AgentID, Kind, Content and Metadata; the router stamps Timestamp
// and Seq at dispatch.
type Event struct {
	AgentID   string            `json:"agentId,omitempty"`
	Kind      Kind              `json:"kind"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Seq       uint64            `json:"seq"`
}

// Broadcaster delivers events to connected viewers.
// A nil Broadcaster is safe to use -- Broadcast becomes a no-op.
type Broadcaster interface {
	Broadcast(e Event)
}
