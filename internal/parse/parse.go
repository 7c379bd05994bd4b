// Package parse converts raw log lines into structured events.
package parse

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cannedoxygen/mainframe/internal/event"
)

// agentMarker matches "[agent3] rest" or "agent3: rest" at line start.
var agentMarker = regexp.MustCompile(`^\[(agent\d+)\]\s*:?\s*|^(agent\d+)\s*:\s*`)

// tweetText captures the quoted tweet body after a tweet marker.
var tweetText = regexp.MustCompile(`(?i)tweet:?\s*["'](.+?)["']`)

// systemMarker matches "[system]" or a leading level tag such as "WARN:".
var systemMarker = regexp.MustCompile(`(?i)^\[system\]\s*|^(INFO|WARN|WARNING|ERROR|CRITICAL)\s*:?\s+`)

// Parse converts one raw log line into an event, or nil when the line
// matches no recognized pattern. It is pure: it never consults the
// clock, so Timestamp and Seq are left zero for the router to stamp.
func Parse(rawLine string) *event.Event {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return nil
	}

	if m := agentMarker.FindStringSubmatch(line); m != nil {
		agentID := m[1]
		if agentID == "" {
			agentID = m[2]
		}
		rest := strings.TrimSpace(line[len(m[0]):])
		if rest == "" {
			return nil
		}
		return agentEvent(agentID, rest)
	}

	if m := systemMarker.FindStringSubmatch(line); m != nil {
		rest := strings.TrimSpace(line[len(m[0]):])
		if rest == "" {
			return nil
		}
		kind := event.KindSystemInfo
		switch strings.ToUpper(m[1]) {
		case "WARN", "WARNING":
			kind = event.KindSystemWarning
		case "ERROR", "CRITICAL":
			kind = event.KindSystemCritical
		}
		return &event.Event{Kind: kind, Content: rest}
	}

	return nil
}

// agentEvent classifies the text following an agent marker.
func agentEvent(agentID, text string) *event.Event {
	if strings.HasPrefix(text, "{") {
		return fromJSON(agentID, text)
	}

	if m := tweetText.FindStringSubmatch(text); m != nil {
		return &event.Event{
			AgentID:  agentID,
			Kind:     event.KindTweet,
			Content:  text,
			Metadata: map[string]string{"tweetContent": m[1]},
		}
	}

	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "thinking", "analyzing", "considering", "evaluating"):
		return &event.Event{AgentID: agentID, Kind: event.KindThinking, Content: text}
	case containsAny(lower, "processing", "formulating", "generating"):
		return &event.Event{AgentID: agentID, Kind: event.KindProcessing, Content: text}
	case containsAny(lower, "error", "failed", "exception"):
		return &event.Event{AgentID: agentID, Kind: event.KindError, Content: text}
	case strings.Contains(lower, "status"):
		return &event.Event{AgentID: agentID, Kind: event.KindStatus, Content: text}
	}
	return &event.Event{AgentID: agentID, Kind: event.KindLog, Content: text}
}

// fromJSON handles structured fragments emitted by agents. A fragment
// that fails to decode degrades to a plain LOG event carrying the raw
// text; a bad line never aborts the pipeline.
func fromJSON(agentID, text string) *event.Event {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return &event.Event{AgentID: agentID, Kind: event.KindLog, Content: text}
	}

	if tweet, ok := str(fields, "tweet"); ok {
		return &event.Event{
			AgentID:  agentID,
			Kind:     event.KindTweet,
			Content:  "Tweet prepared and ready to send:",
			Metadata: map[string]string{"tweetContent": tweet},
		}
	}
	if v, ok := str(fields, "thinking"); ok {
		return &event.Event{AgentID: agentID, Kind: event.KindThinking, Content: v}
	}
	if v, ok := str(fields, "error"); ok {
		return &event.Event{AgentID: agentID, Kind: event.KindError, Content: v}
	}
	if v, ok := str(fields, "status"); ok {
		return &event.Event{AgentID: agentID, Kind: event.KindStatus, Content: v}
	}
	if v, ok := str(fields, "log"); ok {
		return &event.Event{AgentID: agentID, Kind: event.KindLog, Content: v}
	}
	if v, ok := str(fields, "content"); ok {
		return &event.Event{AgentID: agentID, Kind: event.KindProcessing, Content: v}
	}
	return &event.Event{AgentID: agentID, Kind: event.KindLog, Content: text}
}

func str(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
