package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cannedoxygen/mainframe/internal/event"
	"github.com/cannedoxygen/mainframe/internal/wsclient"
)

// FormatMessage renders one agent_message frame as pane text. Tweets
// get the captured tweet body on its own indented line.
func FormatMessage(f event.AgentMessageFrame) string {
	ts := f.Timestamp.Local().Format("15:04:05")
	line := fmt.Sprintf("[%s] %-10s %s", ts, f.MessageType, f.Content)
	if tweet, ok := f.Metadata["tweetContent"]; ok && tweet != "" {
		line += fmt.Sprintf("\n           > %q", tweet)
	}
	return line
}

// FormatStatus renders the status bar line.
func FormatStatus(state wsclient.State, received int, since time.Time) string {
	if since.IsZero() {
		return fmt.Sprintf(" %s", state)
	}
	return fmt.Sprintf(" %s · %s events · up %s",
		state, humanize.Comma(int64(received)), humanize.Time(since))
}
