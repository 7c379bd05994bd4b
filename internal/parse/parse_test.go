package parse_test

import (
	"reflect"
	"testing"

	"github.com/cannedoxygen/mainframe/internal/event"
	"github.com/cannedoxygen/mainframe/internal/parse"
)

func TestParseDropsNoise(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"npm WARN deprecated left-pad@1.0.0",
		"GET /healthz 200 0.4ms",
		"random chatter with no marker",
		"[agent2]",
	} {
		if e := parse.Parse(line); e != nil {
			t.Errorf("Parse(%q) = %+v, want nil", line, e)
		}
	}
}

func TestParseTweetMarker(t *testing.T) {
	e := parse.Parse(`[agent2] tweet: "Buy the dip"`)
	if e == nil {
		t.Fatal("expected event")
	}
	if e.Kind != event.KindTweet {
		t.Errorf("kind: got %s want TWEET", e.Kind)
	}
	if e.AgentID != "agent2" {
		t.Errorf("agent: got %q", e.AgentID)
	}
	if e.Metadata["tweetContent"] != "Buy the dip" {
		t.Errorf("tweetContent: got %q", e.Metadata["tweetContent"])
	}
}

func TestParseKeywordHeuristics(t *testing.T) {
	cases := []struct {
		line string
		kind event.Kind
	}{
		{"[agent1] Thinking about market structure", event.KindThinking},
		{"agent1: Analyzing sentiment across feeds", event.KindThinking},
		{"[agent4] Processing reply queue", event.KindProcessing},
		{"[agent5] error: rate limit exceeded", event.KindError},
		{"[agent6] status idle", event.KindStatus},
		{"[agent7] fetched 14 documents", event.KindLog},
	}
	for _, tc := range cases {
		e := parse.Parse(tc.line)
		if e == nil {
			t.Errorf("Parse(%q) = nil", tc.line)
			continue
		}
		if e.Kind != tc.kind {
			t.Errorf("Parse(%q) kind: got %s want %s", tc.line, e.Kind, tc.kind)
		}
	}
}

func TestParseSystemLines(t *testing.T) {
	cases := []struct {
		line string
		kind event.Kind
	}{
		{"[system] feeds refreshed", event.KindSystemInfo},
		{"INFO: scheduler started", event.KindSystemInfo},
		{"WARN: queue depth high", event.KindSystemWarning},
		{"CRITICAL: watchdog tripped", event.KindSystemCritical},
	}
	for _, tc := range cases {
		e := parse.Parse(tc.line)
		if e == nil {
			t.Errorf("Parse(%q) = nil", tc.line)
			continue
		}
		if e.Kind != tc.kind {
			t.Errorf("Parse(%q) kind: got %s want %s", tc.line, e.Kind, tc.kind)
		}
		if e.AgentID != "" {
			t.Errorf("Parse(%q) should be system-scoped, got agent %q", tc.line, e.AgentID)
		}
	}
}

func TestParseJSONFields(t *testing.T) {
	e := parse.Parse(`[agent3] {"tweet":"gm to everyone who held"}`)
	if e == nil || e.Kind != event.KindTweet {
		t.Fatalf("got %+v", e)
	}
	if e.Metadata["tweetContent"] != "gm to everyone who held" {
		t.Errorf("tweetContent: got %q", e.Metadata["tweetContent"])
	}

	e = parse.Parse(`[agent3] {"thinking":"weighing options"}`)
	if e == nil || e.Kind != event.KindThinking || e.Content != "weighing options" {
		t.Errorf("got %+v", e)
	}
}

func TestParseMalformedJSONDegrades(t *testing.T) {
	line := `[agent3] {"tweet":"truncated`
	e := parse.Parse(line)
	if e == nil {
		t.Fatal("malformed JSON must not drop the line")
	}
	if e.Kind != event.KindLog {
		t.Errorf("kind: got %s want LOG", e.Kind)
	}
	if e.Content == "" {
		t.Error("content should carry the raw text")
	}
}

func TestParseIsPure(t *testing.T) {
	line := `[agent1] Analyzing recent trends about crypto...`
	a := parse.Parse(line)
	b := parse.Parse(line)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical input produced different events: %+v vs %+v", a, b)
	}
	if !a.Timestamp.IsZero() || a.Seq != 0 {
		t.Error("parser must not stamp timestamp or sequence")
	}
}
