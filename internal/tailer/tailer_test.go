package tailer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cannedoxygen/mainframe/internal/tailer"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTailer(t *testing.T, path string) *tailer.Tailer {
	t.Helper()
	tl := tailer.New(path, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := tl.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(tl.Stop)
	return tl
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
}

func expectLine(t *testing.T, tl *tailer.Tailer, want string) {
	t.Helper()
	select {
	case got, ok := <-tl.Lines():
		if !ok {
			t.Fatal("lines channel closed")
		}
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func expectNoLine(t *testing.T, tl *tailer.Tailer, within time.Duration) {
	t.Helper()
	select {
	case got := <-tl.Lines():
		t.Fatalf("unexpected line %q", got)
	case <-time.After(within):
	}
}

func TestEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.log")
	appendLine(t, path, "before monitoring")

	tl := startTailer(t, path)
	appendLine(t, path, "[agent1] first")
	expectLine(t, tl, "[agent1] first")
	appendLine(t, path, "[agent1] second")
	expectLine(t, tl, "[agent1] second")
}

func TestDoesNotReplayExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.log")
	appendLine(t, path, "historical entry")

	tl := startTailer(t, path)
	expectNoLine(t, tl, 1500*time.Millisecond)
}

func TestStartsBeforeFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.log")
	tl := startTailer(t, path)

	appendLine(t, path, "born late")
	expectLine(t, tl, "born late")
}

func TestSurvivesTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.log")
	tl := startTailer(t, path)

	appendLine(t, path, "a long line that pads the offset out")
	expectLine(t, tl, "a long line that pads the offset out")

	if err := os.Truncate(path, 0); err != nil {
		t.Fatal(err)
	}
	appendLine(t, path, "fresh")
	expectLine(t, tl, "fresh")
}

func TestSurvivesRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.log")
	tl := startTailer(t, path)

	appendLine(t, path, "pre-rotate")
	expectLine(t, tl, "pre-rotate")

	if err := os.Rename(path, filepath.Join(dir, "agents.log.1")); err != nil {
		t.Fatal(err)
	}
	appendLine(t, path, "post-rotate")
	expectLine(t, tl, "post-rotate")
}

func TestHoldsPartialLineUntilNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.log")
	tl := startTailer(t, path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	f.WriteString("[agent1] half a ")
	expectNoLine(t, tl, 1500*time.Millisecond)

	f.WriteString("whole line\n")
	expectLine(t, tl, "[agent1] half a whole line")
}

func TestReportsWatchLostWhenDirectoryRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "agents.log")
	appendLine(t, path, "seed")

	tl := startTailer(t, path)
	appendLine(t, path, "alive")
	expectLine(t, tl, "alive")

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-tl.Errors():
		if !errors.Is(err, tailer.ErrWatchLost) {
			t.Fatalf("got %v want ErrWatchLost", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no error reported after watched directory removed")
	}

	select {
	case _, ok := <-tl.Lines():
		if ok {
			t.Fatal("expected lines channel to close after fatal error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lines channel not closed after fatal error")
	}
}

func TestStopClosesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.log")
	tl := tailer.New(path, discardLogger())
	if err := tl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	tl.Stop()

	select {
	case _, ok := <-tl.Lines():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lines channel not closed after Stop")
	}
}
