// Package tailer follows an append-only log file and emits new lines.
package tailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatchLost is reported on Errors() when the underlying filesystem
// watch is permanently gone (e.g. the watched directory was deleted).
var ErrWatchLost = errors.New("tailer: filesystem watch lost")

const (
	// pollInterval is the fallback poll period for writes the watcher
	// missed. fsnotify can drop events under load.
	pollInterval = time.Second

	readRetryBase = 100 * time.Millisecond
	readRetryMax  = 5
)

// Tailer follows a single file from its end, emitting appended lines on
// Lines(). It starts before the file exists, and survives truncation
// and rotation. A permanently lost watch is reported on Errors().
type Tailer struct {
	path   string
	logger *slog.Logger

	lines chan string
	errs  chan error

	file    *os.File
	offset  int64
	partial []byte

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(path string, logger *slog.Logger) *Tailer {
	return &Tailer{
		path:   filepath.Clean(path),
		logger: logger,
		lines:  make(chan string, 64),
		errs:   make(chan error, 1),
		stop:   make(chan struct{}),
	}
}

// Lines is the stream of appended lines, without trailing newlines.
func (t *Tailer) Lines() <-chan string { return t.lines }

// Errors reports fatal conditions. At most one error is ever sent.
func (t *Tailer) Errors() <-chan error { return t.errs }

// Start begins following the file. The watch is released when ctx is
// cancelled or Stop is called.
func (t *Tailer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the parent directory so creation and rotation of the file
	// itself are observed.
	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if err := t.openAtEnd(); err != nil {
		t.logger.Warn("tailer: file not readable yet, waiting", "path", t.path, "err", err)
	}

	t.wg.Add(1)
	go t.run(ctx, watcher)
	return nil
}

// Stop releases the watch and file handle and closes Lines().
func (t *Tailer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.wg.Wait()
}

// openAtEnd opens the file and positions the read offset at its current
// end so pre-existing content is not replayed.
func (t *Tailer) openAtEnd() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return err
	}
	t.file = f
	t.offset = end
	return nil
}

func (t *Tailer) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer t.wg.Done()
	defer close(t.lines)
	defer watcher.Close()
	defer func() {
		if t.file != nil {
			t.file.Close()
			t.file = nil
		}
	}()

	dir := filepath.Dir(t.path)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				t.fatal(ErrWatchLost)
				return
			}
			if filepath.Clean(ev.Name) == dir && (ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)) {
				// The watched directory itself is gone; the kernel has
				// already dropped the watch and it will never come back.
				t.fatal(ErrWatchLost)
				return
			}
			if filepath.Clean(ev.Name) != t.path {
				continue
			}
			switch {
			case ev.Op.Has(fsnotify.Create):
				t.reopenFromStart()
			case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
				if t.file != nil {
					t.file.Close()
					t.file = nil
				}
				t.partial = t.partial[:0]
			case ev.Op.Has(fsnotify.Write):
				if !t.readNew(ctx) {
					return
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				t.fatal(ErrWatchLost)
				return
			}
			t.logger.Warn("tailer: watch error", "err", err)
		case <-ticker.C:
			if _, err := os.Stat(dir); err != nil {
				// Removal of the directory can slip past fsnotify; the
				// poll is the backstop.
				t.fatal(ErrWatchLost)
				return
			}
			if !t.readNew(ctx) {
				return
			}
		}
	}
}

// reopenFromStart starts reading a freshly created file from offset 0.
func (t *Tailer) reopenFromStart() {
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	f, err := os.Open(t.path)
	if err != nil {
		t.logger.Warn("tailer: open after create failed", "err", err)
		return
	}
	t.file = f
	t.offset = 0
	t.partial = t.partial[:0]
}

// readNew drains appended bytes and emits complete lines. Returns false
// when the tailer should shut down (context cancelled or stopped while
// emitting).
func (t *Tailer) readNew(ctx context.Context) bool {
	if t.file == nil {
		// File may have appeared without a create event (poll path).
		f, err := os.Open(t.path)
		if err != nil {
			return true
		}
		t.file = f
		t.offset = 0
	}

	info, err := t.file.Stat()
	if err != nil {
		t.logger.Warn("tailer: stat failed", "err", err)
		return true
	}
	if info.Size() < t.offset {
		// Truncated or replaced in place: resume from the new start.
		t.logger.Info("tailer: file truncated, rereading from start", "path", t.path)
		if _, err := t.file.Seek(0, io.SeekStart); err != nil {
			t.logger.Warn("tailer: seek failed", "err", err)
			return true
		}
		t.offset = 0
		t.partial = t.partial[:0]
	}

	buf := make([]byte, 64*1024)
	for attempt := 0; ; {
		n, err := t.file.ReadAt(buf, t.offset)
		if n > 0 {
			t.offset += int64(n)
			if !t.emit(ctx, buf[:n]) {
				return false
			}
			attempt = 0
		}
		if err == io.EOF {
			return true
		}
		if err != nil {
			attempt++
			if attempt > readRetryMax {
				t.logger.Error("tailer: read failed after retries", "err", err)
				return true
			}
			delay := readRetryBase << (attempt - 1)
			t.logger.Warn("tailer: transient read error, retrying", "err", err, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false
			case <-t.stop:
				return false
			}
		}
	}
}

// emit splits chunk into lines, carrying any trailing partial line until
// its newline arrives.
func (t *Tailer) emit(ctx context.Context, chunk []byte) bool {
	data := append(t.partial, chunk...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(data[:i], "\r"))
		data = data[i+1:]
		if line == "" {
			continue
		}
		select {
		case t.lines <- line:
		case <-ctx.Done():
			return false
		case <-t.stop:
			return false
		}
	}
	t.partial = append(t.partial[:0], data...)
	return true
}

func (t *Tailer) fatal(err error) {
	select {
	case t.errs <- err:
	default:
	}
}
