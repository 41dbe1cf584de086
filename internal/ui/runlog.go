package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunLogTimeFormat names per-run log files. It sorts lexically and
// contains no characters that are awkward in file names.
const RunLogTimeFormat = "2006-01-02T15-04-05"

// RunLog duplicates operator-facing output to a fixed set of sinks chosen
// at startup, normally the console and a per-run log file. Each Write
// reaches every sink before the next Write starts, so lines from
// concurrent workers never interleave.
type RunLog struct {
	mu    sync.Mutex
	sinks []io.Writer
	file  *os.File
	path  string
}

// NewRunLog returns a RunLog over sinks. It owns no files.
func NewRunLog(sinks ...io.Writer) *RunLog {
	return &RunLog{sinks: sinks}
}

// OpenRunLog creates migrate_<timestamp>.log in dir and returns a RunLog
// writing to console and that file. An existing file is never reused; a
// second run within the same second gets a short random suffix.
func OpenRunLog(dir string, now time.Time, console io.Writer) (*RunLog, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	base := "migrate_" + now.Format(RunLogTimeFormat)
	path := filepath.Join(dir, base+".log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		path = filepath.Join(dir, base+"_"+uuid.NewString()[:8]+".log")
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}

	sinks := []io.Writer{f}
	if console != nil {
		sinks = []io.Writer{console, f}
	}
	return &RunLog{sinks: sinks, file: f, path: path}, nil
}

// Write writes p to every sink. All sinks are attempted; the first error
// is returned.
func (l *RunLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, w := range l.sinks {
		if _, err := w.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return len(p), nil
}

// Println writes the operands and a trailing newline as one write.
func (l *RunLog) Println(a ...any) {
	_, _ = l.Write([]byte(fmt.Sprintln(a...)))
}

// Path returns the log file path, or "" when the RunLog owns no file.
func (l *RunLog) Path() string {
	return l.path
}

// Close syncs and closes the log file. It is safe to call more than once.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	l.sinks = removeSink(l.sinks, f)
	return errors.Join(f.Sync(), f.Close())
}

func removeSink(sinks []io.Writer, w io.Writer) []io.Writer {
	out := sinks[:0]
	for _, s := range sinks {
		if s != w {
			out = append(out, s)
		}
	}
	return out
}
