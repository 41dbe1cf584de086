package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bamsammich/migrate/internal/event"
	"github.com/bamsammich/migrate/internal/stats"
)

// Config configures a Reporter.
type Config struct {
	Writer io.Writer // usually a *RunLog
	Stats  *stats.Collector
	Quiet  bool // drop per-file success and skip lines
}

// Reporter renders engine events as plain text lines. Every record is
// formatted first and handed to the writer in a single Write, so records
// from concurrent file workers stay whole.
type Reporter struct {
	w     io.Writer
	stats *stats.Collector
	quiet bool

	mu    sync.Mutex
	dirs  []event.Event
	pairs []event.Event
}

// NewReporter returns a Reporter writing to cfg.Writer.
func NewReporter(cfg Config) *Reporter {
	return &Reporter{w: cfg.Writer, stats: cfg.Stats, quiet: cfg.Quiet}
}

// Start prints the run banner.
func (r *Reporter) Start(version string, now time.Time) {
	r.write(fmt.Sprintf("migrate %s: %s\n", version, now.Format(time.ANSIC)))
}

// Emit implements event.Sink.
func (r *Reporter) Emit(ev event.Event) {
	if s := r.render(ev); s != "" {
		r.write(s)
	}
}

func (r *Reporter) render(ev event.Event) string {
	switch ev.Type {
	case event.DirDiscovered:
		r.mu.Lock()
		r.dirs = append(r.dirs, ev)
		r.mu.Unlock()
	case event.DiscoveryComplete:
		return r.discoveryPreview(ev)
	case event.PairPlanned:
		r.mu.Lock()
		r.pairs = append(r.pairs, ev)
		r.mu.Unlock()
	case event.PlanComplete:
		return r.planPreview(ev)
	case event.DirStarted:
		return fmt.Sprintf("dir  %s -> %s\n", ev.Src, ev.Dst)
	case event.DirCreated:
		return fmt.Sprintf("mkdir  %s  empty directory\n", ev.Dst)
	case event.DirSkipped:
		if r.quiet {
			return ""
		}
		return fmt.Sprintf("skip  %s -> %s  all %d files verified earlier\n", ev.Src, ev.Dst, ev.Files)
	case event.DirFailed:
		return fmt.Sprintf("FAILED  %s  %v\n", ev.Dst, ev.Error)
	case event.DirCompleted:
		return fmt.Sprintf("Directory copied. %d files, %d errors.\n\n", ev.Files, ev.Errors)
	case event.FileCopied:
		if r.quiet {
			return ""
		}
		return fmt.Sprintf("ok  %s -> %s  %s:%s  %s\n",
			ev.Src, ev.Dst, ev.Algorithm, ev.Digest, FormatBytes(ev.Size))
	case event.FileFailed:
		return fileFailedLine(ev)
	case event.FileSkipped:
		if r.quiet {
			return ""
		}
		return fmt.Sprintf("skip  %s  verified earlier\n", ev.Src)
	case event.MigrationComplete:
		s := fmt.Sprintf("All done. %d files copied. %d errors.\n", ev.Files, ev.Errors)
		if r.stats != nil {
			s += completionSummary(r.stats.Snapshot()) + "\n"
		}
		return s
	}
	return ""
}

func (r *Reporter) discoveryPreview(ev event.Event) string {
	r.mu.Lock()
	dirs := r.dirs
	r.dirs = nil
	r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Source directory: %s\n", ev.Src)
	fmt.Fprintf(&b, "Found %d directories...\n", ev.Dirs)
	for _, d := range dirs {
		fmt.Fprintf(&b, "%s  %d files\n", d.Src, d.Files)
	}
	fmt.Fprintf(&b, "Total %d files (%s).\n", ev.Files, FormatBytes(ev.Size))
	return b.String()
}

func (r *Reporter) planPreview(ev event.Event) string {
	r.mu.Lock()
	pairs := r.pairs
	r.pairs = nil
	r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Target directory: %s\n", ev.Dst)
	for _, p := range pairs {
		fmt.Fprintf(&b, "Will copy %s -> %s\n", p.Src, p.Dst)
	}
	fmt.Fprintf(&b, "Plan %s: %d directories, %d files, %s.\n",
		ev.Digest, ev.Dirs, ev.Files, FormatBytes(ev.Size))
	return b.String()
}

func fileFailedLine(ev event.Event) string {
	if ev.SrcDigest != "" && ev.DstDigest != "" {
		return fmt.Sprintf("FAILED  %s -> %s  checksum mismatch: source %s:%s, target %s:%s\n",
			ev.Src, ev.Dst, ev.Algorithm, ev.SrcDigest, ev.Algorithm, ev.DstDigest)
	}
	return fmt.Sprintf("FAILED  %s -> %s  %v\n", ev.Src, ev.Dst, ev.Error)
}

func (r *Reporter) write(s string) {
	_, _ = io.WriteString(r.w, s)
}
