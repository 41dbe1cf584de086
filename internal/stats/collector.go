package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector tracks migration counters using lock-free atomics so file
// workers can update it concurrently.
type Collector struct {
	filesAttempted atomic.Int64
	filesCopied    atomic.Int64
	filesFailed    atomic.Int64
	filesSkipped   atomic.Int64
	copyFailures   atomic.Int64
	mismatches     atomic.Int64
	bytesCopied    atomic.Int64
	dirsCreated    atomic.Int64
	dirsFailed     atomic.Int64
	dirsSkipped    atomic.Int64
	dirsCompleted  atomic.Int64
	filesTotal     atomic.Int64
	bytesTotal     atomic.Int64
	startTime      time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotals records the discovery totals (called once, before execution).
func (c *Collector) SetTotals(files, bytes int64) {
	c.filesTotal.Store(files)
	c.bytesTotal.Store(bytes)
}

func (c *Collector) AddFilesAttempted(n int64) { c.filesAttempted.Add(n) }
func (c *Collector) AddFilesCopied(n int64)    { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)    { c.filesFailed.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)   { c.filesSkipped.Add(n) }
func (c *Collector) AddCopyFailures(n int64)   { c.copyFailures.Add(n) }
func (c *Collector) AddMismatches(n int64)     { c.mismatches.Add(n) }
func (c *Collector) AddBytesCopied(n int64)    { c.bytesCopied.Add(n) }
func (c *Collector) AddDirsCreated(n int64)    { c.dirsCreated.Add(n) }
func (c *Collector) AddDirsFailed(n int64)     { c.dirsFailed.Add(n) }
func (c *Collector) AddDirsSkipped(n int64)    { c.dirsSkipped.Add(n) }
func (c *Collector) AddDirsCompleted(n int64)  { c.dirsCompleted.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesAttempted int64
	FilesCopied    int64
	FilesFailed    int64
	FilesSkipped   int64
	CopyFailures   int64
	Mismatches     int64
	BytesCopied    int64
	DirsCreated    int64
	DirsFailed     int64
	DirsSkipped    int64
	DirsCompleted  int64
	FilesTotal     int64
	BytesTotal     int64
	Elapsed        time.Duration
}

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesAttempted: c.filesAttempted.Load(),
		FilesCopied:    c.filesCopied.Load(),
		FilesFailed:    c.filesFailed.Load(),
		FilesSkipped:   c.filesSkipped.Load(),
		CopyFailures:   c.copyFailures.Load(),
		Mismatches:     c.mismatches.Load(),
		BytesCopied:    c.bytesCopied.Load(),
		DirsCreated:    c.dirsCreated.Load(),
		DirsFailed:     c.dirsFailed.Load(),
		DirsSkipped:    c.dirsSkipped.Load(),
		DirsCompleted:  c.dirsCompleted.Load(),
		FilesTotal:     c.filesTotal.Load(),
		BytesTotal:     c.bytesTotal.Load(),
		Elapsed:        c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Errors is the number of failures that count against the run: failed
// files plus directories that could not be created.
func (s Snapshot) Errors() int64 {
	return s.FilesFailed + s.DirsFailed
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"attempted=%d copied=%d failed=%d skipped=%d mismatches=%d bytes=%d dirs=%d dirfail=%d",
		s.FilesAttempted, s.FilesCopied, s.FilesFailed, s.FilesSkipped,
		s.Mismatches, s.BytesCopied, s.DirsCompleted, s.DirsFailed,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
