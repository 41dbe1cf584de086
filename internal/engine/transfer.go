package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/bamsammich/migrate/internal/copier"
	"github.com/bamsammich/migrate/internal/event"
	"github.com/bamsammich/migrate/internal/stats"
)

// Outcome classifies a single file transfer.
type Outcome int

const (
	Success Outcome = iota
	CopyFailed
	ChecksumMismatch
	ChecksumFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "ok"
	case CopyFailed:
		return "copy-failed"
	case ChecksumMismatch:
		return "checksum-mismatch"
	case ChecksumFailed:
		return "checksum-failed"
	default:
		return "unknown"
	}
}

// TransferResult is the outcome of copying and verifying one file.
type TransferResult struct {
	Err       error // wraps ErrCopyPrimitive, ErrChecksum or ErrChecksumMismatch
	Src       string
	Dst       string
	Digest    string // verified digest on Success
	SrcDigest string
	DstDigest string
	Size      int64
	Outcome   Outcome
}

// OK reports whether the file was copied and verified.
func (r TransferResult) OK() bool { return r.Outcome == Success }

// TransferConfig controls file and directory transfers.
type TransferConfig struct {
	Copier     copier.Copier
	Events     event.Sink
	Stats      *stats.Collector
	Checkpoint *CheckpointDB // nil disables resume bookkeeping
	SrcRoot    string        // base for checkpoint relative paths
	Hash       HashAlgorithm
	Workers    int // concurrent files per directory
}

// Transferer copies files and directories and verifies every copy.
type Transferer struct {
	cfg TransferConfig
}

// NewTransferer fills defaults and returns a Transferer.
func NewTransferer(cfg TransferConfig) *Transferer {
	if cfg.Hash == "" {
		cfg.Hash = BLAKE3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Events == nil {
		cfg.Events = event.Discard
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewCollector()
	}
	return &Transferer{cfg: cfg}
}

// TransferFile copies src to dst with the configured copier, then digests
// both files and compares them. Digests are only computed when the copy
// itself succeeded. Every call emits exactly one FileCopied or FileFailed
// event.
func (t *Transferer) TransferFile(ctx context.Context, src, dst string) TransferResult {
	res := TransferResult{Src: src, Dst: dst}
	if info, err := os.Stat(src); err == nil {
		res.Size = info.Size()
	}
	t.cfg.Stats.AddFilesAttempted(1)

	if err := t.cfg.Copier.Copy(ctx, src, dst); err != nil {
		res.Outcome = CopyFailed
		res.Err = fmt.Errorf("%w: %w", ErrCopyPrimitive, err)
		t.cfg.Stats.AddCopyFailures(1)
		return t.fail(res)
	}

	srcDigest, err := t.cfg.Hash.HashFile(src)
	if err != nil {
		res.Outcome = ChecksumFailed
		res.Err = fmt.Errorf("%w: source: %w", ErrChecksum, err)
		return t.fail(res)
	}
	res.SrcDigest = srcDigest

	dstDigest, err := t.cfg.Hash.HashFile(dst)
	if err != nil {
		res.Outcome = ChecksumFailed
		res.Err = fmt.Errorf("%w: target: %w", ErrChecksum, err)
		return t.fail(res)
	}
	res.DstDigest = dstDigest

	if srcDigest != dstDigest {
		res.Outcome = ChecksumMismatch
		res.Err = fmt.Errorf("%w: source %s, target %s", ErrChecksumMismatch, srcDigest, dstDigest)
		t.cfg.Stats.AddMismatches(1)
		return t.fail(res)
	}

	res.Outcome = Success
	res.Digest = srcDigest
	t.cfg.Stats.AddFilesCopied(1)
	t.cfg.Stats.AddBytesCopied(res.Size)
	event.Emit(t.cfg.Events, event.Event{
		Type:      event.FileCopied,
		Src:       src,
		Dst:       dst,
		Digest:    res.Digest,
		Algorithm: t.cfg.Hash.String(),
		Size:      res.Size,
	})
	return res
}

func (t *Transferer) fail(res TransferResult) TransferResult {
	t.cfg.Stats.AddFilesFailed(1)
	event.Emit(t.cfg.Events, event.Event{
		Type:      event.FileFailed,
		Src:       res.Src,
		Dst:       res.Dst,
		SrcDigest: res.SrcDigest,
		DstDigest: res.DstDigest,
		Algorithm: t.cfg.Hash.String(),
		Size:      res.Size,
		Error:     res.Err,
	})
	return res
}
