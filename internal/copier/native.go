package copier

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bamsammich/migrate/internal/platform"
)

// NativeConfig controls the in-process copier.
type NativeConfig struct {
	BWLimit int64 // bytes/sec, 0 for unlimited
}

// Native copies in-process: data goes to a temp file next to the target,
// which is fsynced, given the source's mode and mtime, then renamed over
// dst so readers never see a partial file.
type Native struct {
	limiter *rate.Limiter
	tmp     tmpRegistry
}

// NewNative creates a native copier.
func NewNative(cfg NativeConfig) *Native {
	n := &Native{}
	if cfg.BWLimit > 0 {
		n.limiter = NewBWLimiter(cfg.BWLimit)
	}
	return n
}

func (n *Native) Name() string {
	if n.limiter != nil {
		return fmt.Sprintf("native (%.0f B/s)", float64(n.limiter.Limit()))
	}
	return "native"
}

func (n *Native) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	tmpPath := filepath.Join(filepath.Dir(dst),
		fmt.Sprintf(".%s.%s.migrate-tmp", filepath.Base(dst), uuid.New().String()[:8]))

	n.tmp.add(tmpPath)
	defer func() {
		n.tmp.remove(tmpPath)
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	if err := n.copyData(ctx, src, f, info.Size()); err != nil {
		f.Close()
		return fmt.Errorf("copy data %s: %w", src, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	// By name: on macOS the clone replaced the file behind f.
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}
	return nil
}

func (n *Native) copyData(ctx context.Context, src string, dst *os.File, size int64) error {
	if n.limiter == nil {
		_, err := platform.CopyFile(platform.CopyFileParams{SrcPath: src, Dst: dst, Size: size})
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(dst, newRateLimitedReader(ctx, in, n.limiter))
	return err
}

// Close removes temp files left behind by interrupted copies.
func (n *Native) Close() error {
	n.tmp.cleanup()
	return nil
}
