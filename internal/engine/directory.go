package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/migrate/internal/event"
)

// DirectoryResult aggregates the transfers of one directory.
type DirectoryResult struct {
	Err     error // ErrDirectoryRead or ErrDirectoryCreate; the files were not attempted
	Src     string
	Dst     string
	Files   int64 // files attempted
	Errors  int64 // failed files, plus one if Err is set
	Skipped int64 // files already recorded in the checkpoint
	Empty   bool  // no regular files; an empty target directory was materialized
}

// TransferDirectory copies the regular files directly inside srcDir into
// dstDir. Subdirectories, symlinks and special files are left to their own
// plan entries. dstDir is always created first, so a directory exists on
// the target whether or not any file copy succeeds.
func (t *Transferer) TransferDirectory(ctx context.Context, srcDir, dstDir string) DirectoryResult {
	res := DirectoryResult{Src: srcDir, Dst: dstDir}
	event.Emit(t.cfg.Events, event.Event{Type: event.DirStarted, Src: srcDir, Dst: dstDir})
	earlier := t.cfg.Checkpoint != nil && t.cfg.Checkpoint.IsDirCompleted(t.rel(srcDir))

	names, err := regularFiles(srcDir)
	if err != nil {
		return t.dirFailed(res, fmt.Errorf("%w: %w", ErrDirectoryRead, err))
	}

	created, err := ensureDir(srcDir, dstDir)
	if err != nil {
		return t.dirFailed(res, fmt.Errorf("%w: %w", ErrDirectoryCreate, err))
	}
	if created {
		t.cfg.Stats.AddDirsCreated(1)
	}

	if len(names) == 0 {
		res.Empty = true
		event.Emit(t.cfg.Events, event.Event{Type: event.DirCreated, Src: srcDir, Dst: dstDir})
		return t.dirDone(ctx, res, earlier)
	}

	var mu sync.Mutex
	record := func(attempted, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if !attempted {
			res.Skipped++
			return
		}
		res.Files++
		if !ok {
			res.Errors++
		}
	}

	var g errgroup.Group
	g.SetLimit(t.cfg.Workers)
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(dstDir, name)
		g.Go(func() error {
			// Files still queued when the run is cancelled are not attempted.
			if err := ctx.Err(); err != nil {
				return err
			}
			if t.skipCompleted(src, dst) {
				record(false, true)
				return nil
			}
			r := t.TransferFile(ctx, src, dst)
			if r.OK() {
				t.markCompleted(src, r)
			}
			record(true, r.OK())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Debug("directory transfer interrupted", "path", srcDir, "error", err)
	}

	return t.dirDone(ctx, res, earlier)
}

func (t *Transferer) dirFailed(res DirectoryResult, err error) DirectoryResult {
	res.Err = err
	res.Errors++
	t.cfg.Stats.AddDirsFailed(1)
	event.Emit(t.cfg.Events, event.Event{Type: event.DirFailed, Src: res.Src, Dst: res.Dst, Error: err})
	event.Emit(t.cfg.Events, event.Event{
		Type:   event.DirCompleted,
		Src:    res.Src,
		Dst:    res.Dst,
		Errors: res.Errors,
	})
	return res
}

// dirDone closes a directory. A directory recorded by an earlier run counts
// as skipped only when this pass re-checked every file and copied none.
func (t *Transferer) dirDone(ctx context.Context, res DirectoryResult, earlier bool) DirectoryResult {
	if earlier && res.Skipped > 0 && res.Files == 0 && res.Errors == 0 && ctx.Err() == nil {
		t.cfg.Stats.AddDirsSkipped(1)
		event.Emit(t.cfg.Events, event.Event{Type: event.DirSkipped, Src: res.Src, Dst: res.Dst, Files: res.Skipped})
	}
	t.cfg.Stats.AddDirsCompleted(1)
	event.Emit(t.cfg.Events, event.Event{
		Type:   event.DirCompleted,
		Src:    res.Src,
		Dst:    res.Dst,
		Files:  res.Files,
		Errors: res.Errors,
	})
	if t.cfg.Checkpoint != nil && res.Errors == 0 && ctx.Err() == nil {
		if err := t.cfg.Checkpoint.MarkDirCompleted(t.rel(res.Src)); err != nil {
			slog.Warn("checkpoint: record directory", "path", res.Src, "error", err)
		}
	}
	return res
}

// skipCompleted reports whether src was verified by an earlier run and
// its target is still in place.
func (t *Transferer) skipCompleted(src, dst string) bool {
	if t.cfg.Checkpoint == nil {
		return false
	}
	info, err := os.Stat(src)
	if err != nil {
		return false
	}
	if !t.cfg.Checkpoint.IsFileCompleted(t.rel(src), info.Size(), info.ModTime().UnixNano()) {
		return false
	}
	if _, err := os.Stat(dst); err != nil {
		return false
	}
	t.cfg.Stats.AddFilesSkipped(1)
	event.Emit(t.cfg.Events, event.Event{Type: event.FileSkipped, Src: src, Dst: dst, Size: info.Size()})
	return true
}

func (t *Transferer) markCompleted(src string, r TransferResult) {
	if t.cfg.Checkpoint == nil {
		return
	}
	info, err := os.Stat(src)
	if err != nil {
		return
	}
	if err := t.cfg.Checkpoint.MarkFileCompleted(t.rel(src), info.Size(), r.Digest, info.ModTime().UnixNano()); err != nil {
		slog.Warn("checkpoint: record file", "path", src, "error", err)
	}
}

func (t *Transferer) rel(path string) string {
	if t.cfg.SrcRoot == "" {
		return path
	}
	rel, err := filepath.Rel(t.cfg.SrcRoot, path)
	if err != nil {
		return path
	}
	return rel
}

// regularFiles lists the names of regular files directly inside dir, in
// lexical order. The entry type comes from lstat, so symlinks are excluded.
func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ensureDir creates dstDir and any missing parents with srcDir's
// permissions. An existing directory is accepted.
func ensureDir(srcDir, dstDir string) (bool, error) {
	if info, err := os.Stat(dstDir); err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", dstDir)
		}
		return false, nil
	}

	perm := os.FileMode(0o755)
	if info, err := os.Stat(srcDir); err == nil {
		perm = info.Mode().Perm() | 0o700 // keep the tree writable for the copy
	}
	if err := os.MkdirAll(dstDir, perm); err != nil {
		return false, err
	}
	return true, nil
}
