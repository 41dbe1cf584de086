package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DirInfo is one directory found during discovery.
type DirInfo struct {
	Path  string // absolute
	Files int    // regular files directly inside
	Bytes int64
}

// Discovery is the read-only result of walking a source tree.
type Discovery struct {
	Root       string
	Dirs       []DirInfo // lexical walk order, root first
	TotalFiles int
	TotalBytes int64
}

// PathPair maps one source directory to its target directory.
type PathPair struct {
	Src   string
	Dst   string
	Files int
	Bytes int64
}

// Plan is the ordered, immutable list of directory pairs to copy.
type Plan struct {
	SrcRoot    string
	DstRoot    string
	Pairs      []PathPair
	TotalFiles int
	TotalBytes int64
}

// Discover walks srcRoot recursively and records every directory with its
// direct regular-file count. A symlinked root is resolved first; symlinked
// directories below it are not followed. It performs no writes.
func Discover(ctx context.Context, srcRoot string) (Discovery, error) {
	root, err := filepath.Abs(srcRoot)
	if err != nil {
		return Discovery{}, fmt.Errorf("source: %w", err)
	}
	// WalkDir lstats its root, so a link to a directory would yield nothing.
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return Discovery{}, fmt.Errorf("source: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Discovery{}, fmt.Errorf("source: %w", err)
	}
	if !info.IsDir() {
		return Discovery{}, fmt.Errorf("source %s is not a directory", root)
	}

	d := Discovery{Root: root}
	index := make(map[string]int)

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// Keep the directory in the plan; its transfer reports the
			// read failure.
			slog.Warn("discovery: skipping unreadable entry", "path", path, "error", walkErr)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			index[path] = len(d.Dirs)
			d.Dirs = append(d.Dirs, DirInfo{Path: path})
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		var size int64
		if fi, err := entry.Info(); err == nil {
			size = fi.Size()
		}
		if i, ok := index[filepath.Dir(path)]; ok {
			d.Dirs[i].Files++
			d.Dirs[i].Bytes += size
		}
		d.TotalFiles++
		d.TotalBytes += size
		return nil
	})
	if err != nil {
		return Discovery{}, fmt.Errorf("discover %s: %w", root, err)
	}

	return d, nil
}

// Resolve computes the target directory for every discovered directory.
// The target is always dstRoot joined with the path relative to the
// source root, independent of walk order.
func (d Discovery) Resolve(dstRoot string) (Plan, error) {
	dst, err := filepath.Abs(dstRoot)
	if err != nil {
		return Plan{}, fmt.Errorf("target: %w", err)
	}
	if within(d.Root, dst) {
		return Plan{}, fmt.Errorf("target %s is inside source %s", dst, d.Root)
	}

	p := Plan{
		SrcRoot:    d.Root,
		DstRoot:    dst,
		Pairs:      make([]PathPair, 0, len(d.Dirs)),
		TotalFiles: d.TotalFiles,
		TotalBytes: d.TotalBytes,
	}
	for _, dir := range d.Dirs {
		target, err := TargetFor(d.Root, dst, dir.Path)
		if err != nil {
			return Plan{}, err
		}
		p.Pairs = append(p.Pairs, PathPair{
			Src:   dir.Path,
			Dst:   target,
			Files: dir.Files,
			Bytes: dir.Bytes,
		})
	}
	return p, nil
}

// PlanTree runs discovery and resolution in one step.
func PlanTree(ctx context.Context, srcRoot, dstRoot string) (Plan, error) {
	d, err := Discover(ctx, srcRoot)
	if err != nil {
		return Plan{}, err
	}
	return d.Resolve(dstRoot)
}

// TargetFor maps path under srcRoot to the same relative path under dstRoot.
func TargetFor(srcRoot, dstRoot, path string) (string, error) {
	rel, err := filepath.Rel(srcRoot, path)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, srcRoot)
	}
	return filepath.Join(dstRoot, rel), nil
}

// Fingerprint identifies the plan's pairs and file counts. It is shown at
// the second confirmation gate and stored with checkpoints.
func (p Plan) Fingerprint() string {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	write(p.SrcRoot)
	write(p.DstRoot)
	for _, pair := range p.Pairs {
		write(pair.Src)
		write(pair.Dst)
		write(strconv.Itoa(pair.Files))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel))
}
