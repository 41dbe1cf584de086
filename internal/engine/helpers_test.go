package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeCopier copies with ReadFile/WriteFile. failFor makes Copy fail for
// matching source base names; mutate runs against the target after a
// successful copy, simulating corruption before verification.
type fakeCopier struct {
	failFor map[string]bool
	mutate  func(dst string) error

	mu    sync.Mutex
	calls []string
}

func (f *fakeCopier) Name() string { return "fake" }

func (f *fakeCopier) Copy(_ context.Context, src, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	f.mu.Unlock()

	if f.failFor[filepath.Base(src)] {
		return errors.New("exit status 1")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	if f.mutate != nil {
		return f.mutate(dst)
	}
	return nil
}

func (f *fakeCopier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// scriptedConfirmer answers gates from a fixed script and records them.
type scriptedConfirmer struct {
	answers map[Gate]bool
	asked   []Gate
}

func (s *scriptedConfirmer) Confirm(_ context.Context, g Gate) (bool, error) {
	s.asked = append(s.asked, g)
	return s.answers[g], nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// createDeepTree populates root with a tree of depth 3 that has siblings
// at several levels:
//
//	top.txt
//	a/a1.txt
//	a/x/x1.txt
//	a/x/deep/d1.txt
//	a/y/            (empty)
//	b/b1.txt
//	b/z/z1.txt
func createDeepTree(t *testing.T, root string) {
	t.Helper()
	writeFile(t, filepath.Join(root, "top.txt"), "top")
	writeFile(t, filepath.Join(root, "a", "a1.txt"), "a1")
	writeFile(t, filepath.Join(root, "a", "x", "x1.txt"), "x1")
	writeFile(t, filepath.Join(root, "a", "x", "deep", "d1.txt"), "d1")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "y"), 0o755))
	writeFile(t, filepath.Join(root, "b", "b1.txt"), "b1")
	writeFile(t, filepath.Join(root, "b", "z", "z1.txt"), "z1")
}

// snapshotTree returns every path under root, relative, for write checks.
func snapshotTree(t *testing.T, root string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(root, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return paths
}
