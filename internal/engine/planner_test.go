package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	createDeepTree(t, src)
	require.NoError(t, os.Symlink("top.txt", filepath.Join(src, "link.txt")))

	d, err := Discover(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, src, d.Root)
	var paths []string
	counts := map[string]int{}
	for _, dir := range d.Dirs {
		rel, err := filepath.Rel(src, dir.Path)
		require.NoError(t, err)
		paths = append(paths, rel)
		counts[rel] = dir.Files
	}
	assert.Equal(t, []string{".", "a", "a/x", "a/x/deep", "a/y", "b", "b/z"}, paths)

	// Symlinks are not regular files.
	assert.Equal(t, 1, counts["."])
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 0, counts["a/y"])
	assert.Equal(t, 6, d.TotalFiles)
	assert.Equal(t, int64(len("top")+5*2), d.TotalBytes)
}

func TestDiscoverRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, f, "x")

	_, err := Discover(context.Background(), f)
	assert.ErrorContains(t, err, "not a directory")
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestDiscoverSymlinkedRoot(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	writeFile(t, filepath.Join(real, "a.txt"), "a")
	writeFile(t, filepath.Join(real, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(dir, "elsewhere", "c.txt"), "c")
	// Links below the root stay unfollowed.
	require.NoError(t, os.Symlink(filepath.Join(dir, "elsewhere"), filepath.Join(real, "linked")))

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(real, link))

	d, err := Discover(context.Background(), link)
	require.NoError(t, err)

	wantRoot, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, d.Root)
	require.Len(t, d.Dirs, 2)
	assert.Equal(t, wantRoot, d.Dirs[0].Path)
	assert.Equal(t, filepath.Join(wantRoot, "sub"), d.Dirs[1].Path)
	assert.Equal(t, 2, d.TotalFiles)
}

func TestDiscoverCancelled(t *testing.T) {
	src := t.TempDir()
	createDeepTree(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Discover(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanTreeTargets(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "out", "dst")
	createDeepTree(t, src)

	plan, err := PlanTree(context.Background(), src, dst)
	require.NoError(t, err)

	require.Len(t, plan.Pairs, 7)
	for _, p := range plan.Pairs {
		rel, err := filepath.Rel(src, p.Src)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dst, rel), p.Dst, "pair %s", p.Src)
	}
	assert.Equal(t, src, plan.Pairs[0].Src)
	assert.Equal(t, dst, plan.Pairs[0].Dst)

	// Planning never writes.
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestPlanTreeRelativeArgs(t *testing.T) {
	dir := t.TempDir()
	createDeepTree(t, filepath.Join(dir, "src"))
	t.Chdir(dir)

	plan, err := PlanTree(context.Background(), "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src"), plan.SrcRoot)
	assert.Equal(t, filepath.Join(dir, "dst", "a", "x"), plan.Pairs[2].Dst)
}

func TestResolveRejectsTargetInsideSource(t *testing.T) {
	src := t.TempDir()
	createDeepTree(t, src)

	d, err := Discover(context.Background(), src)
	require.NoError(t, err)

	_, err = d.Resolve(filepath.Join(src, "a", "backup"))
	assert.ErrorContains(t, err, "inside source")

	_, err = d.Resolve(src)
	assert.ErrorContains(t, err, "inside source")
}

func TestTargetFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/src", "/mnt/t"},
		{"/data/src/a", "/mnt/t/a"},
		{"/data/src/a/b/c", "/mnt/t/a/b/c"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := TargetFor("/data/src", "/mnt/t", tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := TargetFor("/data/src", "/mnt/t", "/data/other")
	assert.Error(t, err)
}

func TestTargetMappingIsOrderIndependent(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	createDeepTree(t, src)

	d, err := Discover(context.Background(), src)
	require.NoError(t, err)

	// Reverse the discovery order; every pair must map identically.
	reversed := d
	reversed.Dirs = make([]DirInfo, len(d.Dirs))
	for i, dir := range d.Dirs {
		reversed.Dirs[len(d.Dirs)-1-i] = dir
	}

	a, err := d.Resolve("/target")
	require.NoError(t, err)
	b, err := reversed.Resolve("/target")
	require.NoError(t, err)

	want := map[string]string{}
	for _, p := range a.Pairs {
		want[p.Src] = p.Dst
	}
	seen := map[string]bool{}
	for _, p := range b.Pairs {
		assert.Equal(t, want[p.Src], p.Dst)
		assert.False(t, seen[p.Dst], "target %s mapped twice", p.Dst)
		seen[p.Dst] = true
	}
}

func TestPlanFingerprint(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	createDeepTree(t, src)

	p1, err := PlanTree(context.Background(), src, "/t1")
	require.NoError(t, err)
	p2, err := PlanTree(context.Background(), src, "/t1")
	require.NoError(t, err)
	p3, err := PlanTree(context.Background(), src, "/t2")
	require.NoError(t, err)

	assert.Len(t, p1.Fingerprint(), 16)
	assert.Equal(t, p1.Fingerprint(), p2.Fingerprint())
	assert.NotEqual(t, p1.Fingerprint(), p3.Fingerprint())

	writeFile(t, filepath.Join(src, "b", "new.txt"), "new")
	p4, err := PlanTree(context.Background(), src, "/t1")
	require.NoError(t, err)
	assert.NotEqual(t, p1.Fingerprint(), p4.Fingerprint())
}
