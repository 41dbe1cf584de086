package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/migrate/internal/engine"
	"github.com/bamsammich/migrate/internal/ui"
)

type testEnv struct {
	dir    string
	src    string
	dst    string
	logDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	env := testEnv{
		dir:    dir,
		src:    filepath.Join(dir, "root"),
		dst:    filepath.Join(dir, "T", "root"),
		logDir: filepath.Join(dir, "logs"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(env.src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.src, "sub", "b.txt"), []byte("bravo"), 0o644))
	return env
}

func (e testEnv) runLogContents(t *testing.T) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(e.logDir, "migrate_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func runCLI(stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI("", "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "migrate dev\n", out)
}

func TestWrongArgCountPrintsUsage(t *testing.T) {
	for _, args := range [][]string{{}, {"one"}, {"one", "two", "three"}} {
		code, out, errOut := runCLI("", args...)
		assert.Equal(t, 2, code, "args %v", args)
		assert.Contains(t, out, "Usage:")
		assert.Contains(t, errOut, "expected 2 arguments")
	}
}

func TestInvalidFlags(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"hash", []string{"--hash", "crc32"}, "unknown hash algorithm"},
		{"workers", []string{"--workers", "0"}, "--workers"},
		{"bwlimit", []string{"--bwlimit", "fast", "--copier", "native"}, "--bwlimit"},
		{"bwlimit needs native", []string{"--bwlimit", "1M"}, "native"},
		{"copier", []string{"--copier", "rsync"}, "unknown copier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--log-dir", env.logDir, env.src, env.dst)
			code, _, errOut := runCLI("", args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, errOut, tt.want)
			assert.NoDirExists(t, env.dst)
		})
	}
}

func TestMigrate_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := runCLI("", "--yes", "--copier", "native", "--log-dir", env.logDir, env.src, env.dst)
	require.Equal(t, 0, code)

	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.txt")} {
		want, err := engine.HashFile(filepath.Join(env.src, rel))
		require.NoError(t, err)
		got, err := engine.HashFile(filepath.Join(env.dst, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	logged := env.runLogContents(t)
	assert.Equal(t, out, logged, "console output is duplicated into the run log")
	assert.Contains(t, logged, "Will copy "+env.src+" -> "+env.dst+"\n")
	assert.Contains(t, logged, "Will copy "+filepath.Join(env.src, "sub")+" -> "+filepath.Join(env.dst, "sub")+"\n")
	assert.Contains(t, logged, "All done. 2 files copied. 0 errors.\n")
}

func TestMigrate_DeclineAtEitherGate(t *testing.T) {
	for name, answers := range map[string]string{"discovery": "n\n", "plan": "y\nn\n"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)

			code, out, _ := runCLI(answers, "--log-dir", env.logDir, env.src, env.dst)
			assert.Equal(t, 0, code)
			assert.NoDirExists(t, filepath.Join(env.dir, "T"))
			assert.Contains(t, out, ui.Question(engine.GateDiscovery))
			assert.Contains(t, out, "Aborted by operator")

			logged := env.runLogContents(t)
			assert.Contains(t, logged, "Aborted by operator")
			assert.NotContains(t, logged, "[y|n]", "prompts stay on the console")
		})
	}
}

func TestMigrate_ErrorsSetExitCode(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	env := newTestEnv(t)

	code, out, _ := runCLI("", "--yes", "--copy-cmd", "false", "--log-dir", env.logDir, env.src, env.dst)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "All done. 2 files copied. 2 errors.")
	// Target directories exist even though every copy failed.
	assert.DirExists(t, filepath.Join(env.dst, "sub"))
}

func TestMigrate_MissingSource(t *testing.T) {
	env := newTestEnv(t)

	code, _, errOut := runCLI("", "--yes", "--log-dir", env.logDir, filepath.Join(env.dir, "nope"), env.dst)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "migration failed")
	assert.NoDirExists(t, env.dst)
}

func TestMigrate_ConfigDefaults(t *testing.T) {
	env := newTestEnv(t)

	configDir := filepath.Join(env.dir, "config", "migrate")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(`
[defaults]
hash = "md5"
copier = "native"
log_dir = "`+env.logDir+`"
`), 0o644))

	code, out, _ := runCLI("", "--yes", env.src, env.dst)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "md5:")

	// Explicit flags win over the file.
	env2 := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env2.dir, "config", "migrate"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env2.dir, "config", "migrate", "config.toml"),
		[]byte("[defaults]\nhash = \"md5\"\ncopier = \"native\"\n"), 0o644))

	code, out, _ = runCLI("", "--yes", "--hash", "sha256", "--log-dir", env2.logDir, env2.src, env2.dst)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "sha256:")
	assert.NotContains(t, out, "md5:")
}

func TestMigrate_StructuredLog(t *testing.T) {
	env := newTestEnv(t)
	logFile := filepath.Join(env.dir, "run.json")

	code, _, _ := runCLI("", "--yes", "--copier", "native", "--log", logFile, "--log-dir", env.logDir, env.src, env.dst)
	require.Equal(t, 0, code)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"migrate.event"`)
	assert.Contains(t, string(data), `"type":"FileCopied"`)
}

func TestGenDocs(t *testing.T) {
	dir := t.TempDir()
	code, _, errOut := runCLI("", "gen-docs", "--dir", dir, "--format", "markdown")
	require.Equal(t, 0, code, errOut)
	assert.FileExists(t, filepath.Join(dir, "migrate.md"))
}
