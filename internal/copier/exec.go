package copier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
)

const maxStderr = 256

// Exec copies by running an external command as
// `<argv...> <src> <dst>`. Failure is only observable as a non-zero exit.
type Exec struct {
	argv []string
}

// DefaultCommand is the platform copy command: ditto on macOS (keeps
// resource forks and ACLs), cp -p elsewhere.
func DefaultCommand() []string {
	if runtime.GOOS == "darwin" {
		return []string{"ditto"}
	}
	return []string{"cp", "-p"}
}

// ParseCommand splits a copy command string on whitespace.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

// NewExec validates argv and resolves its executable.
func NewExec(argv []string) (*Exec, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty copy command")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("copy command: %w", err)
	}
	return &Exec{argv: slices.Clone(argv)}, nil
}

func (e *Exec) Name() string {
	return strings.Join(e.argv, " ")
}

func (e *Exec) Copy(ctx context.Context, src, dst string) error {
	args := append(slices.Clone(e.argv[1:]), src, dst)
	cmd := exec.CommandContext(ctx, e.argv[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "..."
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", e.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", e.argv[0], err)
	}
	return nil
}
