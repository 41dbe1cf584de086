// Package copier provides the raw file-copy primitive the engine drives.
// A Copier only moves bytes; verification happens in the engine.
package copier

import (
	"context"
	"fmt"
)

// Copier copies one regular file from src to dst, creating or overwriting
// dst. The target directory must already exist.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
	Name() string
}

// Kind selects a Copier implementation.
type Kind string

const (
	KindExec   Kind = "exec"
	KindNative Kind = "native"
)

// Options configures New.
type Options struct {
	Kind    Kind
	Command []string // argv prefix for KindExec; DefaultCommand() when empty
	BWLimit int64    // bytes/sec for KindNative; 0 disables
}

// New builds the Copier selected by opts.Kind. The returned Closer must be
// called when the run ends.
//
//nolint:ireturn // factory returns interface by design
func New(opts Options) (Copier, func() error, error) {
	switch opts.Kind {
	case KindExec, "":
		if opts.BWLimit > 0 {
			return nil, nil, fmt.Errorf("bandwidth limit requires the %s copier", KindNative)
		}
		cmd := opts.Command
		if len(cmd) == 0 {
			cmd = DefaultCommand()
		}
		e, err := NewExec(cmd)
		if err != nil {
			return nil, nil, err
		}
		return e, func() error { return nil }, nil
	case KindNative:
		n := NewNative(NativeConfig{BWLimit: opts.BWLimit})
		return n, n.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown copier %q (use %s or %s)", opts.Kind, KindExec, KindNative)
	}
}
