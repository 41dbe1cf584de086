//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves size bytes for fd. fallocate is advisory and not
// supported everywhere, so errors are ignored.
func preallocate(fd *os.File, size int64) {
	if size <= 0 {
		return
	}
	//nolint:errcheck // advisory
	unix.Fallocate(int(fd.Fd()), 0, 0, size)
}
