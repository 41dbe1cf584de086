package platform

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyReadWrite streams the source into params.Dst through a pooled buffer.
func copyReadWrite(params CopyFileParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)

	// Hide ReaderFrom/WriterTo so CopyBuffer really uses the pooled buffer.
	n, err := io.CopyBuffer(struct{ io.Writer }{params.Dst}, struct{ io.Reader }{src}, *bufp)
	return CopyResult{BytesWritten: n, Method: ReadWrite}, err
}

// CopyReadWrite exposes the portable path so tests can exercise it directly.
func CopyReadWrite(params CopyFileParams) (CopyResult, error) {
	return copyReadWrite(params)
}

// isFallbackErr reports whether err means "this syscall cannot do it here"
// rather than a real I/O failure.
func isFallbackErr(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case syscall.ENOSYS, syscall.EXDEV, syscall.EINVAL, syscall.EOPNOTSUPP, syscall.EPERM:
		return true
	}
	return false
}
