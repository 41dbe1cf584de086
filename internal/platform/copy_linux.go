//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile tries copy_file_range, then sendfile, then read/write. A fast
// path only falls through when it failed before writing any byte.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.Dst, params.Size)

	result, err := copyFileRange(params)
	if err == nil || result.BytesWritten > 0 || !isFallbackErr(err) {
		return result, err
	}

	result, err = copySendfile(params)
	if err == nil || result.BytesWritten > 0 || !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(params)
}

func copyFileRange(params CopyFileParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	result := CopyResult{Method: CopyFileRange}
	for remaining := params.Size; remaining > 0; {
		n, err := unix.CopyFileRange(int(src.Fd()), nil, int(params.Dst.Fd()), nil, int(remaining), 0)
		if err != nil {
			return result, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		result.BytesWritten += int64(n)
	}
	return result, nil
}

func copySendfile(params CopyFileParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	result := CopyResult{Method: Sendfile}
	var offset int64
	for remaining := params.Size; remaining > 0; {
		n, err := unix.Sendfile(int(params.Dst.Fd()), int(src.Fd()), &offset, int(remaining))
		if err != nil {
			return result, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		result.BytesWritten += int64(n)
	}
	return result, nil
}
