//go:build darwin

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile clones the source over the destination name when the filesystem
// supports it (APFS), otherwise falls back to read/write. Callers must
// address the destination by name afterwards, not through params.Dst.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	// clonefile refuses an existing target; the caller's file is empty and
	// freshly created, so it is safe to replace it by name.
	name := params.Dst.Name()
	if err := os.Remove(name); err != nil {
		preallocate(params.Dst, params.Size)
		return copyReadWrite(params)
	}
	if err := unix.Clonefile(params.SrcPath, name, 0); err == nil {
		return CopyResult{BytesWritten: params.Size, Method: Clonefile}, nil
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return CopyResult{}, err
	}
	defer f.Close()
	params.Dst = f

	result, err := copyReadWrite(params)
	if err != nil {
		return result, err
	}
	return result, f.Sync()
}
