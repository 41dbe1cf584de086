//go:build !linux && !darwin

package platform

// CopyFile uses plain read/write on platforms without a fast path.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.Dst, params.Size)
	return copyReadWrite(params)
}
