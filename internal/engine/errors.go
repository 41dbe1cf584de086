package engine

import "errors"

var (
	// ErrCopyPrimitive means the copier reported failure for a file.
	ErrCopyPrimitive = errors.New("copy failed")
	// ErrChecksumMismatch means source and target digests differ after copy.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrChecksum means a digest could not be computed.
	ErrChecksum = errors.New("checksum unavailable")
	// ErrDirectoryCreate means a target directory could not be created.
	ErrDirectoryCreate = errors.New("cannot create directory")
	// ErrDirectoryRead means a source directory could not be listed.
	ErrDirectoryRead = errors.New("cannot read directory")
)
