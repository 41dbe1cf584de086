package engine

import (
	"crypto/md5" //nolint:gosec // legacy audit trails were recorded with MD5
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// hashChunkSize bounds the memory used to digest a file.
const hashChunkSize = 64 * 1024

// HashAlgorithm names a content digest.
type HashAlgorithm string

const (
	BLAKE3 HashAlgorithm = "blake3"
	SHA256 HashAlgorithm = "sha256"
	MD5    HashAlgorithm = "md5"
)

// HashAlgorithms lists the supported algorithms, default first.
var HashAlgorithms = []HashAlgorithm{BLAKE3, SHA256, MD5}

// ParseHashAlgorithm resolves a case-insensitive algorithm name.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	a := HashAlgorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range HashAlgorithms {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown hash algorithm %q (use blake3, sha256 or md5)", s)
}

func (a HashAlgorithm) newHash() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case MD5:
		return md5.New() //nolint:gosec // see import
	default:
		return blake3.New()
	}
}

func (a HashAlgorithm) String() string {
	if a == "" {
		return string(BLAKE3)
	}
	return string(a)
}

// HashFile computes the BLAKE3 digest of the file at path as lowercase hex.
func HashFile(path string) (string, error) {
	return BLAKE3.HashFile(path)
}

// HashFile streams the file at path through the digest in fixed-size
// chunks and returns the lowercase hex digest.
func (a HashAlgorithm) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := a.newHash()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
