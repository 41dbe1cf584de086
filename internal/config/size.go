package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSize parses a human-readable size string into bytes.
// Supports: 100, 100B, 100K, 100KB, 100KiB, 100M, 100G, 100T
// (case-insensitive). Uses powers of 1024 (matching rsync behavior).
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	numStr := strings.ToUpper(s)
	numStr = strings.TrimSuffix(numStr, "IB")
	if len(numStr) > 1 {
		// "100KB" style: the B only repeats the unit.
		if prev := numStr[len(numStr)-2]; strings.IndexByte("KMGT", prev) >= 0 {
			numStr = strings.TrimSuffix(numStr, "B")
		}
	}

	if numStr == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	multiplier := int64(1)
	switch numStr[len(numStr)-1] {
	case 'B':
		numStr = numStr[:len(numStr)-1]
	case 'K':
		multiplier = 1024
		numStr = numStr[:len(numStr)-1]
	case 'M':
		multiplier = 1024 * 1024
		numStr = numStr[:len(numStr)-1]
	case 'G':
		multiplier = 1024 * 1024 * 1024
		numStr = numStr[:len(numStr)-1]
	case 'T':
		multiplier = 1024 * 1024 * 1024 * 1024
		numStr = numStr[:len(numStr)-1]
	default:
		// No suffix, try parsing as plain number.
	}

	if numStr == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	// Try integer first, then float.
	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid size: %q", s)
		}
		return n * multiplier, nil
	}

	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	return int64(f * float64(multiplier)), nil
}
