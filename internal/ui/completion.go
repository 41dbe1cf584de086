package ui

import (
	"fmt"

	"github.com/bamsammich/migrate/internal/stats"
)

// completionSummary builds the final summary line from a snapshot.
// Format: done ✓  files 48,917  size 2.1 GB  avg 641 MB/s  time 3m 17s  errors 0
func completionSummary(snap stats.Snapshot) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if snap.Errors() > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  size %s  avg %s  time %s",
		icon,
		FormatCount(snap.FilesCopied),
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
	)

	if snap.FilesSkipped > 0 || snap.DirsSkipped > 0 {
		base += fmt.Sprintf("  skipped %s", FormatCount(snap.FilesSkipped))
	}
	if snap.Mismatches > 0 {
		base += fmt.Sprintf("  mismatches %d", snap.Mismatches)
	}

	base += fmt.Sprintf("  errors %d", snap.Errors())

	return base
}
