package store

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// DiskWarningPercent is the usage above which writes log a warning.
const DiskWarningPercent = 90

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}

// diskSpace is replaceable for testing.
var diskSpace = CheckDiskSpace

// checkDiskSpaceForWrite verifies that at least twice the payload is
// available in dir before a write. Failing to stat the file system only
// produces a warning.
func (s *Store) checkDiskSpaceForWrite(dir string, size int) error {
	info, err := diskSpace(dir)
	if err != nil {
		s.logger.Warn("failed to check disk space", "path", dir, "error", err)
		return nil
	}

	required := uint64(size) * 2
	if info.Available < required {
		return fmt.Errorf("%w: only %s available, need at least %s",
			ErrInsufficientDisk,
			humanize.IBytes(info.Available),
			humanize.IBytes(required))
	}

	if info.UsedPct >= DiskWarningPercent {
		s.logger.Warn("disk is almost full, consider freeing space", "path", dir, "used_pct", info.UsedPct)
	}
	return nil
}
