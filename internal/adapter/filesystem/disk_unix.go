//go:build unix

package filesystem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// GetDiskUsage returns disk usage for the download root.
// Free counts blocks available to unprivileged users.
func (m *Manager) GetDiskUsage() (*DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(m.rootDir, &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	bsize := uint64(stat.Bsize)
	return newDiskUsage(uint64(stat.Blocks)*bsize, uint64(stat.Bavail)*bsize), nil
}
