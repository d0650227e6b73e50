//go:build windows

package filesystem

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// GetDiskUsage returns disk usage for the download root
func (m *Manager) GetDiskUsage() (*DiskUsage, error) {
	path, err := windows.UTF16PtrFromString(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to convert path: %w", err)
	}

	var available, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(path, &available, &total, &totalFree); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}
	return newDiskUsage(total, available), nil
}
