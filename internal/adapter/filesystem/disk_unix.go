//go:build !windows

package filesystem

import (
	"fmt"
	"syscall"
)

// freeBytes returns the space available to unprivileged users on dir's volume
func freeBytes(dir string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("failed to get disk stats: %w", err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
