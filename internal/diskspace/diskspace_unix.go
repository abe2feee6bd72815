//go:build !windows

package diskspace

import (
	"golang.org/x/sys/unix"
)

func freeSpace(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	// Bavail counts blocks available to unprivileged users.
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

func folderSize(string) (int64, int64, error) {
	return 0, 0, ErrUnsupported
}
