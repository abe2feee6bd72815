// Package diskspace queries local volume capacity and, where the platform
// offers a cheaper path than a full walk, folder sizes.
package diskspace

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by FolderSize on platforms without a bulk
// folder-size query. Callers fall back to walking the tree.
var ErrUnsupported = errors.New("folder size query not supported on this platform")

// StatError reports a volume that could not be queried.
type StatError struct {
	Path string
	Err  error
}

func (e *StatError) Error() string {
	return fmt.Sprintf("cannot query free space for %s: %v", e.Path, e.Err)
}

func (e *StatError) Unwrap() error {
	return e.Err
}

// FreeSpace returns the bytes available to the current user on the volume
// holding path. path must exist.
func FreeSpace(path string) (int64, error) {
	free, err := freeSpace(path)
	if err != nil {
		return 0, &StatError{Path: path, Err: err}
	}
	return free, nil
}

// FolderSize returns the number of regular files below dir and their total
// size, or ErrUnsupported.
func FolderSize(dir string) (files int64, bytes int64, err error) {
	return folderSize(dir)
}
