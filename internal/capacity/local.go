package capacity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/s5bridge/s5bridge/internal/diskspace"
	"github.com/s5bridge/s5bridge/internal/localfs"
)

// FilesystemError reports a local path that could not be inspected.
type FilesystemError struct {
	Path string
	Op   string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// LocalFreeSpace returns the free bytes on the volume holding location.
// location may not exist yet; the nearest existing ancestor is queried.
func LocalFreeSpace(location string) (int64, error) {
	dir, err := existingAncestor(location)
	if err != nil {
		return 0, &FilesystemError{Path: location, Op: "free space", Err: err}
	}
	free, err := diskspace.FreeSpace(dir)
	if err != nil {
		return 0, &FilesystemError{Path: location, Op: "free space", Err: err}
	}
	return free, nil
}

// LocalDataSize returns the number of files and total bytes at location.
// A single file counts as one.
func LocalDataSize(location string) (files int64, bytes int64, err error) {
	info, err := os.Stat(location)
	if err != nil {
		return 0, 0, &FilesystemError{Path: location, Op: "stat", Err: err}
	}
	if !info.IsDir() {
		return 1, info.Size(), nil
	}

	files, bytes, err = diskspace.FolderSize(location)
	if errors.Is(err, diskspace.ErrUnsupported) {
		files, bytes, err = localfs.Usage(location, localfs.AllFiles)
	}
	if err != nil {
		return 0, 0, &FilesystemError{Path: location, Op: "size", Err: err}
	}
	return files, bytes, nil
}

func existingAncestor(location string) (string, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no existing ancestor")
		}
		abs = parent
	}
}
