//go:build windows

package diskspace

import (
	"errors"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func freeSpace(path string) (int64, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}

	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, err
	}
	return int64(freeBytesAvailable), nil
}

// folderSize enumerates directories with FindFirstFile, which reports file
// sizes in the directory entry and avoids a stat call per file.
func folderSize(dir string) (int64, int64, error) {
	var files, bytes int64

	pending := []string{dir}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		pattern, err := windows.UTF16PtrFromString(filepath.Join(current, "*"))
		if err != nil {
			return 0, 0, err
		}

		var data windows.Win32finddata
		handle, err := windows.FindFirstFile(pattern, &data)
		if err != nil {
			if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
				continue
			}
			return 0, 0, err
		}

		for {
			name := windows.UTF16ToString(data.FileName[:])
			switch {
			case name == "." || name == "..":
			case data.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0:
				// Junctions and symlinks are not followed.
			case data.FileAttributes&windows.FILE_ATTRIBUTE_DIRECTORY != 0:
				pending = append(pending, filepath.Join(current, name))
			default:
				files++
				bytes += int64(data.FileSizeHigh)<<32 | int64(data.FileSizeLow)
			}

			if err := windows.FindNextFile(handle, &data); err != nil {
				if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
					break
				}
				windows.FindClose(handle)
				return 0, 0, err
			}
		}
		windows.FindClose(handle)
	}

	return files, bytes, nil
}
