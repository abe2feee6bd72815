package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/s5bridge/s5bridge/internal/capacity"
)

// ConnectivityError indicates the configured bucket could not be reached or
// does not exist.
type ConnectivityError struct {
	Bucket string
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot reach bucket %s: %v", e.Bucket, e.Err)
	}
	return fmt.Sprintf("specified bucket not found: %s", e.Bucket)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// CapacityError indicates the destination has less free space than the
// source occupies.
type CapacityError struct {
	Required  int64
	Available int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough free space, required: %s, free space: %s",
		capacity.FormatSize(e.Required), capacity.FormatSize(e.Available))
}

// CopyError indicates s5cmd exited non-zero or reported failed objects.
type CopyError struct {
	ExitCode   int
	ErrorLines []string
}

func (e *CopyError) Error() string {
	if len(e.ErrorLines) == 0 {
		return fmt.Sprintf("error occurred during transfer: s5cmd exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("error occurred during transfer: s5cmd exited with code %d, %d failed: %s",
		e.ExitCode, len(e.ErrorLines), strings.Join(e.ErrorLines, "; "))
}

// IsCapacityError reports whether err is or wraps a CapacityError.
func IsCapacityError(err error) bool {
	var target *CapacityError
	return errors.As(err, &target)
}

// IsConnectivityError reports whether err is or wraps a ConnectivityError.
func IsConnectivityError(err error) bool {
	var target *ConnectivityError
	return errors.As(err, &target)
}

// IsCopyError reports whether err is or wraps a CopyError.
func IsCopyError(err error) bool {
	var target *CopyError
	return errors.As(err, &target)
}
