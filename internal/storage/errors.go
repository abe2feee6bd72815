package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ListingError reports a failed listing or delete request.
type ListingError struct {
	Op     string
	Prefix string
	Err    error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Prefix, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// IsListingError checks if an error is (or wraps) a ListingError
func IsListingError(err error) bool {
	var le *ListingError
	return errors.As(err, &le)
}

// DeleteError collects the keys a bulk delete could not remove.
type DeleteError struct {
	Failed map[string]string
}

func (e *DeleteError) Error() string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	if len(keys) > 3 {
		keys = append(keys[:3], "...")
	}
	return fmt.Sprintf("failed to delete %d objects (%s)", len(e.Failed), strings.Join(keys, ", "))
}

// ErrorCode returns the S3 error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsNotFound reports a missing bucket or key.
func IsNotFound(err error) bool {
	switch ErrorCode(err) {
	case "NoSuchBucket", "NotFound", "NoSuchKey":
		return true
	}
	return false
}

// IsAccessDenied reports an authorization failure.
func IsAccessDenied(err error) bool {
	switch ErrorCode(err) {
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return true
	}
	return false
}
