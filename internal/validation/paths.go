// Package validation checks user-supplied names and paths before they are
// turned into object keys or local destinations.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxKeyLength is the S3 limit on object key length in bytes.
const MaxKeyLength = 1024

// ValidateFilename validates a single path component (not a full path).
//
// Returns an error if the name:
//   - Is empty
//   - Contains path separators (/ or \)
//   - Is "." or ".."
//   - Contains null bytes
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}

	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}

	// "foo..bar.txt" is fine; only the literal dot names navigate.
	if filename == "." || filename == ".." {
		return fmt.Errorf("filename cannot be %q", filename)
	}

	return nil
}

// ValidateFolderName validates the name of a new remote folder. On top of
// ValidateFilename it rejects names with leading or trailing whitespace,
// which s5cmd and most S3 browsers display ambiguously.
func ValidateFolderName(name string) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("folder name cannot start or end with whitespace: %q", name)
	}
	return nil
}

// ValidateRemoteKey checks that key is a usable bucket-relative object key.
func ValidateRemoteKey(key string) error {
	if len(key) > MaxKeyLength {
		return fmt.Errorf("key is %d bytes, the limit is %d", len(key), MaxKeyLength)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("key is not valid UTF-8: %q", key)
	}
	if strings.ContainsRune(key, 0) {
		return fmt.Errorf("key contains null byte: %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("key cannot contain '..' segments: %s", key)
		}
	}
	return nil
}

// ValidatePathInDirectory validates that a path, when resolved, stays within baseDir.
// Both path and baseDir are cleaned and made absolute before comparison.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "/tmp/restore") // Error: escapes base dir
//	ValidatePathInDirectory("run1/a.bin", "/tmp/restore")       // OK: within base dir
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanPath := filepath.Clean(path)
	cleanBase := filepath.Clean(baseDir)

	var err error
	if !filepath.IsAbs(cleanBase) {
		cleanBase, err = filepath.Abs(cleanBase)
		if err != nil {
			return fmt.Errorf("failed to resolve base directory: %w", err)
		}
	}

	resolvedPath := cleanPath
	if !filepath.IsAbs(cleanPath) {
		resolvedPath = filepath.Join(cleanBase, cleanPath)
	}
	resolvedPath = filepath.Clean(resolvedPath)

	relPath, err := filepath.Rel(cleanBase, resolvedPath)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}

	if strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || relPath == ".." {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}

	return nil
}
