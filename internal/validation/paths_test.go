package validation

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidateFilename(t *testing.T) {
	testCases := []struct {
		name        string
		filename    string
		expectValid bool
	}{
		{"simple", "file.txt", true},
		{"with_dots", "file.v1.2.3.txt", true},
		{"double_dot_inside", "data..v2.csv", true},
		{"hidden_file", ".hidden", true},
		{"spaces", "my file.txt", true},
		{"unicode", "données.csv", true},

		{"empty", "", false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"unix_separator", "dir/file", false},
		{"windows_separator", "dir\\file", false},
		{"mixed_separators", "dir/sub\\file", false},
		{"null_byte", "file\x00.txt", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilename(tc.filename)
			if tc.expectValid && err != nil {
				t.Errorf("Expected %q to be valid, got error: %v", tc.filename, err)
			} else if !tc.expectValid && err == nil {
				t.Errorf("Expected %q to be rejected", tc.filename)
			}
		})
	}
}

func TestValidateFolderName(t *testing.T) {
	testCases := []struct {
		name        string
		folder      string
		expectValid bool
	}{
		{"plain", "2024-q1", true},
		{"inner_space", "run 1", true},
		{"leading_space", " run1", false},
		{"trailing_space", "run1 ", false},
		{"separator", "a/b", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFolderName(tc.folder)
			if tc.expectValid && err != nil {
				t.Errorf("Expected %q to be valid, got error: %v", tc.folder, err)
			} else if !tc.expectValid && err == nil {
				t.Errorf("Expected %q to be rejected", tc.folder)
			}
		})
	}
}

func TestValidateRemoteKey(t *testing.T) {
	testCases := []struct {
		name        string
		key         string
		expectValid bool
	}{
		{"root", "", true},
		{"nested", "a/b/c.txt", true},
		{"folder", "a/b/", true},
		{"dotdot_segment", "a/../b", false},
		{"dotdot_name", "a/..b", true},
		{"null_byte", "a\x00b", false},
		{"invalid_utf8", "a\xffb", false},
		{"too_long", strings.Repeat("k", MaxKeyLength+1), false},
		{"at_limit", strings.Repeat("k", MaxKeyLength), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRemoteKey(tc.key)
			if tc.expectValid && err != nil {
				t.Errorf("Expected key to be valid, got error: %v", err)
			} else if !tc.expectValid && err == nil {
				t.Errorf("Expected key %q to be rejected", tc.key)
			}
		})
	}
}

func TestValidatePathInDirectory(t *testing.T) {
	baseDir := "/tmp/restore"
	if runtime.GOOS == "windows" {
		baseDir = `C:\restore`
	}

	testCases := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{"simple", "file.txt", true},
		{"nested", filepath.Join("run1", "a.bin"), true},
		{"dot_prefix", filepath.Join(".", "file.txt"), true},
		{"internal_parent", filepath.Join("a", "..", "b.txt"), true},
		{"absolute_inside", filepath.Join(baseDir, "run1"), true},

		{"parent", "..", false},
		{"escape", filepath.Join("..", "..", "etc", "passwd"), false},
		{"deep_escape", filepath.Join("a", "..", "..", "x"), false},
		{"absolute_outside", filepath.Join(filepath.Dir(baseDir), "other"), false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathInDirectory(tc.path, baseDir)
			if tc.expectValid && err != nil {
				t.Errorf("Expected valid path, got error: %v", err)
			} else if !tc.expectValid && err == nil {
				t.Errorf("Expected path to be rejected: %s", tc.path)
			}
		})
	}

	if err := ValidatePathInDirectory("file.txt", ""); err == nil {
		t.Error("Expected empty base directory to be rejected")
	}
}
