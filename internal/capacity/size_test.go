package capacity

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1.5 GB", 1610612736},
		{"100", 100},
		{"100 B", 100},
		{"2KB", 2048},
		{"1 mb", 1 << 20},
		{"3 TB", 3 << 40},
		{"1 KIB", 1000},
		{"2 MiB", 2000000},
		{"1.5 GIB", 1500000000},
		{"1 TIB", 1000000000000},
		{"  42 kb  ", 42 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if err != nil {
				t.Fatalf("ParseSize(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q): expected %d, got %d", tt.input, tt.want, got)
			}
		})
	}
}

func TestParseSizeErrors(t *testing.T) {
	for _, input := range []string{"", "GB", "1.5 XB", "-5 GB", "ten", "1 GBPS", "8388608 TB", "9223372036854775807"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSize(input)
			if err == nil {
				t.Fatalf("Expected error for %q", input)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("Expected ParseError, got %T", err)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0.0"},
		{512, "512.0"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1 << 30, "1.0 GB"},
		{5 << 40, "5.0 TB"},
		{1 << 50, "1.0 PB"},
		{-2048, "-2.0 KB"},
		{1 << 60, "not supported"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d): expected %q, got %q", tt.bytes, tt.want, got)
		}
	}
}
