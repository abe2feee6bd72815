// Package capacity answers "does it fit?" before a transfer: local free
// space, local data size, remote usage against the configured bucket size,
// and human-readable size parsing and formatting.
package capacity

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Binary units (B..TB) are powers of 1024; the IEC-looking names (KIB..TIB)
// are powers of 1000. Existing BUCKETSIZE values depend on this mapping.
var sizeUnits = map[string]float64{
	"":    1,
	"B":   1,
	"KB":  1 << 10,
	"MB":  1 << 20,
	"GB":  1 << 30,
	"TB":  1 << 40,
	"KIB": 1e3,
	"MIB": 1e6,
	"GIB": 1e9,
	"TIB": 1e12,
}

var sizePattern = regexp.MustCompile(`^([\d.]+)\s*([a-zA-Z]{0,3})$`)

var formatUnits = []string{"", "KB", "MB", "GB", "TB", "PB"}

// ErrSizeUnsupported marks magnitudes beyond the largest formatted unit.
var ErrSizeUnsupported = errors.New("not supported")

// ParseError reports a size string that does not match <number><unit>.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid size %q: %s", e.Input, e.Reason)
}

// ParseSize converts "1.5 GB", "100", "2TiB" and similar to bytes.
// Units are case-insensitive and may be separated from the number by
// whitespace.
func ParseSize(text string) (int64, error) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, &ParseError{Input: text, Reason: "expected <number><unit>"}
	}

	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, &ParseError{Input: text, Reason: "bad number"}
	}
	multiplier, ok := sizeUnits[strings.ToUpper(m[2])]
	if !ok {
		return 0, &ParseError{Input: text, Reason: fmt.Sprintf("unknown unit %q", m[2])}
	}

	bytes := number * multiplier
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if bytes >= math.MaxInt64 {
		return 0, &ParseError{Input: text, Reason: "too large"}
	}
	return int64(bytes), nil
}

// FormatSize renders bytes with one decimal in the largest unit below 1024,
// e.g. "1.0 GB". Plain byte counts carry no unit ("512.0"). Magnitudes of
// 1024 PB and above render as "not supported".
func FormatSize(bytes int64) string {
	num := float64(bytes)
	for _, unit := range formatUnits {
		if math.Abs(num) < 1024 {
			return strings.TrimSpace(fmt.Sprintf("%.1f %s", num, unit))
		}
		num /= 1024
	}
	return ErrSizeUnsupported.Error()
}
