package copytool

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/events"
)

// ErrorMarker flags a failed object in s5cmd output.
const ErrorMarker = "ERROR"

const maxLineLength = 1 << 20

// Outcome is the result of a monitored copy.
type Outcome struct {
	Success    bool
	ExitCode   int
	Copied     int64
	ErrorLines []string
	Elapsed    time.Duration
	// Err is set when the exit status could not be read or the copy was
	// cancelled.
	Err error
}

// Monitor drains handle's output, counting one copied object per line, and
// reports progress through onProgress at most once per second. Lines with
// ErrorMarker are recorded and reported immediately but never stop the
// drain. A final event is always emitted. The exit code is read only after
// the output reached EOF.
func Monitor(handle Handle, expected int64, onProgress func(events.ProgressEvent)) Outcome {
	return monitor(handle, expected, onProgress, time.Now, constants.ProgressInterval)
}

func monitor(handle Handle, expected int64, onProgress func(events.ProgressEvent), now func() time.Time, interval time.Duration) Outcome {
	if onProgress == nil {
		onProgress = func(events.ProgressEvent) {}
	}

	start := now()
	last := start
	var out Outcome

	emit := func(t time.Time, errorLine string) {
		ev := events.NewProgressEvent(out.Copied, expected)
		ev.Time = t
		ev.ErrorLine = errorLine
		onProgress(ev)
	}

	r := handle.Output()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := scanner.Text()
		out.Copied++
		t := now()

		if strings.Contains(line, ErrorMarker) {
			out.ErrorLines = append(out.ErrorLines, line)
			emit(t, line)
			last = t
			continue
		}
		if t.Sub(last) >= interval {
			emit(t, "")
			last = t
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Oversized line: the rest of the output can no longer be counted,
		// but draining lets the process exit.
		_, _ = io.Copy(io.Discard, r)
	}

	end := now()
	emit(end, "")

	out.ExitCode, out.Err = handle.Wait()
	if out.Err == nil && scanErr != nil {
		out.Err = fmt.Errorf("reading s5cmd output: %w", scanErr)
	}
	out.Elapsed = end.Sub(start)
	out.Success = out.Err == nil && out.ExitCode == 0 && len(out.ErrorLines) == 0
	return out
}
