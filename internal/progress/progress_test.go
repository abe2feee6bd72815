package progress

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/s5bridge/s5bridge/internal/events"
)

type recordingReporter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingReporter) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingReporter) Start(expected int64, description string) {
	r.add("start " + description + " " + strconv.FormatInt(expected, 10))
}
func (r *recordingReporter) Update(copied int64)        { r.add("update " + strconv.FormatInt(copied, 10)) }
func (r *recordingReporter) Finish()                    { r.add("finish") }
func (r *recordingReporter) Error(err error)            { r.add("error") }
func (r *recordingReporter) SetDescription(desc string) { r.add("describe " + desc) }
func (r *recordingReporter) Message(msg string)         { r.add("message " + msg) }

func TestFollowerRendersJob(t *testing.T) {
	bus := events.NewEventBus(100)
	defer bus.Close()
	rep := &recordingReporter{}
	f := Follow(bus, rep)

	bus.PublishLog(events.InfoLevel, "job-1", "connecting", nil)
	bus.PublishProgress("job-1", events.NewProgressEvent(1, 3))
	bus.PublishProgress("job-1", events.NewProgressEvent(3, 3))
	bus.PublishComplete("job-1", true, 3, time.Second, nil)

	bus.PublishProgress("job-2", events.NewProgressEvent(0, 5))
	bus.PublishLog(events.ErrorLevel, "job-2", "error during transfer: ERROR x", nil)
	bus.PublishComplete("job-2", false, 0, time.Second, errors.New("failed"))

	time.Sleep(50 * time.Millisecond)
	f.Stop()

	want := []string{
		"start copying 3",
		"update 1",
		"update 3",
		"finish",
		"start copying 5",
		"update 0",
		"message error during transfer: ERROR x",
		"error",
	}
	if diff := cmp.Diff(want, rep.calls); diff != "" {
		t.Errorf("reporter calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFollowerStopIsIdempotent(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	f := Follow(bus, NewNoOpProgress())
	f.Stop()
	f.Stop()
}

func TestFollowerEndsWhenBusCloses(t *testing.T) {
	bus := events.NewEventBus(10)
	f := Follow(bus, NewNoOpProgress())
	bus.Close()

	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("follower did not stop after the bus closed")
	}
}

func TestLineProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewLineProgress(&buf)

	p.Start(4, "copying")
	p.Update(2)
	p.Finish()
	p.Start(-1, "copying")
	p.Update(7)
	p.Error(errors.New("exit status 1"))

	want := "copying\ncopied 2/4\ncopying\ncopied 7\nError: exit status 1\n"
	if got := buf.String(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestCLIProgressWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgress(&buf)

	// Calls before Start must not panic.
	p.Update(1)
	p.SetDescription("x")
	p.Finish()
	p.Message("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Expected message in output, got %q", buf.String())
	}
}
