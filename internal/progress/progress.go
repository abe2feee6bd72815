// Package progress renders transfer events for the terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/s5bridge/s5bridge/internal/events"
)

// Reporter displays the progress of one job at a time.
type Reporter interface {
	Start(expected int64, description string)
	Update(copied int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
	// Message prints a line without disturbing the progress display.
	Message(msg string)
}

// New returns a bar reporter when out is a terminal and a line reporter
// otherwise.
func New(out *os.File) Reporter {
	if term.IsTerminal(int(out.Fd())) {
		enableANSI(out)
		return NewCLIProgress(out)
	}
	return NewLineProgress(out)
}

// CLIProgress draws an object-count progress bar.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a progress bar reporter writing to out.
func NewCLIProgress(out io.Writer) *CLIProgress {
	return &CLIProgress{out: out}
}

// Start initializes the bar. A negative expected count renders a spinner.
func (p *CLIProgress) Start(expected int64, description string) {
	p.bar = progressbar.NewOptions64(expected,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("objects"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to copied.
func (p *CLIProgress) Update(copied int64) {
	if p.bar != nil {
		_ = p.bar.Set64(copied)
	}
}

// Finish completes the bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Error abandons the bar and prints err.
func (p *CLIProgress) Error(err error) {
	if p.bar != nil {
		_ = p.bar.Exit()
		p.bar = nil
		fmt.Fprint(p.out, "\n")
	}
	if err != nil {
		fmt.Fprintf(p.out, "Error: %v\n", err)
	}
}

// SetDescription updates the bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// Message clears the bar line, prints msg and lets the bar redraw.
func (p *CLIProgress) Message(msg string) {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
	fmt.Fprintln(p.out, msg)
}

// LineProgress prints "copied n/m" lines, for logs and pipes.
type LineProgress struct {
	out         io.Writer
	expected    int64
	description string
}

// NewLineProgress creates a line reporter writing to out.
func NewLineProgress(out io.Writer) *LineProgress {
	return &LineProgress{out: out}
}

func (p *LineProgress) Start(expected int64, description string) {
	p.expected = expected
	p.description = description
	fmt.Fprintln(p.out, description)
}

func (p *LineProgress) Update(copied int64) {
	if p.expected >= 0 {
		fmt.Fprintf(p.out, "copied %d/%d\n", copied, p.expected)
		return
	}
	fmt.Fprintf(p.out, "copied %d\n", copied)
}

func (p *LineProgress) Finish() {}

func (p *LineProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "Error: %v\n", err)
	}
}

func (p *LineProgress) SetDescription(desc string) {
	p.description = desc
}

func (p *LineProgress) Message(msg string) {
	fmt.Fprintln(p.out, msg)
}

// NoOpProgress is a reporter that does nothing (for --quiet).
type NoOpProgress struct{}

func NewNoOpProgress() *NoOpProgress { return &NoOpProgress{} }

func (NoOpProgress) Start(int64, string)   {}
func (NoOpProgress) Update(int64)          {}
func (NoOpProgress) Finish()               {}
func (NoOpProgress) Error(error)           {}
func (NoOpProgress) SetDescription(string) {}
func (NoOpProgress) Message(string)        {}

// Follower drives a Reporter from the event bus until the bus closes or
// Stop is called. Jobs are rendered one at a time, as the queue runs them.
type Follower struct {
	bus      *events.EventBus
	reporter Reporter
	ch       <-chan events.Event
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
	active   map[string]bool
}

// Follow subscribes reporter to every event on bus.
func Follow(bus *events.EventBus, reporter Reporter) *Follower {
	f := &Follower{
		bus:      bus,
		reporter: reporter,
		ch:       bus.SubscribeAll(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		active:   map[string]bool{},
	}
	go f.run()
	return f
}

func (f *Follower) run() {
	defer close(f.done)

	for {
		select {
		case ev, ok := <-f.ch:
			if !ok {
				return
			}
			f.handle(ev)
		case <-f.stop:
			for {
				select {
				case ev, ok := <-f.ch:
					if !ok {
						return
					}
					f.handle(ev)
				default:
					return
				}
			}
		}
	}
}

func (f *Follower) handle(ev events.Event) {
	switch e := ev.(type) {
	case *events.ProgressEvent:
		if !f.active[e.JobID] {
			f.active[e.JobID] = true
			f.reporter.Start(e.Expected, "copying")
		}
		f.reporter.Update(e.Copied)
	case *events.LogEvent:
		// Step messages already reach the console through the logger;
		// only copy failures are echoed next to the bar.
		if e.Level == events.ErrorLevel && f.active[e.JobID] {
			f.reporter.Message(e.Message)
		}
	case *events.CompleteEvent:
		if !f.active[e.JobID] {
			return
		}
		delete(f.active, e.JobID)
		if e.Success {
			f.reporter.Finish()
		} else {
			f.reporter.Error(nil)
		}
	}
}

// Stop unsubscribes and waits for pending events to be rendered.
func (f *Follower) Stop() {
	f.once.Do(func() {
		f.bus.UnsubscribeAll(f.ch)
		close(f.stop)
	})
	<-f.done
}
