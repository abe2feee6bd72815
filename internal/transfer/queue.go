package transfer

import (
	"context"
	"errors"
	"sync"

	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/logging"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("transfer queue is closed")

// Runner executes a single job. *Coordinator implements it.
type Runner interface {
	Run(ctx context.Context, job *Job) error
}

// QueueStats holds statistics about the transfer queue.
type QueueStats struct {
	Pending   int
	Running   int
	Succeeded int
	Failed    int
}

// Total returns total number of jobs seen by the queue.
func (s QueueStats) Total() int {
	return s.Pending + s.Running + s.Succeeded + s.Failed
}

// Queue runs jobs strictly in FIFO order on a single worker goroutine.
// The next job starts only after the previous one completed.
//
// Usage:
//
//	q := NewQueue(coordinator, logger)
//	q.OnJobDone(refresh)
//	q.Start(ctx)
//	q.Enqueue(job)
//	q.Close()
//	q.Wait()
type Queue struct {
	runner Runner
	logger *logging.Logger

	jobs chan *Job
	done chan struct{}

	// sendMu serializes Enqueue with Close.
	sendMu  sync.Mutex
	closed  bool
	started bool

	// mu protects tracking state.
	mu        sync.RWMutex
	tracked   []*Job
	cancelJob context.CancelFunc
	runningID string
	onJobDone func(*Job, error)
}

// NewQueue creates a queue that hands jobs to runner.
func NewQueue(runner Runner, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Queue{
		runner: runner,
		logger: logger,
		jobs:   make(chan *Job, constants.QueueBuffer),
		done:   make(chan struct{}),
	}
}

// OnJobDone registers a hook called on the worker goroutine after each job
// finished, before the next one starts.
func (q *Queue) OnJobDone(fn func(job *Job, err error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onJobDone = fn
}

// Start launches the worker. Cancelling ctx cancels the running job and
// fails every job still queued.
func (q *Queue) Start(ctx context.Context) {
	q.sendMu.Lock()
	if q.started {
		q.sendMu.Unlock()
		return
	}
	q.started = true
	q.sendMu.Unlock()

	go q.worker(ctx)
}

// Enqueue appends job to the queue. It blocks while the queue buffer is full.
func (q *Queue) Enqueue(job *Job) error {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	q.mu.Lock()
	q.tracked = append(q.tracked, job)
	q.mu.Unlock()

	q.jobs <- job
	return nil
}

// Close stops accepting jobs. Jobs already queued still run.
func (q *Queue) Close() {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

// Wait blocks until the worker drained the queue after Close.
func (q *Queue) Wait() {
	<-q.done
}

// Cancel cancels the job with the given ID if it is currently running.
func (q *Queue) Cancel(jobID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.runningID != jobID || q.cancelJob == nil {
		return false
	}
	q.cancelJob()
	return true
}

// Jobs returns every job enqueued so far in order.
func (q *Queue) Jobs() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*Job, len(q.tracked))
	copy(out, q.tracked)
	return out
}

// GetStats returns current queue statistics.
func (q *Queue) GetStats() QueueStats {
	var stats QueueStats
	for _, job := range q.Jobs() {
		switch job.Status() {
		case StatusPending:
			stats.Pending++
		case StatusRunning:
			stats.Running++
		case StatusSucceeded:
			stats.Succeeded++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats
}

func (q *Queue) worker(ctx context.Context) {
	defer close(q.done)

	for job := range q.jobs {
		jobCtx, cancel := context.WithCancel(ctx)
		q.mu.Lock()
		q.runningID = job.ID
		q.cancelJob = cancel
		q.mu.Unlock()

		q.logger.Infof("starting %s (%s)", job.ID, job)
		err := q.runner.Run(jobCtx, job)
		cancel()

		q.mu.Lock()
		q.runningID = ""
		q.cancelJob = nil
		hook := q.onJobDone
		q.mu.Unlock()

		if err != nil {
			q.logger.Warnf("%s failed: %v", job.ID, err)
		} else {
			q.logger.Infof("%s finished", job.ID)
		}
		if hook != nil {
			hook(job, err)
		}
	}
}
