// Package transfer runs upload and download jobs through s5cmd, one at a time.
package transfer

import (
	"fmt"
	"sync"
	"time"

	"github.com/s5bridge/s5bridge/internal/remotepath"
)

// Direction indicates whether a job is an upload or download.
type Direction string

const (
	Upload   Direction = "upload"
	Download Direction = "download"
)

// Status represents the current status of a job.
type Status string

const (
	StatusPending   Status = "pending"   // Waiting in queue
	StatusRunning   Status = "running"   // Picked up by the coordinator
	StatusSucceeded Status = "succeeded" // Copy finished without errors
	StatusFailed    Status = "failed"    // Any phase failed or the job was cancelled
)

// Phase is a step of the coordinator's state machine.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseConnectivityCheck Phase = "connectivity-check"
	PhaseCapacityCheck     Phase = "capacity-check"
	PhasePathResolution    Phase = "path-resolution"
	PhaseCopying           Phase = "copying"
	PhaseSourceDeletion    Phase = "source-deletion"
	PhaseCompleted         Phase = "completed"
	PhaseFailed            Phase = "failed"
)

// Job is a single upload or download.
// The descriptive fields are fixed at creation; progress fields are guarded
// by the job's mutex and only mutated by the coordinator.
type Job struct {
	ID           string
	Direction    Direction
	Local        string          // Local file or folder
	Remote       remotepath.Path // Remote file or folder, relative to the bucket
	DeleteSource bool

	mu          sync.RWMutex
	status      Status
	phase       Phase
	err         error
	copied      int64
	expected    int64
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
}

// NewJob creates a pending job.
func NewJob(direction Direction, local string, remote remotepath.Path, deleteSource bool) *Job {
	return &Job{
		ID:           generateJobID(),
		Direction:    direction,
		Local:        local,
		Remote:       remote,
		DeleteSource: deleteSource,
		status:       StatusPending,
		phase:        PhaseIdle,
		expected:     -1,
		createdAt:    time.Now(),
	}
}

// Source returns the side data is read from.
func (j *Job) Source() string {
	if j.Direction == Upload {
		return j.Local
	}
	return j.Remote.String()
}

// Destination returns the side data is written to.
func (j *Job) Destination() string {
	if j.Direction == Upload {
		return j.Remote.String()
	}
	return j.Local
}

// Status returns the current status (thread-safe).
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Phase returns the state machine step the job is in (thread-safe).
func (j *Job) Phase() Phase {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.phase
}

// Err returns the error that failed the job, if any.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// Progress returns copied and expected object counts. Expected is negative
// until the capacity check has counted the source.
func (j *Job) Progress() (copied, expected int64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.copied, j.expected
}

// Times returns creation, start and completion timestamps.
func (j *Job) Times() (created, started, completed time.Time) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.createdAt, j.startedAt, j.completedAt
}

// Duration returns how long the job ran, or zero if it never started.
func (j *Job) Duration() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.startedAt.IsZero() {
		return 0
	}
	if j.completedAt.IsZero() {
		return time.Since(j.startedAt)
	}
	return j.completedAt.Sub(j.startedAt)
}

func (j *Job) setPhase(phase Phase) Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	old := j.phase
	j.phase = phase
	switch phase {
	case PhaseIdle:
	case PhaseCompleted:
		j.status = StatusSucceeded
		j.completedAt = time.Now()
	case PhaseFailed:
		j.status = StatusFailed
		j.completedAt = time.Now()
	default:
		if j.status == StatusPending {
			j.status = StatusRunning
			j.startedAt = time.Now()
		}
	}
	return old
}

func (j *Job) setErr(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err
}

func (j *Job) setExpected(n int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.expected = n
}

func (j *Job) setCopied(n int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.copied = n
}

// String describes the job for log lines.
func (j *Job) String() string {
	return fmt.Sprintf("%s %s -> %s", j.Direction, j.Source(), j.Destination())
}

// Job ID generation
var (
	jobCounter int64
	jobMu      sync.Mutex
)

func generateJobID() string {
	jobMu.Lock()
	defer jobMu.Unlock()
	jobCounter++
	return fmt.Sprintf("job-%d-%d", time.Now().UnixNano(), jobCounter)
}
