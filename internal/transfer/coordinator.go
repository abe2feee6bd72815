package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/s5bridge/s5bridge/internal/capacity"
	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/copytool"
	"github.com/s5bridge/s5bridge/internal/events"
	"github.com/s5bridge/s5bridge/internal/localfs"
	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/validation"
)

// BucketChecker confirms the configured bucket is reachable.
type BucketChecker interface {
	Bucket() string
	BucketExists(ctx context.Context) (bool, error)
}

// RemoteSizer reports usage under a remote prefix or of a single object.
type RemoteSizer interface {
	RemoteDataSize(ctx context.Context, prefix string) capacity.RemoteUsage
	RemoteObjectSize(ctx context.Context, key string) capacity.RemoteUsage
}

// Copier runs one s5cmd invocation to completion.
type Copier interface {
	Execute(ctx context.Context, op copytool.Op, source, destination string, expected int64, onProgress func(events.ProgressEvent)) (copytool.Outcome, error)
}

// RemoteDeleter removes remote objects after a download.
type RemoteDeleter interface {
	DeleteObjects(ctx context.Context, keys []string) (int, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Dependencies are the collaborators a Coordinator drives.
type Dependencies struct {
	Bucket  BucketChecker
	Sizer   RemoteSizer
	Copier  Copier
	Deleter RemoteDeleter
}

// Coordinator moves a job through connectivity check, capacity check, path
// resolution, copy and optional source deletion. Each step is published on
// the event bus; exactly one completion event is published per job.
type Coordinator struct {
	deps   Dependencies
	bus    *events.EventBus
	logger *logging.Logger

	localFreeSpace func(string) (int64, error)
	localDataSize  func(string) (int64, int64, error)
	removeLocal    func(string) error
}

// NewCoordinator creates a coordinator. bus may be nil.
func NewCoordinator(deps Dependencies, bus *events.EventBus, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Coordinator{
		deps:           deps,
		bus:            bus,
		logger:         logger,
		localFreeSpace: capacity.LocalFreeSpace,
		localDataSize:  capacity.LocalDataSize,
		removeLocal:    localfs.Remove,
	}
}

// plan is the outcome of the capacity and path resolution phases.
type plan struct {
	source      string
	destination string
	expected    int64
}

// Run executes job and returns the error that failed it, or nil.
// A cancelled context fails the job with the context's error.
func (c *Coordinator) Run(ctx context.Context, job *Job) (err error) {
	defer func() {
		c.finish(job, err)
	}()

	if err := c.advance(ctx, job, PhaseConnectivityCheck); err != nil {
		return err
	}
	c.progress(job, "connecting")
	if err := c.checkConnectivity(ctx); err != nil {
		return err
	}

	if err := c.advance(ctx, job, PhaseCapacityCheck); err != nil {
		return err
	}
	c.progress(job, "checking free space")
	p, err := c.checkCapacity(ctx, job)
	if err != nil {
		return err
	}
	job.setExpected(p.expected)

	if err := c.advance(ctx, job, PhasePathResolution); err != nil {
		return err
	}
	c.progress(job, "passed free space check, creating copy paths")
	if err := c.resolvePaths(job, &p); err != nil {
		return err
	}
	c.progress(job, fmt.Sprintf("source: %s, destination: %s", p.source, p.destination))

	if err := c.advance(ctx, job, PhaseCopying); err != nil {
		return err
	}
	if err := c.copy(ctx, job, p); err != nil {
		return err
	}

	if job.DeleteSource {
		if err := c.advance(ctx, job, PhaseSourceDeletion); err != nil {
			return err
		}
		c.deleteSource(ctx, job)
	}
	return nil
}

func (c *Coordinator) checkConnectivity(ctx context.Context) error {
	bucket := c.deps.Bucket.Bucket()
	ctx, cancel := context.WithTimeout(ctx, constants.ConnectivityCheckTimeout)
	defer cancel()
	ok, err := c.deps.Bucket.BucketExists(ctx)
	if err != nil {
		return &ConnectivityError{Bucket: bucket, Err: err}
	}
	if !ok {
		return &ConnectivityError{Bucket: bucket}
	}
	return nil
}

// checkCapacity compares the source size with the free space at the
// destination and counts the objects the copy is expected to report.
func (c *Coordinator) checkCapacity(ctx context.Context, job *Job) (plan, error) {
	switch job.Direction {
	case Upload:
		files, bytes, err := c.localDataSize(job.Local)
		if err != nil {
			return plan{}, err
		}
		usage := c.deps.Sizer.RemoteDataSize(ctx, "")
		if usage.Free < bytes {
			return plan{}, &CapacityError{Required: bytes, Available: usage.Free}
		}
		return plan{expected: files}, nil

	case Download:
		free, err := c.localFreeSpace(job.Local)
		if err != nil {
			return plan{}, err
		}
		var usage capacity.RemoteUsage
		if job.Remote.IsFile() {
			usage = c.deps.Sizer.RemoteObjectSize(ctx, job.Remote.RelativeKey())
		} else {
			usage = c.deps.Sizer.RemoteDataSize(ctx, job.Remote.RelativeKey())
		}
		c.progress(job, fmt.Sprintf("source: %s, remote files: %d, remote size: %s",
			job.Remote, usage.Files, capacity.FormatSize(usage.Bytes)))
		if free < usage.Bytes {
			return plan{}, &CapacityError{Required: usage.Bytes, Available: free}
		}
		return plan{expected: usage.Files}, nil
	}
	return plan{}, fmt.Errorf("unknown transfer direction %q", job.Direction)
}

// resolvePaths builds the s5cmd source and destination arguments.
//
// Upload: the local name is appended to the remote folder and a directory
// source is rewritten to dir/* so its contents land under that name.
// Download: a remote folder becomes a wildcard, the local folder is created
// and the remote name is appended to it. A remote file (Path.IsFile) is
// copied by exact key to a file destination.
func (c *Coordinator) resolvePaths(job *Job, p *plan) error {
	bucket := c.deps.Bucket.Bucket()
	name := job.Remote.Name()
	if err := validation.ValidateRemoteKey(job.Remote.RelativeKey()); err != nil {
		return err
	}

	switch job.Direction {
	case Upload:
		info, err := os.Stat(job.Local)
		if err != nil {
			return &capacity.FilesystemError{Path: job.Local, Op: "stat", Err: err}
		}
		p.destination = job.Remote.Join(filepath.Base(job.Local)).FullURI(bucket)
		p.source = job.Local
		if info.IsDir() {
			p.source = filepath.Join(job.Local, "*")
		}

	case Download:
		p.source = job.Remote.FullURI(bucket)
		if !job.Remote.IsFile() {
			p.source += "*"
		}
		if err := os.MkdirAll(job.Local, 0755); err != nil {
			return &capacity.FilesystemError{Path: job.Local, Op: "mkdir", Err: err}
		}
		if name != "" {
			if err := validation.ValidatePathInDirectory(name, job.Local); err != nil {
				return err
			}
		}
		p.destination = filepath.Join(job.Local, name)
		if !job.Remote.IsFile() {
			p.destination += string(os.PathSeparator)
		}
	}
	return nil
}

func (c *Coordinator) copy(ctx context.Context, job *Job, p plan) error {
	c.progress(job, "starting transfer")
	out, err := c.deps.Copier.Execute(ctx, copytool.OpCopy, p.source, p.destination, p.expected,
		func(ev events.ProgressEvent) {
			job.setCopied(ev.Copied)
			if c.bus != nil {
				c.bus.PublishProgress(job.ID, ev)
			}
			if ev.ErrorLine != "" {
				c.publish(events.ErrorLevel, job, "error during transfer: "+ev.ErrorLine, nil)
			}
		})
	if err != nil {
		return err
	}
	job.setCopied(out.Copied)
	c.progress(job, fmt.Sprintf("copied %d/%d", out.Copied, p.expected))
	c.progress(job, fmt.Sprintf("finished transfer, it took %s", out.Elapsed.Round(time.Millisecond)))

	if out.Success {
		return nil
	}
	if out.Err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return &CopyError{ExitCode: out.ExitCode, ErrorLines: out.ErrorLines}
}

// deleteSource removes the copied source. Failures are logged only; the
// data already reached the destination.
func (c *Coordinator) deleteSource(ctx context.Context, job *Job) {
	c.progress(job, fmt.Sprintf("removing: %s", job.Source()))

	var err error
	switch job.Direction {
	case Upload:
		err = c.removeLocal(job.Local)
	case Download:
		var n int
		if job.Remote.IsFile() {
			n, err = c.deps.Deleter.DeleteObjects(ctx, []string{job.Remote.RelativeKey()})
		} else {
			n, err = c.deps.Deleter.DeletePrefix(ctx, job.Remote.RelativeKey())
		}
		if err == nil {
			c.logger.Infof("deleted %d objects under %q", n, job.Remote.RelativeKey())
		}
	}
	if err != nil {
		c.publish(events.WarnLevel, job, fmt.Sprintf("failed to remove %s", job.Source()), err)
	}
}

// advance moves to the next phase unless ctx was cancelled.
func (c *Coordinator) advance(ctx context.Context, job *Job, next Phase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.transition(job, next)
	return nil
}

func (c *Coordinator) transition(job *Job, next Phase) {
	old := job.setPhase(next)
	c.logger.Debugf("%s: %s -> %s", job.ID, old, next)
	if c.bus != nil {
		c.bus.PublishStateChange(job.ID, string(old), string(next))
	}
}

func (c *Coordinator) finish(job *Job, err error) {
	copied, _ := job.Progress()
	if err != nil {
		job.setErr(err)
		c.transition(job, PhaseFailed)
		c.publish(events.ErrorLevel, job, err.Error(), err)
	} else {
		c.transition(job, PhaseCompleted)
		c.progress(job, "transfer complete")
	}
	if c.bus != nil {
		c.bus.PublishComplete(job.ID, err == nil, copied, job.Duration(), err)
	}
}

// progress publishes and logs a step message.
func (c *Coordinator) progress(job *Job, msg string) {
	c.publish(events.InfoLevel, job, msg, nil)
}

func (c *Coordinator) publish(level events.LogLevel, job *Job, msg string, err error) {
	switch level {
	case events.ErrorLevel:
		c.logger.Error().Err(err).Str("job", job.ID).Msg(msg)
	case events.WarnLevel:
		c.logger.Warn().Err(err).Str("job", job.ID).Msg(msg)
	default:
		c.logger.Info().Str("job", job.ID).Msg(msg)
	}
	if c.bus != nil {
		c.bus.PublishLog(level, job.ID, msg, err)
	}
}

// IsFatal reports whether err should stop the whole session rather than
// fail one job.
func IsFatal(err error) bool {
	return config.IsConfigurationError(err)
}
