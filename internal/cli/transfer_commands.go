package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/copytool"
	"github.com/s5bridge/s5bridge/internal/events"
	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/pathutil"
	"github.com/s5bridge/s5bridge/internal/progress"
	"github.com/s5bridge/s5bridge/internal/remotepath"
	"github.com/s5bridge/s5bridge/internal/transfer"
	"github.com/s5bridge/s5bridge/internal/tree"
	"github.com/s5bridge/s5bridge/internal/validation"
)

// ErrFileDestination rejects uploads aimed at an object instead of a folder.
var ErrFileDestination = errors.New("can only upload to one folder")

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var (
		target       string
		newFolder    string
		deleteSource bool
	)

	cmd := &cobra.Command{
		Use:     "upload <local-path>... [--to remote-folder]",
		Aliases: []string{"up"},
		Short:   "Upload local files or folders into a remote folder",
		Long: `Upload one or more local files or folders into a single remote folder.

Each path becomes its own transfer; transfers run one after another. A
folder keeps its name on the remote side.

Examples:
  # Upload a results folder into the bucket root
  s5bridge upload ./results

  # Upload two files into runs/7, creating a new sub-folder first
  s5bridge upload a.bin b.bin --to runs/7 --new-folder inputs

  # Move a folder (delete it locally once the copy succeeded)
  s5bridge upload ./scratch --to s3://archive/scratch/ --delete-source`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			dest, err := s.uploadTarget(target, newFolder)
			if err != nil {
				return err
			}
			sources, err := pathutil.ResolveSources(args)
			if err != nil {
				return err
			}

			jobs := make([]*transfer.Job, 0, len(sources))
			for _, src := range sources {
				jobs = append(jobs, transfer.NewJob(transfer.Upload, src, dest, deleteSource))
			}
			return s.runJobs(GetContext(), cmd.OutOrStdout(), jobs)
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "Remote destination folder (key or s3:// URI, default: bucket root)")
	cmd.Flags().StringVar(&newFolder, "new-folder", "", "Create this sub-folder under the destination and upload into it")
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Delete local sources after a successful upload")

	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var (
		outDir       string
		deleteSource bool
	)

	cmd := &cobra.Command{
		Use:     "download <remote-path>... [--to local-folder]",
		Aliases: []string{"down"},
		Short:   "Download remote files or folders into a local folder",
		Long: `Download one or more remote files or folders into a local folder.

Remote paths are keys relative to the bucket ("runs/7/") or full URIs
("s3://archive/runs/7/"). The local folder is created if needed.

Examples:
  s5bridge download runs/7/ --to ./restore
  s5bridge download runs/7/out.log runs/8/out.log
  s5bridge download runs/7/ --to /data --delete-source`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			local, err := pathutil.ResolveAbsolutePath(outDir)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", outDir, err)
			}

			jobs := make([]*transfer.Job, 0, len(args))
			for _, arg := range args {
				remote, err := s.remotePath(arg)
				if err != nil {
					return err
				}
				jobs = append(jobs, transfer.NewJob(transfer.Download, local, remote, deleteSource))
			}
			return s.runJobs(GetContext(), cmd.OutOrStdout(), jobs)
		},
	}

	cmd.Flags().StringVarP(&outDir, "to", "o", ".", "Local destination folder")
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Delete remote sources after a successful download")

	return cmd
}

// uploadTarget resolves the remote folder an upload lands in.
func (s *session) uploadTarget(target, newFolder string) (remotepath.Path, error) {
	dest, err := s.remotePath(target)
	if err != nil {
		return remotepath.Path{}, err
	}
	if dest.IsFile() {
		return remotepath.Path{}, fmt.Errorf("%w: %s is a file", ErrFileDestination, target)
	}
	if newFolder != "" {
		if err := validation.ValidateFolderName(newFolder); err != nil {
			return remotepath.Path{}, err
		}
		dest = dest.Join(newFolder)
	}
	return remotepath.NewWithKind(remotepath.KindFolder, dest.String()), nil
}

// runJobs runs jobs through one queue and prints a summary line per job.
// It returns an error when any job failed.
func (s *session) runJobs(ctx context.Context, out io.Writer, jobs []*transfer.Job) error {
	bucket, err := s.storageClient(ctx)
	if err != nil {
		return err
	}
	sizer, err := s.capacityModel(ctx)
	if err != nil {
		return err
	}
	deleter, err := s.storageClient(ctx)
	if err != nil {
		return err
	}
	engine, err := s.treeEngine(ctx)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer bus.Close()
	follower := progress.Follow(bus, progress.New(os.Stderr))

	coordinator := transfer.NewCoordinator(transfer.Dependencies{
		Bucket:  bucket,
		Sizer:   sizer,
		Copier:  copytool.NewExecutor(s.cfg, s.logger),
		Deleter: deleter,
	}, bus, s.logger)

	if _, err := engine.Initialize(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("remote tree unavailable, skipping refresh")
		engine = nil
	}

	queue := transfer.NewQueue(coordinator, s.logger)
	queue.OnJobDone(func(job *transfer.Job, err error) {
		if engine != nil {
			refreshAfter(ctx, engine, job, s.logger)
		}
	})
	queue.Start(ctx)
	for _, job := range jobs {
		if err := queue.Enqueue(job); err != nil {
			return err
		}
	}
	queue.Close()
	queue.Wait()
	follower.Stop()

	failed := 0
	for _, job := range jobs {
		fmt.Fprintln(out, summarize(job))
		if job.Status() != transfer.StatusSucceeded {
			failed++
			if transfer.IsFatal(job.Err()) {
				s.logger.Fatal().Err(job.Err()).Msg("cannot continue")
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, len(jobs))
	}
	return nil
}

// refreshAfter reloads the closest loaded folder whose content job changed.
// Downloads that keep their source change nothing remotely.
func refreshAfter(ctx context.Context, engine *tree.Engine, job *transfer.Job, logger *logging.Logger) {
	var key string
	switch {
	case job.Direction == transfer.Upload:
		key = job.Remote.RelativeKey()
	case job.DeleteSource:
		key = job.Remote.Parent().RelativeKey()
	default:
		return
	}

	node := engine.FindLoadedAncestor(key)
	if node == nil {
		return
	}
	if err := engine.Refresh(ctx, node); err != nil {
		logger.Warn().Err(err).Str("folder", node.Path().RelativeKey()).Msg("refresh failed")
		return
	}
	logger.Debug().Str("folder", node.Path().RelativeKey()).Int("entries", len(node.Children())).Msg("refreshed")
}

func summarize(job *transfer.Job) string {
	copied, expected := job.Progress()
	line := fmt.Sprintf("%-9s %s", job.Status(), job)
	if expected >= 0 {
		line += fmt.Sprintf(" (%d/%d objects, %s)", copied, expected, job.Duration().Round(time.Millisecond))
	}
	if err := job.Err(); err != nil {
		line += ": " + err.Error()
	}
	return line
}
