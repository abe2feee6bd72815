package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/s5bridge/s5bridge/internal/capacity"
	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/logging"
	"github.com/s5bridge/s5bridge/internal/ratelimit"
	"github.com/s5bridge/s5bridge/internal/remotepath"
	"github.com/s5bridge/s5bridge/internal/storage"
	"github.com/s5bridge/s5bridge/internal/tree"
)

// logFileDefault selects config.DefaultLogFile for LOG_FILE.
const logFileDefault = "default"

// session is the per-invocation wiring: validated configuration, the logger
// and constructors for the components. Each component gets its own storage
// client; they share only the request limiter.
type session struct {
	cfg     *config.Config
	logger  *logging.Logger
	limiter *ratelimit.RateLimiter
}

func sortedFlagNames() []string {
	names := make([]string, 0, len(config.FlagKeys))
	for name := range config.FlagKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadConfig reads the configuration for cmd without validating it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cfgFile, cmd.Flags())
}

// newSession loads and validates the configuration and opens the log file.
// An incomplete configuration is fatal and terminates the process.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := GetLogger()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("cannot start")
		return nil, err
	}

	if cfg.LogFile != "" {
		path := cfg.LogFile
		if path == logFileDefault {
			path = config.DefaultLogFile()
		}
		if err := config.EnsureLogDirectory(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("log file disabled")
		} else {
			_ = log.Close()
			log = logging.NewLogger(os.Stdout, path)
			logger = log
		}
	}
	log.NewSession()
	log.Debug().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("configuration loaded")

	return &session{
		cfg:     cfg,
		logger:  log,
		limiter: ratelimit.ForRate(cfg.RequestRate, log),
	}, nil
}

// storageClient builds a new client. All clients of a session share one
// request limiter.
func (s *session) storageClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	return client.WithLimiter(s.limiter), nil
}

func (s *session) capacityModel(ctx context.Context) (*capacity.Model, error) {
	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	return capacity.NewModel(client, s.cfg.BucketSize, s.logger)
}

func (s *session) treeEngine(ctx context.Context) (*tree.Engine, error) {
	client, err := s.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	return tree.NewEngine(client, s.cfg.EffectiveListingWorkers(), s.logger), nil
}

// remotePath parses a command-line remote location. Full URIs must name the
// configured bucket.
func (s *session) remotePath(arg string) (remotepath.Path, error) {
	bucket, p, err := remotepath.Parse(arg)
	if err != nil {
		return remotepath.Path{}, err
	}
	if bucket != "" && bucket != s.cfg.Bucket {
		return remotepath.Path{}, fmt.Errorf("%s is outside the configured bucket %s", arg, s.cfg.Bucket)
	}
	return p, nil
}

// openFolder loads the tree down to key and returns its node.
func openFolder(ctx context.Context, engine *tree.Engine, key string) (*tree.Node, error) {
	node, err := engine.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	for _, seg := range remotepath.New(key).Segments() {
		if node.State() != tree.Loaded {
			if err := engine.Expand(ctx, node); err != nil {
				return nil, err
			}
		}
		var next *tree.Node
		for _, child := range node.Children() {
			if child.Path().Name() == seg {
				next = child
				break
			}
		}
		if next == nil {
			if err := engine.LastErr(); err != nil {
				return nil, fmt.Errorf("%s: cannot list remote path: %w", key, err)
			}
			return nil, fmt.Errorf("%s: no such remote path", key)
		}
		node = next
	}
	return node, nil
}
