// Package cli provides the command-line interface for s5bridge.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s5bridge/s5bridge/internal/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	debug   bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

// flagUsage documents the configuration flags registered on the root
// command. Every entry must have a matching key in config.FlagKeys.
var flagUsage = map[string]string{
	"bucket":          "Bucket holding all remote paths (BUCKETNAME)",
	"bucket-size":     "Bucket capacity, e.g. \"500 TB\" (BUCKETSIZE)",
	"endpoint":        "S3-compatible endpoint URL (ENDPOINT)",
	"profile":         "Shared credentials profile (AWS_PROFILE)",
	"workers":         "s5cmd worker count (AWS_WORKERS)",
	"region":          "Signing region (AWS_REGION)",
	"s5cmd":           "Path to the s5cmd binary (S5CMD_PATH)",
	"listing-workers": "Goroutines per tree expansion (LISTING_WORKERS)",
	"log-file":        "Rotating log file, or \"default\" (LOG_FILE)",
	"request-rate":    "Maximum object store requests per second (REQUEST_RATE)",
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "s5bridge",
		Short: "Move data between local disk and an S3-compatible bucket through s5cmd",
		Long: `s5bridge ` + Version + ` - Built: ` + BuildTime + `

Uploads and downloads run one at a time through s5cmd after checking that
the bucket is reachable and the destination has room for the data.

Configuration is read from flags, the environment, an optional --config
file and a .env file in the working directory, in that order.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Console logger until the configuration names a log file.
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(-1) // Debug level (zerolog.DebugLevel)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file (dotenv format)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")
	for _, name := range sortedFlagNames() {
		rootCmd.PersistentFlags().String(name, "", flagUsage[name])
	}

	rootCmd.Version = Version + " (" + BuildTime + ")"
	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C presses are absorbed while s5cmd shuts down.
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, cancelling transfers...\n", sig)
				fmt.Fprintf(os.Stderr, "   Please wait for s5cmd to stop.\n\n")
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newDuCmd())
	rootCmd.AddCommand(newDfCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
