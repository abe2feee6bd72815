// s5bridge - move data between local disk and an S3-compatible bucket
package main

import (
	"os"

	"github.com/s5bridge/s5bridge/internal/cli"
)

// Version information, set by ldflags during build.
var (
	Version   = "v0.1.0"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
