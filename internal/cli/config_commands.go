package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/constants"
	"github.com/s5bridge/s5bridge/internal/copytool"
	"github.com/s5bridge/s5bridge/internal/storage"
)

// defaultConfigFile is the dotenv file read from the working directory.
const defaultConfigFile = ".env"

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage s5bridge configuration",
		Long:  `Create, inspect and test the s5bridge configuration.`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigTestCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

// configFilePath is the file 'config init' writes and 'config path' reports.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return defaultConfigFile
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Prompt for every setting and write them to a dotenv file.

The file is --config when given, otherwise .env in the working directory.
Press Enter to keep the value shown in brackets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFilePath()
			existing := ""
			if _, err := os.Stat(path); err == nil {
				if !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				existing = path
			}

			// The file is about to be written, so it may not exist yet.
			cfg, err := config.Load(existing, cmd.Flags())
			if err != nil {
				return err
			}

			values, err := promptValues(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Values())
			if err != nil {
				return err
			}
			if err := config.Save(path, values); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration saved to %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Test it with: s5bridge config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")
	return cmd
}

// promptValues asks for each key in turn. An empty answer keeps the current
// value; secrets are never echoed back.
func promptValues(in io.Reader, out io.Writer, current map[string]string) (map[string]string, error) {
	reader := bufio.NewReader(in)
	values := make(map[string]string, len(current))

	for _, key := range config.Keys() {
		shown := current[key]
		if key == config.KeySecretAccessKey && shown != "" {
			shown = "<set>"
		}
		fmt.Fprintf(out, "%s [%s]: ", key, shown)

		input, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			input = current[key]
		}
		values[key] = input

		if err == io.EOF {
			fmt.Fprintln(out)
			for _, rest := range config.Keys() {
				if _, ok := values[rest]; !ok {
					values[rest] = current[rest]
				}
			}
			break
		}
	}
	return values, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the merged configuration.

Priority: flags > environment > --config file > .env > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			for _, kv := range cfg.Redacted() {
				value := kv[1]
				if value == "" {
					value = "<not set>"
				}
				fmt.Fprintf(out, "  %-22s %s\n", kv[0]+":", value)
			}
			fmt.Fprintln(out)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "Status: %v\n", err)
			} else {
				fmt.Fprintln(out, "Status: ✓ complete")
			}
			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the bucket connection and s5cmd",
		Long: `Validate the configuration, locate s5cmd and check that the bucket is
reachable with the configured credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			binary, err := copytool.NewExecutor(cfg, logger).Locate()
			if err != nil {
				fmt.Fprintln(out, "✗ s5cmd not found")
				return err
			}
			fmt.Fprintf(out, "✓ s5cmd: %s\n", binary)

			ctx, cancel := context.WithTimeout(GetContext(), constants.ConnectivityCheckTimeout)
			defer cancel()

			client, err := storage.NewClient(ctx, cfg, logger)
			if err != nil {
				return err
			}
			exists, err := client.BucketExists(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				return fmt.Errorf("connection test failed: %w", err)
			}
			if !exists {
				fmt.Fprintf(out, "✗ Bucket %s not found at %s\n", cfg.Bucket, cfg.Endpoint)
				return fmt.Errorf("specified bucket not found: %s", cfg.Bucket)
			}

			logger.Info().Str("bucket", cfg.Bucket).Msg("Connection test successful")
			fmt.Fprintf(out, "✓ Bucket %s reachable at %s\n", cfg.Bucket, cfg.Endpoint)
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration and log file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configFilePath()

			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out, "Create one with: s5bridge config init")
			}
			fmt.Fprintf(out, "Log directory:      %s\n", config.LogDirectory())
			fmt.Fprintf(out, "Default log file:   %s\n", config.DefaultLogFile())
			return nil
		},
	}

	return cmd
}
