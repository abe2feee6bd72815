package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <remote-path>",
		Short: "Delete a remote file or folder",
		Long: `Delete a remote file, or every object below a remote folder.

A folder is named with a trailing slash ("runs/7/"); without it the path is
treated as a single object. The bucket root cannot be deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			target, err := s.remotePath(args[0])
			if err != nil {
				return err
			}
			if target.IsRoot() {
				return fmt.Errorf("refusing to delete the bucket root")
			}

			client, err := s.storageClient(ctx)
			if err != nil {
				return err
			}
			key := target.RelativeKey()
			exists, err := client.Exists(ctx, key)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("%s: no such remote path", key)
			}

			if !yes {
				if !stdinIsTerminal() {
					return ErrNotInteractive
				}
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %s?", target.FullURI(s.cfg.Bucket)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}

			var deleted int
			if target.IsFile() {
				deleted, err = client.DeleteObjects(ctx, []string{key})
			} else {
				deleted, err = client.DeletePrefix(ctx, key)
			}
			if err != nil {
				return err
			}
			s.logger.Info().Str("path", target.FullURI(s.cfg.Bucket)).Int("objects", deleted).Msg("deleted")

			// Show the parent as it looks now.
			engine, err := s.treeEngine(ctx)
			if err != nil {
				return err
			}
			parent, err := openFolder(ctx, engine, target.Parent().String())
			if err != nil {
				// The parent may have been an implicit folder that is gone now.
				s.logger.Debug().Err(err).Msg("parent not listed")
				return nil
			}
			if err := engine.Refresh(ctx, parent); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), engine.Format(parent))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
