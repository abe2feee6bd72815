package cli

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/s5bridge/s5bridge/internal/capacity"
	"github.com/s5bridge/s5bridge/internal/pathutil"
)

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [remote-folder]",
		Short: "List the entries of a remote folder",
		Long: `List the direct children of a remote folder, folders first.

Each line shows the kind tag (F for folders, f for files), the display name
and the bucket-relative key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			key, err := s.folderKey(args)
			if err != nil {
				return err
			}
			engine, err := s.treeEngine(ctx)
			if err != nil {
				return err
			}
			node, err := openFolder(ctx, engine, key)
			if err != nil {
				return err
			}
			if !node.IsFolder() {
				return fmt.Errorf("%s is not a folder", key)
			}
			if err := engine.Expand(ctx, node); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, rec := range node.ChildRecords() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Kind, rec.Name, rec.Key)
			}
			return w.Flush()
		},
	}
	return cmd
}

// newTreeCmd creates the 'tree' command.
func newTreeCmd() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree [remote-folder]",
		Short: "Print the remote folder hierarchy",
		Long: `Print the folder hierarchy below a remote folder, expanding folders
level by level. Use --depth 0 to expand everything.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			key, err := s.folderKey(args)
			if err != nil {
				return err
			}
			engine, err := s.treeEngine(ctx)
			if err != nil {
				return err
			}
			node, err := openFolder(ctx, engine, key)
			if err != nil {
				return err
			}
			if depth <= 0 {
				depth = math.MaxInt32
			}
			if err := engine.ExpandDepth(ctx, node, depth); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), engine.Format(node))
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 2, "Levels to expand (0 = unlimited)")
	return cmd
}

// newDuCmd creates the 'du' command.
func newDuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "du [remote-path]",
		Short: "Show remote usage and bucket free space",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			ctx := GetContext()

			prefix := ""
			if len(args) == 1 {
				p, err := s.remotePath(args[0])
				if err != nil {
					return err
				}
				prefix = p.RelativeKey()
			}

			model, err := s.capacityModel(ctx)
			if err != nil {
				return err
			}
			usage := model.RemoteDataSize(ctx, prefix)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Objects:   %d\n", usage.Files)
			fmt.Fprintf(out, "Size:      %s\n", capacity.FormatSize(usage.Bytes))
			fmt.Fprintf(out, "Capacity:  %s\n", capacity.FormatSize(model.Capacity()))
			if prefix == "" {
				fmt.Fprintf(out, "Free:      %s\n", capacity.FormatSize(usage.Free))
			}
			return nil
		},
	}
	return cmd
}

// newDfCmd creates the 'df' command. It needs no bucket settings.
func newDfCmd() *cobra.Command {
	var withUsage bool

	cmd := &cobra.Command{
		Use:   "df [local-path]",
		Short: "Show free space on the filesystem holding a local path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			abs, err := pathutil.ResolveAbsolutePath(target)
			if err != nil {
				return err
			}

			free, err := capacity.LocalFreeSpace(abs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s free\n", abs, capacity.FormatSize(free))

			if withUsage {
				files, size, err := capacity.LocalDataSize(abs)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d files, %s\n", abs, files, capacity.FormatSize(size))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withUsage, "usage", false, "Also count the files and bytes under the path")
	return cmd
}

// folderKey returns the bucket-relative key named by the optional argument.
func (s *session) folderKey(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	p, err := s.remotePath(args[0])
	if err != nil {
		return "", err
	}
	return p.String(), nil
}
