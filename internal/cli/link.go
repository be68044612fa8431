package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvalin-labs/romgraph/internal/storage"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <file-a> <file-b>",
		Short: "Connect two ROM files with diffs in both directions",
		Long: `Connect two ROM files with binary diffs in both directions.

Either file is added to the store first if its payload is not yet known.
Two diff artifacts are written, one per direction, so reconstruction
works either way.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			dataA, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			dataB, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}

			res, err := m.Link(
				storage.Input{Data: dataA, Filename: filepath.Base(args[0])},
				storage.Input{Data: dataB, Filename: filepath.Base(args[1])},
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Linked %s <-> %s\n",
				hashStyle.Render(shortHash(cfg, res.Source.Node.Hash)),
				hashStyle.Render(shortHash(cfg, res.Target.Node.Hash)))
			fmt.Fprintf(out, "  forward diff: %s (%s)\n", res.Forward.DiffPath, humanize.Bytes(uint64(res.Forward.DiffSize)))
			fmt.Fprintf(out, "  reverse diff: %s (%s)\n", res.Reverse.DiffPath, humanize.Bytes(uint64(res.Reverse.DiffSize)))
			return nil
		},
	}
	return cmd
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <ref-a> <ref-b>",
		Short: "Remove the links between two stored ROMs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Unlink(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Unlinked; both diff artifacts removed.")
			return nil
		},
	}
}
