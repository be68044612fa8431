package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dvalin-labs/romgraph/internal/storage"
)

func newAddCmd() *cobra.Command {
	var meta metaFlags

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a ROM file to the store",
		Long: `Add a ROM file to the store.

The file's header is split off and kept verbatim; the remaining payload
is fingerprinted. Adding a file whose payload is already stored is a
no-op that reports the existing entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			res, err := m.Add(storage.Input{
				Data:     data,
				Filename: filepath.Base(args[0]),
				Meta:     meta.metadata(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			hash := hashStyle.Render(shortHash(cfg, res.Node.Hash))
			if res.Existed {
				fmt.Fprintf(out, "Already stored as %s (%s)\n", hash, nodeLabel(res.Node))
				return nil
			}
			fmt.Fprintf(out, "Added %s as %s (%s format)\n", nodeLabel(res.Node), hash, res.Node.Format)
			return nil
		},
	}

	meta.register(cmd)
	return cmd
}
