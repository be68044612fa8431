package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <ref>",
		Short: "Remove a stored ROM and all its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			node, err := m.Remove(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s) and its links.\n",
				nodeLabel(node), hashStyle.Render(shortHash(cfg, node.Hash)))
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	var meta metaFlags

	cmd := &cobra.Command{
		Use:   "edit <ref>",
		Short: "Edit a stored ROM's metadata",
		Long: `Edit a stored ROM's metadata.

Only descriptive fields can change; the content hash, format, and
captured header are fixed at ingest time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			node, err := m.EditMetadata(args[0], meta.metadata())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n",
				nodeLabel(node), hashStyle.Render(shortHash(cfg, node.Hash)))
			return nil
		},
	}

	meta.register(cmd)
	return cmd
}
