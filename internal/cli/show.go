package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show one ROM's metadata and links",
		Long: `Show one ROM's metadata and links.

The reference may be a full content hash, a unique hash prefix, or a
path to a file whose payload is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			node, neighbors, err := m.Neighbors(args[0])
			if err != nil {
				return err
			}
			componentSize, err := m.ComponentSize(node.Hash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render(nodeLabel(node)))
			printKV(cmd, "Hash", node.Hash)
			printKV(cmd, "Format", node.Format)
			printKV(cmd, "Filename", node.Filename)
			printKV(cmd, "Version", node.Version)
			printKV(cmd, "Released", node.ReleaseDate)
			printKV(cmd, "Source", node.SourceURL)
			printKV(cmd, "Tags", strings.Join(node.Tags, ", "))
			printKV(cmd, "Description", node.Description)
			printKV(cmd, "Added", node.CreatedAt)
			if len(node.RawHeader) > 0 {
				printKV(cmd, "Header", humanize.Bytes(uint64(len(node.RawHeader))))
			}
			printKV(cmd, "Family size", fmt.Sprintf("%d", componentSize))

			if len(neighbors) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Links (%d)", len(neighbors))))
				for _, nb := range neighbors {
					label := nb.Node.Title
					if label == "" {
						label = nb.Node.Filename
					}
					fmt.Fprintf(out, "  -> %s  %s  (%s)\n",
						hashStyle.Render(shortHash(cfg, nb.Node.Hash)),
						label,
						humanize.Bytes(uint64(nb.Edge.DiffSize)))
				}
			}
			return nil
		},
	}
}
