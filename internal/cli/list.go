package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvalin-labs/romgraph/internal/store"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored ROMs and their links",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			nodes, err := m.Nodes()
			if err != nil {
				return err
			}
			edges, err := m.Edges()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(nodes) == 0 {
				fmt.Fprintln(out, "Store is empty.")
				return nil
			}

			byID := make(map[int64]*store.Node, len(nodes))
			for i := range nodes {
				byID[nodes[i].ID] = &nodes[i]
			}

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("ROMs (%d)", len(nodes))))
			for i := range nodes {
				n := &nodes[i]
				line := fmt.Sprintf("  %s  %s", hashStyle.Render(shortHash(cfg, n.Hash)), nodeLabel(n))
				if n.Version != "" {
					line += "  v" + n.Version
				}
				line += "  [" + n.Format + "]"
				fmt.Fprintln(out, line)
			}

			if len(edges) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Links (%d)", len(edges))))
				for _, e := range edges {
					src, okSrc := byID[e.SourceID]
					dst, okDst := byID[e.TargetID]
					if !okSrc || !okDst {
						continue
					}
					fmt.Fprintf(out, "  %s -> %s  (%s)\n",
						hashStyle.Render(shortHash(cfg, src.Hash)),
						hashStyle.Render(shortHash(cfg, dst.Hash)),
						humanize.Bytes(uint64(e.DiffSize)))
				}
			}
			return nil
		},
	}
}
