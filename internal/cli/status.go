package cli

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			stats, err := m.Stats()
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Render("ROM Store Status"))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Data dir:    %s\n", cfg.Data.Dir)
			fmt.Fprintf(out, "  ROMs:        %d\n", stats.Nodes)
			fmt.Fprintf(out, "  Links:       %d\n", stats.Edges)
			fmt.Fprintf(out, "  Diff bytes:  %s\n", humanize.Bytes(uint64(stats.TotalDiffSize)))

			if len(stats.ByFormat) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  ROMs by format:")
				for _, format := range sortedFormats(stats.ByFormat) {
					fmt.Fprintf(out, "    %-12s %d\n", format, stats.ByFormat[format])
				}
			}

			if last, ok := m.LastAdded(); ok {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  Last added:  %s (%s)\n",
					nodeLabel(last), hashStyle.Render(shortHash(cfg, last.Hash)))
			}
			return nil
		},
	}
}

func sortedFormats(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
