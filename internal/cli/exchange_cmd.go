package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvalin-labs/romgraph/internal/exchange"
)

func newExportCmd() *cobra.Command {
	var component string

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Package ROMs and diffs into a directory",
		Long: `Package ROMs and diffs into a directory.

The directory receives an index.json manifest plus a diffs folder with
the artifact files. Use --component to export only the family connected
to one ROM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			man, err := exchange.Export(m, args[0], component)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d ROMs and %d diffs to %s\n",
				len(man.Files), len(man.Diffs), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "export only the family containing this ROM (hash, prefix, or file)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Merge an exported package into the store",
		Long: `Merge an exported package into the store.

The package is analyzed first: new ROMs are always inserted, ROMs whose
metadata conflicts with a local entry keep the local values unless
--overwrite is set, and every diff is checksum-verified before it is
accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			plan, err := exchange.Analyze(m, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(plan.Conflicts) > 0 {
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Metadata conflicts (%d)", len(plan.Conflicts))))
				for _, c := range plan.Conflicts {
					fmt.Fprintf(out, "  %s\n", hashStyle.Render(shortHash(cfg, c.Hash)))
					for _, f := range c.Fields {
						fmt.Fprintf(out, "    %s: %q -> %q\n", f.Name, f.Existing, f.Incoming)
					}
				}
				if overwrite {
					fmt.Fprintln(out, "  Overwriting with packaged values.")
				} else {
					fmt.Fprintln(out, "  Keeping local values (use --overwrite to replace).")
				}
				fmt.Fprintln(out)
			}

			res, err := exchange.Execute(m, plan, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d ROMs (%d skipped, %d overwritten), %d diffs (%d skipped)\n",
				res.NodesAdded, res.NodesSkipped, res.NodesOverwritten, res.EdgesAdded, res.EdgesSkipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace local metadata with packaged values on conflict")
	return cmd
}
