package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build <source-file> <target-ref>",
		Short: "Reconstruct a stored ROM from a related source file",
		Long: `Reconstruct a stored ROM from a related source file.

The source file is fingerprinted and must match a stored entry. The
shortest chain of diffs from it to the target is applied in sequence,
the target's original header is reattached, and the result is verified
against the target's stored fingerprint before anything is written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := openManager(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			sourceData, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}

			built, target, err := m.Build(sourceData, args[1])
			if err != nil {
				return err
			}

			dest := output
			if dest == "" {
				dest = target.Filename
			}
			if dest == "" {
				dest = shortHash(cfg, target.Hash) + ".rom"
			}
			if err := os.WriteFile(dest, built, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Built %s (%s, fingerprint %s verified)\n",
				dest, humanize.Bytes(uint64(len(built))), hashStyle.Render(shortHash(cfg, target.Hash)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: the target's stored filename)")
	return cmd
}
