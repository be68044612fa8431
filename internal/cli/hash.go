package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dvalin-labs/romgraph/internal/rom"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Fingerprint a ROM file without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rom.IdentifyFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", hashStyle.Render(id.Hash), id.Filename)
			printKV(cmd, "Format", id.Format)
			printKV(cmd, "Header", humanize.Bytes(uint64(len(id.Header))))
			printKV(cmd, "Payload", humanize.Bytes(uint64(len(id.Payload))))
			if info, ok := rom.ParseNESHeader(id.Header); ok {
				printKV(cmd, "PRG ROM", humanize.Bytes(uint64(info.PRGSize)))
				printKV(cmd, "CHR ROM", humanize.Bytes(uint64(info.CHRSize)))
				if info.HasTrainer {
					printKV(cmd, "Trainer", "present")
				}
			}
			return nil
		},
	}
}
