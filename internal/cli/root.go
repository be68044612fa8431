// Package cli implements the command-line interface for romgraph.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dataDir string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "romgraph",
	Short: "romgraph - Content-addressed ROM storage built on a graph of binary diffs",
	Long: `romgraph stores one reference copy per family of related ROM images plus
binary diffs connecting the variants, and rebuilds any variant on demand
by walking the diff graph. Files are identified by a fingerprint of their
payload, so renamed or re-headered copies of the same image are detected.

Commands:
  add        Add a ROM file to the store
  link       Connect two ROM files with diffs in both directions
  build      Reconstruct a stored ROM from a related source file
  list       List stored ROMs and their links
  show       Show one ROM's metadata and links
  status     Show store statistics
  export     Package ROMs and diffs into a directory
  import     Merge an exported package into the store`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .romgraph.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: .romgraph)")

	// Bind flags to viper
	bindFlag := func(key, flag string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}
	bindFlag("config_file", "config")

	// Add subcommands
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newUnlinkCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newHashCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}
