// Package cmd wires the dmsetup, dump, and check operations into a cobra
// CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forensicsoft/go-fvde-core/internal/config"
	"github.com/forensicsoft/go-fvde-core/internal/logging"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "fvde-core",
	Short:   "Forensic tooling for Apple Core Storage / FileVault Drive Encryption volumes",
	Version: "0.1.0-dev",
	Long: `fvde-core decodes Apple Core Storage / FileVault Drive Encryption (FVDE)
container metadata, reconstructs the logical-to-physical extent mapping of
an unlocked volume, and exposes three operations:

  dmsetup   emit a Linux device-mapper crypt table for an unlocked volume
  dump      extract a sparse or compact forensic image
  check     report allocation state as text, a map, or JSON`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command, printing any error to stderr and
// exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all log output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format for check (text, map, json)")
}

// rootLogger constructs the console logger subcommands share, honoring
// --verbose/--quiet.
func rootLogger() *logging.Logger {
	if quiet {
		return logging.Discard()
	}
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	sink := logging.NewConsoleLogger(os.Stderr, level, !color.NoColor)
	return logging.New(sink).WithName("fvde-core")
}
