// Package cmd wires the flux transfer engine to a command line front-end.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version is the current version, set at build time.
	Version = "dev"

	flagPassword string
	flagVerbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flux",
	Short: "Peer-to-peer encrypted file transfer",
	Long: `Peer-to-peer encrypted file transfer.

A sender offers a file and receives a 6-digit transfer code; sharing that
code out-of-band lets exactly one receiver fetch the file over TCP,
compressed and encrypted with a key derived from a shared password.

    Version: ` + Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.Debug("debug logging enabled")
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", "", "shared transfer password")
}
