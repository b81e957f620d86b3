package cmd

import (
	"github.com/spf13/cobra"
)

// version is stamped by the release build.
var version = "0.1.0"

var versionCmd = newVersionCmd()

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mewt version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("mewt", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
