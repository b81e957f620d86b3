package cmd

import (
	"github.com/spf13/cobra"
)

var cleanCmd = newCleanCmd()

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete superseded target rows and their stale outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.Clean()
			if err != nil {
				return err
			}

			cmd.Printf("Removed %d superseded target(s)\n", removed)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
