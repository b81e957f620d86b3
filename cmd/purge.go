package cmd

import (
	"github.com/spf13/cobra"

	"mewt.dev/pkg/mewt/internal/store"
)

var purgeTargetFlag string

var purgeCmd = newPurgeCmd()

func newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete targets, mutants, and outcomes from the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			targets, err := st.AllTargets()
			if err != nil {
				return err
			}

			removed := 0

			for _, t := range targets {
				if purgeTargetFlag != "" && !matchesPurgeTarget(st, t.ID, purgeTargetFlag) {
					continue
				}

				if err := st.RemoveTarget(t.ID); err != nil {
					return err
				}

				removed++
			}

			cmd.Printf("Purged %d target(s)\n", removed)

			return nil
		},
	}

	cmd.Flags().StringVar(&purgeTargetFlag, "target", "", "purge only targets matching this path")

	return cmd
}

func matchesPurgeTarget(st *store.Store, id int64, pattern string) bool {
	t, err := st.GetTarget(id)
	if err != nil {
		return false
	}

	return string(t.Path) == pattern || t.Display() == pattern
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
