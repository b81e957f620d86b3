package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mewt.dev/pkg/mewt/internal/campaign"
)

var mutateCmd = newMutateCmd()

func newMutateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mutate <paths...>",
		Short: "Discover targets and synthesize mutants without running tests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := resolveCampaignConfig("", false)
			runner := campaign.NewRunner(st, registry, cfg, nil)

			if err := runner.Recover(); err != nil {
				return err
			}

			targets, err := campaign.Discover(st, registry, args, cfg.Ignore)
			if err != nil {
				return err
			}

			if len(targets) == 0 {
				return fmt.Errorf("no targets found")
			}

			count, err := runner.Synthesize(cmd.Context(), targets)
			if err != nil {
				return err
			}

			cmd.Printf("Synthesized %d new mutants for %d target(s)\n", count, len(targets))

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(mutateCmd)
}
