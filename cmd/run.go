package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"mewt.dev/pkg/mewt/internal/campaign"
)

var (
	runMutationsFlag     string
	runComprehensiveFlag bool
)

var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Discover targets, synthesize mutants, and run the campaign",
		Long: `Run a full mutation testing campaign: discover target files, generate
their mutants, establish a test baseline, then test every mutant that has
no outcome yet. Interrupt with ctrl-c at any time; a second ctrl-c forces
immediate restoration and exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := resolveCampaignConfig(runMutationsFlag, runComprehensiveFlag)
			runner := campaign.NewRunner(st, registry, cfg, nil)

			if err := runner.Recover(); err != nil {
				return err
			}

			targets, err := campaign.Discover(st, registry, resolveIncludeList(args), cfg.Ignore)
			if err != nil {
				return err
			}

			if len(targets) == 0 {
				return fmt.Errorf("no targets found")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			installInterruptHandler(cancel, runner)

			if err := runner.Baseline(ctx); err != nil {
				return err
			}

			count, err := runner.Synthesize(ctx, targets)
			if err != nil {
				return err
			}

			cmd.Printf("Synthesized %d new mutants across %d targets\n", count, len(targets))

			if err := runner.Execute(ctx, targets); err != nil {
				return err
			}

			summary, err := st.GetSummary()
			if err != nil {
				return err
			}

			cmd.Printf("Campaign complete: %d tested, %d caught, %d uncaught, %d skipped\n",
				summary.Tested, summary.Caught, summary.Uncaught, summary.Skipped)

			return nil
		},
	}

	cmd.Flags().StringVar(&runMutationsFlag, "mutations", "",
		"comma-separated slug whitelist (replaces config run.mutations)")
	cmd.Flags().BoolVar(&runComprehensiveFlag, "comprehensive", false,
		"test every mutant; disable the per-line skip planner")

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// installInterruptHandler wires the two-stage SIGINT protocol: the first
// interrupt cancels the campaign after the in-flight mutant settles, the
// second restores files immediately and exits.
func installInterruptHandler(cancel context.CancelFunc, runner *campaign.Runner) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)

	go func() {
		<-sigCh
		slog.Warn("interrupt received, finishing current mutant")
		cancel()

		<-sigCh
		slog.Warn("second interrupt, restoring targets and exiting")
		runner.EmergencyRestore()
		os.Exit(3)
	}()
}
