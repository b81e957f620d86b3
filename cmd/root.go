// Package cmd provides the root command and CLI setup for mewt.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mewt.dev/pkg/mewt/internal/campaign"
	"mewt.dev/pkg/mewt/internal/language"
	"mewt.dev/pkg/mewt/internal/store"
)

// registry holds every bundled language engine; grammar handles inside it
// initialize lazily and are shared read-only.
var registry = language.DefaultRegistry()

var (
	cwdFlag           string
	dbFlag            string
	logLevelFlag      string
	logColorFlag      string
	ignoreTargetsFlag []string
)

const rootLongDescription = `Mewt is a mutation testing campaign engine. It synthesizes small
semantics-altering edits (mutants) for your source files, then runs your
test command against each one, classifying which edits the suite catches.

Campaign state is durable: interrupt a run at any point and resume it
later; target files are always restored to their original contents.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "mewt",
		Short:         "Mutation testing campaign engine",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if cwdFlag != "" {
				if err := os.Chdir(cwdFlag); err != nil {
					return fmt.Errorf("chdir %s: %w", cwdFlag, err)
				}
			}

			initConfig()
			configureLogger()

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func init() {
	configureRootFlags(rootCmd)
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cwdFlag, "cwd", "", "run as if started in this directory")

	cmd.PersistentFlags().StringVar(&dbFlag, dbKey, "", "location of the campaign database")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(dbKey), dbKey)

	cmd.PersistentFlags().StringVar(&logLevelFlag, logLevelKey, "", "logging level: debug, info, warn, error")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logLevelKey), logLevelKey)

	cmd.PersistentFlags().StringVar(&logColorFlag, logColorKey, "", `color control: "on", "off", or empty for auto`)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logColorKey), logColorKey)

	cmd.PersistentFlags().String(testCmdKey, "", "test command run against each mutant")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(testCmdKey), testCmdKey)

	cmd.PersistentFlags().Int(testTimeoutKey, 0, "per-test timeout in seconds; 0 derives it from the baseline")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(testTimeoutKey), testTimeoutKey)

	cmd.PersistentFlags().StringSliceVar(&ignoreTargetsFlag, "ignore-targets", nil,
		"path substrings to exclude from discovery (adds to config)")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config values feed
// the flag and flags override the file.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute runs the root command and maps sentinel errors to exit codes:
// 1 usage, 2 broken baseline, 3 interrupted.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err)

	switch {
	case errors.Is(err, campaign.ErrBaselineFailed):
		os.Exit(2)
	case errors.Is(err, campaign.ErrInterrupted):
		os.Exit(3)
	default:
		os.Exit(1)
	}
}

func openStore() (*store.Store, error) {
	return store.Open(viper.GetString(dbKey))
}
