package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mewt.dev/pkg/mewt/internal/language"
	"mewt.dev/pkg/mewt/internal/report"
	"mewt.dev/pkg/mewt/internal/store"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print catalogs, targets, mutants, and configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var (
	printMutationsLanguageFlag string
	printMutationsFormatFlag   string
)

func newPrintMutationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutations",
		Short: "List the mutation catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engines := registry.Engines()

			if printMutationsLanguageFlag != "" {
				engine := registry.ByName(printMutationsLanguageFlag)
				if engine == nil {
					return fmt.Errorf("unknown language: %q", printMutationsLanguageFlag)
				}

				engines = []language.Engine{engine}
			}

			switch printMutationsFormatFlag {
			case report.FormatJSON:
				catalog := make(map[string]any, len(engines))
				for _, engine := range engines {
					catalog[engine.Name()] = engine.Mutations()
				}

				out, err := json.MarshalIndent(catalog, "", "  ")
				if err != nil {
					return err
				}

				cmd.Println(string(out))
			case report.FormatTable:
				for _, engine := range engines {
					cmd.Print(report.MutationsTable(engine.Name(), engine.Mutations()))
				}
			default:
				return fmt.Errorf("unknown format: %q", printMutationsFormatFlag)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&printMutationsLanguageFlag, "language", "", "limit to one language")
	cmd.Flags().StringVar(&printMutationsFormatFlag, "format", report.FormatTable, "output format: table or json")

	return cmd
}

var printTargetsFormatFlag string

func newPrintTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List discovered targets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			targets, err := st.CurrentTargets()
			if err != nil {
				return err
			}

			switch printTargetsFormatFlag {
			case report.FormatJSON:
				type jsonTarget struct {
					ID       int64  `json:"id"`
					Path     string `json:"path"`
					Language string `json:"language"`
					FileHash string `json:"file_hash"`
				}

				out := make([]jsonTarget, 0, len(targets))
				for _, t := range targets {
					out = append(out, jsonTarget{ID: t.ID, Path: string(t.Path), Language: t.Language, FileHash: t.FileHash})
				}

				encoded, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}

				cmd.Println(string(encoded))
			case report.FormatTable:
				cmd.Print(report.TargetsTable(targets))
			default:
				return fmt.Errorf("unknown format: %q", printTargetsFormatFlag)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&printTargetsFormatFlag, "format", report.FormatTable, "output format: table or json")

	return cmd
}

var printMutantIDFlag int64

func newPrintMutantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutant",
		Short: "Show one mutant as a unified diff against the original",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			mu, err := st.GetMutant(printMutantIDFlag)
			if err != nil {
				return err
			}

			target, err := st.GetTarget(mu.TargetID)
			if err != nil {
				return err
			}

			diff, err := report.MutantDiff(target, mu)
			if err != nil {
				return err
			}

			cmd.Print(diff)

			return nil
		},
	}

	cmd.Flags().Int64Var(&printMutantIDFlag, "id", 0, "mutant id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

var (
	printMutantsTargetFlag   string
	printMutantsLineFlag     int
	printMutantsFileFlag     string
	printMutantsTypeFlag     string
	printMutantsTestedFlag   bool
	printMutantsUntestedFlag bool
	printMutantsFormatFlag   string
)

func newPrintMutantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutants",
		Short: "List mutants, optionally filtered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := st.MutantsFiltered(store.Filter{
				Target:   printMutantsTargetFlag,
				Line:     printMutantsLineFlag,
				File:     printMutantsFileFlag,
				Slug:     printMutantsTypeFlag,
				Tested:   printMutantsTestedFlag,
				Untested: printMutantsUntestedFlag,
			})
			if err != nil {
				return err
			}

			switch printMutantsFormatFlag {
			case report.FormatJSON:
				out, err := report.JSONMutants(results)
				if err != nil {
					return err
				}

				cmd.Println(out)
			case report.FormatIDs:
				cmd.Print(report.IDs(results))
			case report.FormatTable:
				cmd.Print(report.MutantsTable(results))
			default:
				return fmt.Errorf("unknown format: %q", printMutantsFormatFlag)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&printMutantsTargetFlag, "target", "", "filter by target path, directory, or glob")
	cmd.Flags().IntVar(&printMutantsLineFlag, "line", 0, "filter by line number")
	cmd.Flags().StringVar(&printMutantsFileFlag, "file", "", "filter by path substring")
	cmd.Flags().StringVar(&printMutantsTypeFlag, "mutation_type", "", "filter by mutation slug")
	cmd.Flags().BoolVar(&printMutantsTestedFlag, "tested", false, "only mutants with outcomes")
	cmd.Flags().BoolVar(&printMutantsUntestedFlag, "untested", false, "only mutants without outcomes")
	cmd.Flags().StringVar(&printMutantsFormatFlag, "format", report.FormatTable, "output format: table, json, or ids")

	return cmd
}

var printConfigFormatFlag string

func newPrintConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective merged configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			effective := map[string]any{
				dbKey:            viper.GetString(dbKey),
				logLevelKey:      viper.GetString(logLevelKey),
				logColorKey:      viper.GetString(logColorKey),
				targetsInclude:   viper.GetStringSlice(targetsInclude),
				targetsIgnoreKey: resolveIgnoreList(),
				runMutationsKey:  viper.GetStringSlice(runMutationsKey),
				comprehensiveKey: viper.GetBool(comprehensiveKey),
				testCmdKey:       viper.GetString(testCmdKey),
				testTimeoutKey:   viper.GetInt(testTimeoutKey),
			}

			switch printConfigFormatFlag {
			case report.FormatJSON:
				out, err := json.MarshalIndent(effective, "", "  ")
				if err != nil {
					return err
				}

				cmd.Println(string(out))
			case report.FormatTable:
				for _, key := range []string{
					dbKey, logLevelKey, logColorKey, targetsInclude, targetsIgnoreKey,
					runMutationsKey, comprehensiveKey, testCmdKey, testTimeoutKey,
				} {
					cmd.Printf("%-20s %v\n", key, effective[key])
				}
			default:
				return fmt.Errorf("unknown format: %q", printConfigFormatFlag)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&printConfigFormatFlag, "format", report.FormatTable, "output format: table or json")

	return cmd
}

func init() {
	printCmd.AddCommand(newPrintMutationsCmd())
	printCmd.AddCommand(newPrintTargetsCmd())
	printCmd.AddCommand(newPrintMutantCmd())
	printCmd.AddCommand(newPrintMutantsCmd())
	printCmd.AddCommand(newPrintConfigCmd())
	rootCmd.AddCommand(printCmd)
}
