package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/report"
	"mewt.dev/pkg/mewt/internal/store"
)

var (
	resultsTargetFlag   string
	resultsStatusFlag   string
	resultsLanguageFlag string
	resultsTypeFlag     string
	resultsLineFlag     int
	resultsFileFlag     string
	resultsIDFlag       int64
	resultsAllFlag      bool
	resultsVerboseFlag  bool
	resultsFormatFlag   string
)

var resultsCmd = newResultsCmd()

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show mutation testing outcomes",
		Long: `List classified mutants. Without --all, --status or --id only
surviving (Uncaught) mutants are shown, since those are the testing gaps
worth fixing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			filter := store.Filter{
				Target:   resultsTargetFlag,
				Language: resultsLanguageFlag,
				Slug:     resultsTypeFlag,
				Line:     resultsLineFlag,
				File:     resultsFileFlag,
				ID:       resultsIDFlag,
			}

			if resultsStatusFlag != "" {
				status, err := m.ParseStatus(resultsStatusFlag)
				if err != nil {
					return err
				}

				filter.Status = string(status)
			} else if !resultsAllFlag && resultsIDFlag == 0 {
				filter.Status = string(m.StatusUncaught)
			}

			results, err := st.ResultsFiltered(filter)
			if err != nil {
				return err
			}

			switch resultsFormatFlag {
			case report.FormatJSON:
				out, err := report.JSONResults(results)
				if err != nil {
					return err
				}

				cmd.Println(out)
			case report.FormatSARIF:
				out, err := report.SARIF(results, version)
				if err != nil {
					return err
				}

				cmd.Println(out)
			case report.FormatIDs:
				cmd.Print(report.IDs(results))
			case report.FormatTable:
				cmd.Print(report.ResultsTable(results, colorsEnabled()))

				if resultsVerboseFlag {
					for _, r := range results {
						if r.Outcome.Output == "" {
							continue
						}

						cmd.Printf("\n--- mutant #%d output (%dms, started %s) ---\n%s\n",
							r.Mutant.ID, r.Outcome.ElapsedMS, r.Outcome.StartedAt.Format("15:04:05"), r.Outcome.Output)
					}
				}
			default:
				return fmt.Errorf("unknown format: %q", resultsFormatFlag)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&resultsTargetFlag, "target", "", "filter by target path, directory, or glob")
	cmd.Flags().StringVar(&resultsStatusFlag, "status", "", "filter by status (Uncaught, TestFail, Skipped, Timeout)")
	cmd.Flags().StringVar(&resultsLanguageFlag, "language", "", "filter by language")
	cmd.Flags().StringVar(&resultsTypeFlag, "mutation_type", "", "filter by mutation slug")
	cmd.Flags().IntVar(&resultsLineFlag, "line", 0, "filter by line number")
	cmd.Flags().StringVar(&resultsFileFlag, "file", "", "filter by path substring")
	cmd.Flags().Int64Var(&resultsIDFlag, "id", 0, "show only this mutant's outcome")
	cmd.Flags().BoolVar(&resultsAllFlag, "all", false, "show all outcomes, not only Uncaught")
	cmd.Flags().BoolVar(&resultsVerboseFlag, "verbose", false, "include captured test output and timing")
	cmd.Flags().StringVar(&resultsFormatFlag, "format", report.FormatTable, "output format: table, json, sarif, or ids")

	return cmd
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}
