package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"mewt.dev/pkg/mewt/internal/language"
	"mewt.dev/pkg/mewt/internal/report"
)

var statusFormatFlag string

var statusCmd = newStatusCmd()

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show campaign progress with per-target breakdown",
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

			rows := make([]report.StatusRow, 0, len(targets))

			for _, t := range targets {
				stats, err := st.GetTargetStats(t.ID)
				if err != nil {
					return err
				}

				rows = append(rows, report.StatusRow{Target: t.Display(), Stats: stats})
			}

			summary, err := st.GetSummary()
			if err != nil {
				return err
			}

			slugStats, err := st.SlugStats(0)
			if err != nil {
				return err
			}

			bands := report.BandRates(slugStats, language.CommonKinds())

			switch statusFormatFlag {
			case report.FormatJSON:
				out, err := json.MarshalIndent(map[string]any{
					"targets":        rows,
					"summary":        summary,
					"severity_bands": bands,
				}, "", "  ")
				if err != nil {
					return err
				}

				cmd.Println(string(out))
			case report.FormatTable:
				cmd.Print(report.StatusTable(rows, summary))
				cmd.Print(report.BandSummary(bands))
			default:
				return fmt.Errorf("unknown format: %q", statusFormatFlag)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&statusFormatFlag, "format", report.FormatTable, "output format: table or json")

	return cmd
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
