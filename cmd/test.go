package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mewt.dev/pkg/mewt/internal/campaign"
)

var (
	testIDsFlag     string
	testIDsFileFlag string
)

var testCmd = newTestCmd()

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "(Re-)test specific mutants by id",
		Long: `Run the test command against only the listed mutants. Ids come from
--ids (comma separated) or --ids-file (a file path, or '-' for stdin, with
ids separated by whitespace or commas). --ids-file takes precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := readMutantIDs(cmd.InOrStdin())
			if err != nil {
				return err
			}

			if len(ids) == 0 {
				return fmt.Errorf("no valid mutant ids provided")
			}

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

			if err := runner.LoadBaseline(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			installInterruptHandler(cancel, runner)

			return runner.TestMutants(ctx, ids)
		},
	}

	cmd.Flags().StringVar(&testIDsFlag, "ids", "", "comma-separated mutant ids")
	cmd.Flags().StringVar(&testIDsFileFlag, "ids-file", "",
		"read mutant ids from a file, or '-' for stdin")

	return cmd
}

func init() {
	rootCmd.AddCommand(testCmd)
}

// readMutantIDs parses ids from --ids-file (file or stdin) or --ids.
// Invalid tokens are skipped with a warning.
func readMutantIDs(stdin io.Reader) ([]int64, error) {
	var input string

	switch {
	case testIDsFileFlag == "-":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read ids from stdin: %w", err)
		}

		input = string(raw)
	case testIDsFileFlag != "":
		raw, err := os.ReadFile(testIDsFileFlag)
		if err != nil {
			return nil, fmt.Errorf("read ids file: %w", err)
		}

		input = string(raw)
	case testIDsFlag != "":
		input = testIDsFlag
	default:
		return nil, fmt.Errorf("either --ids or --ids-file must be provided")
	}

	var ids []int64

	for _, token := range strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	}) {
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			slog.Warn("skipping invalid mutant id", "token", token)
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}
