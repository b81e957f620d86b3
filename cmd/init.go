package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const starterConfig = `# mewt configuration
db = "mewt.sqlite"

[log]
level = "info"

[targets]
include = ["."]
ignore = ["_test.", "node_modules", "target/"]

[run]
# mutations = ["ER", "CR"]
comprehensive = false

[test]
cmd = ""
# timeout = 30

# [[test.per_target]]
# glob = "src/**/*.rs"
# cmd = "cargo test"
`

var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace: starter config plus database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configFileName); err == nil {
				return fmt.Errorf("%s already exists", configFileName)
			}

			if err := os.WriteFile(configFileName, []byte(starterConfig), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", configFileName, err)
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cmd.Printf("Created %s and %s\n", configFileName, viper.GetString(dbKey))

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
