package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/hnpscan-cli/internal/analysis/rules"
)

// newFrameworksCmd lists the built-in rule packs.
func newFrameworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List the built-in framework rule packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range rules.Frameworks() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
