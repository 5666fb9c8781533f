package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/rolerag/internal/version"
)

// NewVersionCmd constructs the `rolerag version` subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rolerag version, git commit, and build date",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
