// Package commands defines all Cobra CLI commands for the rolerag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/rolerag/internal/audit"
	"github.com/54b3r/rolerag/internal/config"
	"github.com/54b3r/rolerag/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rolerag",
		Short: "Role-partitioned document Q&A behind a signed-token gate",
		Long: `rolerag answers questions from a document corpus partitioned by role.

Users log in with a username and password, receive a signed token carrying
their role, and every question is answered only from that role's partition.

Settings come from the process environment, a .env file, and a YAML config
file (~/.rolerag/config.yaml), in that order of precedence.
See 'rolerag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.rolerag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewHashPasswordCmd(),
		NewVersionCmd(),
	)

	return root
}
